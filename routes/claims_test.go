package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"roadside-assist-server/config"
	"roadside-assist-server/database"
	"roadside-assist-server/models"
	"roadside-assist-server/services"
)

type claimTestEnv struct {
	db     *gorm.DB
	router *gin.Engine
	jobs   *services.JobService
	claims *services.ClaimService
}

// newClaimTestEnv wires the dispatch and claim endpoints against an
// in-memory database, with a stub auth layer that injects the given user.
func newClaimTestEnv(t *testing.T) *claimTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.Load()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	dispatcher := services.NewNotificationDispatcher(db, nil, "")
	env := &claimTestEnv{
		db:     db,
		jobs:   services.NewJobService(db, dispatcher, nil, nil),
		claims: services.NewClaimService(db, 48*time.Hour, dispatcher),
	}

	router := gin.New()
	authed := router.Group("", func(c *gin.Context) {
		if id, err := strconv.ParseUint(c.GetHeader("X-Test-User"), 10, 32); err == nil {
			var user models.User
			if err := db.First(&user, uint(id)).Error; err == nil {
				c.Set("user", user)
				c.Set("user_id", user.ID)
			}
		}
		c.Next()
	})
	RegisterDispatchRoutes(authed.Group("/dispatch"), env.jobs, env.claims)
	RegisterClaimRoutes(authed, env.claims)
	env.router = router
	return env
}

func (env *claimTestEnv) createUser(t *testing.T, role models.UserRole) *models.User {
	t.Helper()
	user := models.User{
		FullName:     "Test User",
		PhoneNumber:  fmt.Sprintf("+1555%07d", time.Now().UnixNano()%10000000),
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, env.db.Create(&user).Error)
	return &user
}

func (env *claimTestEnv) do(t *testing.T, user *models.User, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("X-Test-User", fmt.Sprintf("%d", user.ID))
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestGhostJobClaimFlow(t *testing.T) {
	env := newClaimTestEnv(t)
	staff := env.createUser(t, models.RoleDispatcher)
	customer := env.createUser(t, models.RoleCustomer)

	w := env.do(t, staff, http.MethodPost, "/dispatch/ghost-jobs", `{
		"service_type": "towing",
		"pickup_address": "I-95 mile marker 12",
		"customer_name": "Jo Martin",
		"customer_phone": "+15551230000"
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Job       models.Job `json:"job"`
		ClaimLink string     `json:"claim_link"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotZero(t, created.Job.ID)
	require.Contains(t, created.ClaimLink, "token=")

	token := created.ClaimLink[strings.Index(created.ClaimLink, "token=")+len("token="):]

	// Wrong token maps to 400.
	w = env.do(t, customer, http.MethodPost, "/claim",
		fmt.Sprintf(`{"job_id": %d, "token": "nope"}`, created.Job.ID))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Right token binds the job.
	w = env.do(t, customer, http.MethodPost, "/claim",
		fmt.Sprintf(`{"job_id": %d, "token": %q}`, created.Job.ID, token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var claimed struct {
		Job models.Job `json:"job"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &claimed))
	assert.Equal(t, models.JobStatusOpen, claimed.Job.Status)
	require.NotNil(t, claimed.Job.CustomerID)
	assert.Equal(t, customer.ID, *claimed.Job.CustomerID)

	// Replays conflict.
	w = env.do(t, customer, http.MethodPost, "/claim",
		fmt.Sprintf(`{"job_id": %d, "token": %q}`, created.Job.ID, token))
	assert.Equal(t, http.StatusConflict, w.Code)

	// As does re-issuing a link for a claimed job.
	w = env.do(t, staff, http.MethodPost,
		fmt.Sprintf("/dispatch/ghost-jobs/%d/claim-token", created.Job.ID), "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestClaimUnknownJob(t *testing.T) {
	env := newClaimTestEnv(t)
	customer := env.createUser(t, models.RoleCustomer)

	w := env.do(t, customer, http.MethodPost, "/claim", `{"job_id": 999999, "token": "whatever"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExpiredClaimTokenMapsToGone(t *testing.T) {
	env := newClaimTestEnv(t)
	staff := env.createUser(t, models.RoleDispatcher)
	customer := env.createUser(t, models.RoleCustomer)

	ghost, err := env.jobs.CreateGhost(models.GhostJobCreate{
		JobCreate:     models.JobCreate{ServiceType: "towing", PickupAddress: "somewhere"},
		CustomerName:  "Jo Martin",
		CustomerPhone: "+15551230000",
	}, staff)
	require.NoError(t, err)

	expiredClaims := services.NewClaimService(env.db, -time.Minute, services.NewNotificationDispatcher(env.db, nil, ""))
	token, _, err := expiredClaims.CreateClaimToken(ghost.ID)
	require.NoError(t, err)

	w := env.do(t, customer, http.MethodPost, "/claim",
		fmt.Sprintf(`{"job_id": %d, "token": %q}`, ghost.ID, token))
	assert.Equal(t, http.StatusGone, w.Code)
}
