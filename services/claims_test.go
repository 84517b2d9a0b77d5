package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadside-assist-server/models"
)

func newClaimFixture(t *testing.T) (*ClaimService, *JobService, *models.User, *models.Job) {
	t.Helper()

	db := newTestDB(t)
	dispatcher := newTestDispatcher(db)
	jobs := NewJobService(db, dispatcher, nil, nil)
	claims := NewClaimService(db, 48*time.Hour, dispatcher)

	staff := createUser(t, db, models.RoleDispatcher)
	ghost, err := jobs.CreateGhost(models.GhostJobCreate{
		JobCreate: models.JobCreate{
			ServiceType:   "towing",
			PickupAddress: "I-95 mile marker 12",
		},
		CustomerName:  "Jo Martin",
		CustomerPhone: "+15551230000",
	}, staff)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusPendingClaim, ghost.Status)
	require.Equal(t, models.ClaimStatusUnclaimed, ghost.ClaimStatus)
	require.Nil(t, ghost.CustomerID)

	return claims, jobs, staff, ghost
}

// A dispatcher opens a job for a stranded caller; the caller signs up later
// and follows the claim link. The job binds to the new account and opens for
// bids.
func TestClaimJobBindsAccount(t *testing.T) {
	claims, _, _, ghost := newClaimFixture(t)
	db := claims.db
	customer := createUser(t, db, models.RoleCustomer)

	token, expiresAt, err := claims.CreateClaimToken(ghost.ID)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	// Only the hash lands in storage.
	require.NoError(t, db.First(ghost, ghost.ID).Error)
	assert.NotEqual(t, token, ghost.ClaimTokenHash)
	assert.Len(t, ghost.ClaimTokenHash, 64)

	claimed, err := claims.ClaimJob(ghost.ID, token, customer.ID)
	require.NoError(t, err)
	require.NotNil(t, claimed.CustomerID)
	assert.Equal(t, customer.ID, *claimed.CustomerID)
	assert.Equal(t, models.JobStatusOpen, claimed.Status)
	assert.Equal(t, models.ClaimStatusClaimed, claimed.ClaimStatus)
	assert.NotNil(t, claimed.ClaimedAt)

	assert.EqualValues(t, 1, countNotifications(t, db, customer.ID, models.NotificationJobClaimed))
}

// The token is single-use: once consumed, every later attempt fails no
// matter who presents it.
func TestClaimJobIsSingleUse(t *testing.T) {
	claims, _, _, ghost := newClaimFixture(t)
	db := claims.db
	first := createUser(t, db, models.RoleCustomer)
	second := createUser(t, db, models.RoleCustomer)

	token, _, err := claims.CreateClaimToken(ghost.ID)
	require.NoError(t, err)

	_, err = claims.ClaimJob(ghost.ID, token, first.ID)
	require.NoError(t, err)

	_, err = claims.ClaimJob(ghost.ID, token, second.ID)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	// The binding must not have moved.
	require.NoError(t, db.First(ghost, ghost.ID).Error)
	require.NotNil(t, ghost.CustomerID)
	assert.Equal(t, first.ID, *ghost.CustomerID)
}

func TestClaimJobRejectsWrongToken(t *testing.T) {
	claims, _, _, ghost := newClaimFixture(t)
	customer := createUser(t, claims.db, models.RoleCustomer)

	_, _, err := claims.CreateClaimToken(ghost.ID)
	require.NoError(t, err)

	_, err = claims.ClaimJob(ghost.ID, "not-the-token", customer.ID)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestClaimJobRejectsExpiredToken(t *testing.T) {
	db := newTestDB(t)
	dispatcher := newTestDispatcher(db)
	jobs := NewJobService(db, dispatcher, nil, nil)
	claims := NewClaimService(db, -time.Minute, dispatcher) // already expired

	staff := createUser(t, db, models.RoleDispatcher)
	ghost, err := jobs.CreateGhost(models.GhostJobCreate{
		JobCreate:     models.JobCreate{ServiceType: "towing", PickupAddress: "somewhere"},
		CustomerName:  "Jo Martin",
		CustomerPhone: "+15551230000",
	}, staff)
	require.NoError(t, err)

	token, _, err := claims.CreateClaimToken(ghost.ID)
	require.NoError(t, err)

	customer := createUser(t, db, models.RoleCustomer)
	_, err = claims.ClaimJob(ghost.ID, token, customer.ID)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// The job stays unclaimed for a re-issued link.
	require.NoError(t, db.First(ghost, ghost.ID).Error)
	assert.Equal(t, models.ClaimStatusUnclaimed, ghost.ClaimStatus)
}

// Re-issuing replaces the previous token, invalidating it.
func TestCreateClaimTokenReissue(t *testing.T) {
	claims, _, _, ghost := newClaimFixture(t)
	customer := createUser(t, claims.db, models.RoleCustomer)

	oldToken, _, err := claims.CreateClaimToken(ghost.ID)
	require.NoError(t, err)
	newToken, _, err := claims.CreateClaimToken(ghost.ID)
	require.NoError(t, err)
	require.NotEqual(t, oldToken, newToken)

	_, err = claims.ClaimJob(ghost.ID, oldToken, customer.ID)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = claims.ClaimJob(ghost.ID, newToken, customer.ID)
	assert.NoError(t, err)
}

func TestCreateClaimTokenGuards(t *testing.T) {
	claims, _, _, ghost := newClaimFixture(t)
	db := claims.db
	customer := createUser(t, db, models.RoleCustomer)

	_, _, err := claims.CreateClaimToken(999999)
	assert.ErrorIs(t, err, ErrNotFound)

	token, _, err := claims.CreateClaimToken(ghost.ID)
	require.NoError(t, err)
	_, err = claims.ClaimJob(ghost.ID, token, customer.ID)
	require.NoError(t, err)

	// No new links for a job that already belongs to someone, and the
	// refusal must not touch the stored token state.
	require.NoError(t, db.First(ghost, ghost.ID).Error)
	hashBefore := ghost.ClaimTokenHash

	_, _, err = claims.CreateClaimToken(ghost.ID)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	require.NoError(t, db.First(ghost, ghost.ID).Error)
	assert.Equal(t, hashBefore, ghost.ClaimTokenHash)
}

func TestCreateGhostJobRequiresStaff(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobService(db, newTestDispatcher(db), nil, nil)
	customer := createUser(t, db, models.RoleCustomer)

	_, err := jobs.CreateGhost(models.GhostJobCreate{
		JobCreate:     models.JobCreate{ServiceType: "towing", PickupAddress: "somewhere"},
		CustomerName:  "Jo Martin",
		CustomerPhone: "+15551230000",
	}, customer)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}
