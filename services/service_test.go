package services

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"roadside-assist-server/database"
	"roadside-assist-server/models"
)

// newTestDB opens an isolated in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Every connection to :memory: is a distinct database; pin the pool to
	// one so all queries see the same schema.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestDispatcher(db *gorm.DB) *NotificationDispatcher {
	return NewNotificationDispatcher(db, nil, "")
}

func createUser(t *testing.T, db *gorm.DB, role models.UserRole) *models.User {
	t.Helper()

	user := models.User{
		FullName:     fmt.Sprintf("Test %s", role),
		PhoneNumber:  fmt.Sprintf("+1555%07d", nextSeq()),
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// createProvider seeds a provider business with its owner user and returns
// both.
func createProvider(t *testing.T, db *gorm.DB, name string) (*models.Provider, *models.User) {
	t.Helper()

	owner := createUser(t, db, models.RoleProvider)
	provider := models.Provider{
		OwnerUserID:  owner.ID,
		BusinessName: name,
		PhoneNumber:  owner.PhoneNumber,
		City:         "Springfield",
		Services:     "towing,tire_change",
		IsAvailable:  true,
	}
	require.NoError(t, db.Create(&provider).Error)

	require.NoError(t, db.Model(owner).Update("provider_id", provider.ID).Error)
	owner.ProviderID = &provider.ID
	return &provider, owner
}

func createOpenJob(t *testing.T, db *gorm.DB, customer *models.User) *models.Job {
	t.Helper()

	job := models.Job{
		CreatedByUserID: customer.ID,
		CustomerID:      &customer.ID,
		Status:          models.JobStatusOpen,
		ServiceType:     models.ServiceTowing,
		Priority:        "normal",
		PickupAddress:   "123 Main St",
		ClaimStatus:     models.ClaimStatusClaimed,
	}
	require.NoError(t, db.Create(&job).Error)
	return &job
}

var seq int

func nextSeq() int {
	seq++
	return seq
}

func countNotifications(t *testing.T, db *gorm.DB, userID uint, ntype models.NotificationType) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", userID, ntype).
		Count(&count).Error)
	return count
}
