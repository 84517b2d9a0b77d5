package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"roadside-assist-server/models"
)

func assignJob(t *testing.T, db *gorm.DB, job *models.Job, providerID uint) {
	t.Helper()
	require.NoError(t, db.Model(job).Updates(map[string]interface{}{
		"status":      models.JobStatusAssigned,
		"provider_id": providerID,
	}).Error)
	require.NoError(t, db.First(job, job.ID).Error)
}

func TestCreateJobStartsOpen(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobService(db, newTestDispatcher(db), nil, nil)
	customer := createUser(t, db, models.RoleCustomer)

	job, err := jobs.Create(models.JobCreate{
		ServiceType:   "jump_start",
		PickupAddress: "44 Elm St",
		IsEmergency:   true,
	}, customer)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusOpen, job.Status)
	assert.Equal(t, models.ClaimStatusClaimed, job.ClaimStatus)
	require.NotNil(t, job.CustomerID)
	assert.Equal(t, customer.ID, *job.CustomerID)
	assert.Equal(t, "urgent", job.Priority)
}

func TestCreateJobRejectsUnknownService(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobService(db, newTestDispatcher(db), nil, nil)
	customer := createUser(t, db, models.RoleCustomer)

	_, err := jobs.Create(models.JobCreate{ServiceType: "helicopter", PickupAddress: "x"}, customer)
	assert.Error(t, err)
}

func TestUpdateStatusCustomerCanOnlyCancel(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobService(db, newTestDispatcher(db), nil, nil)
	customer := createUser(t, db, models.RoleCustomer)
	job := createOpenJob(t, db, customer)

	_, err := jobs.UpdateStatus(job.ID, models.JobStatusAssigned, customer)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	updated, err := jobs.Cancel(job.ID, customer)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCanceled, updated.Status)
	assert.NotNil(t, updated.CanceledAt)
}

func TestUpdateStatusProviderAdvancesForward(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobService(db, newTestDispatcher(db), nil, nil)
	customer := createUser(t, db, models.RoleCustomer)
	provider, owner := createProvider(t, db, "Ace Towing")
	job := createOpenJob(t, db, customer)
	assignJob(t, db, job, provider.ID)

	updated, err := jobs.UpdateStatus(job.ID, models.JobStatusEnroute, owner)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusEnroute, updated.Status)

	// No sliding back.
	_, err = jobs.UpdateStatus(job.ID, models.JobStatusAssigned, owner)
	require.Error(t, err)
	assert.True(t, IsInvalidTransition(err))

	// The assigned provider cannot cancel on the customer's behalf.
	_, err = jobs.UpdateStatus(job.ID, models.JobStatusCanceled, owner)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// The customer hears about the provider's progress.
	assert.EqualValues(t, 1, countNotifications(t, db, customer.ID, models.NotificationStatusUpdate))
}

// Assignment only ever comes out of bid acceptance: even staff cannot push
// an unassigned job into assigned or beyond, which would strand submitted
// bids unresolved.
func TestUpdateStatusCannotSkipBidResolution(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobService(db, newTestDispatcher(db), nil, nil)
	bids := NewBidService(db, newTestDispatcher(db))
	customer := createUser(t, db, models.RoleCustomer)
	staff := createUser(t, db, models.RoleDispatcher)
	provider, _ := createProvider(t, db, "Ace Towing")
	job := createOpenJob(t, db, customer)

	_, err := bids.SubmitBid(job.ID, provider.ID, models.BidCreate{Amount: 120, ETAMinutes: 30})
	require.NoError(t, err)

	_, err = jobs.UpdateStatus(job.ID, models.JobStatusAssigned, staff)
	require.Error(t, err)
	assert.True(t, IsInvalidTransition(err))

	// Jumping further ahead is no better.
	_, err = jobs.UpdateStatus(job.ID, models.JobStatusEnroute, staff)
	require.Error(t, err)
	assert.True(t, IsInvalidTransition(err))

	require.NoError(t, db.First(job, job.ID).Error)
	assert.Equal(t, models.JobStatusBidding, job.Status)
	assert.Nil(t, job.ProviderID)

	var submitted int64
	require.NoError(t, db.Model(&models.Bid{}).
		Where("job_id = ? AND status = ?", job.ID, models.BidStatusSubmitted).
		Count(&submitted).Error)
	assert.EqualValues(t, 1, submitted)

	// Accepting the bid restores the normal path.
	bid, err := bids.ListBids(job.ID)
	require.NoError(t, err)
	require.Len(t, bid, 1)
	_, err = bids.AcceptBid(job.ID, bid[0].ID, staff)
	require.NoError(t, err)

	updated, err := jobs.UpdateStatus(job.ID, models.JobStatusEnroute, staff)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusEnroute, updated.Status)
}

func TestUpdateStatusUnassignedProviderDenied(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobService(db, newTestDispatcher(db), nil, nil)
	customer := createUser(t, db, models.RoleCustomer)
	assigned, _ := createProvider(t, db, "Ace Towing")
	_, outsider := createProvider(t, db, "Budget Roadside")
	job := createOpenJob(t, db, customer)
	assignJob(t, db, job, assigned.ID)

	_, err := jobs.UpdateStatus(job.ID, models.JobStatusEnroute, outsider)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestGetJobVisibility(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobService(db, newTestDispatcher(db), nil, nil)
	customer := createUser(t, db, models.RoleCustomer)
	stranger := createUser(t, db, models.RoleCustomer)
	staff := createUser(t, db, models.RoleDispatcher)
	_, providerUser := createProvider(t, db, "Ace Towing")
	job := createOpenJob(t, db, customer)

	_, err := jobs.Get(job.ID, customer)
	assert.NoError(t, err)
	_, err = jobs.Get(job.ID, staff)
	assert.NoError(t, err)

	// Any provider may inspect a job while it is open for bids.
	_, err = jobs.Get(job.ID, providerUser)
	assert.NoError(t, err)

	_, err = jobs.Get(job.ID, stranger)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// Once assigned elsewhere, unrelated providers lose visibility.
	other, _ := createProvider(t, db, "Budget Roadside")
	assignJob(t, db, job, other.ID)
	_, err = jobs.Get(job.ID, providerUser)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = jobs.Get(404404, customer)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignEmployee(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobService(db, newTestDispatcher(db), nil, nil)
	customer := createUser(t, db, models.RoleCustomer)
	provider, owner := createProvider(t, db, "Ace Towing")
	_, outsideOwner := createProvider(t, db, "Budget Roadside")

	employee := createUser(t, db, models.RoleProvider)
	require.NoError(t, db.Model(employee).Update("provider_id", provider.ID).Error)
	employee.ProviderID = &provider.ID

	job := createOpenJob(t, db, customer)

	// Not before assignment.
	_, err := jobs.AssignEmployee(job.ID, employee.ID, owner)
	require.Error(t, err)
	assert.True(t, IsInvalidTransition(err))

	assignJob(t, db, job, provider.ID)

	updated, err := jobs.AssignEmployee(job.ID, employee.ID, owner)
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedEmployeeID)
	assert.Equal(t, employee.ID, *updated.AssignedEmployeeID)

	// Someone else's staff cannot work this job.
	_, err = jobs.AssignEmployee(job.ID, outsideOwner.ID, owner)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// Nor can another provider's owner drive the assignment.
	_, err = jobs.AssignEmployee(job.ID, employee.ID, outsideOwner)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestListOpenFiltersByService(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobService(db, newTestDispatcher(db), nil, nil)
	customer := createUser(t, db, models.RoleCustomer)

	towJob, err := jobs.Create(models.JobCreate{ServiceType: "towing", PickupAddress: "a"}, customer)
	require.NoError(t, err)
	_, err = jobs.Create(models.JobCreate{ServiceType: "lockout", PickupAddress: "b"}, customer)
	require.NoError(t, err)

	all, err := jobs.ListOpen("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	towing, err := jobs.ListOpen("towing")
	require.NoError(t, err)
	require.Len(t, towing, 1)
	assert.Equal(t, towJob.ID, towing[0].ID)

	_, err = jobs.ListOpen("helicopter")
	assert.Error(t, err)
}
