package services

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"roadside-assist-server/models"
)

// RouteEstimator computes driving distance and duration between two points.
// Implemented by the OSRM client in utils; nil disables mileage estimates.
type RouteEstimator interface {
	DriveRoute(fromLat, fromLng, toLat, toLng float64) (meters, seconds float64, err error)
}

// LiveBroadcaster pushes newly opened jobs to connected providers. A nil
// broadcaster skips live fan-out.
type LiveBroadcaster interface {
	BroadcastJob(job *models.Job)
}

// JobService owns the job store. Status never changes except through the
// lifecycle service's compare-and-set path.
type JobService struct {
	db          *gorm.DB
	lifecycle   *LifecycleService
	dispatcher  *NotificationDispatcher
	router      RouteEstimator
	broadcaster LiveBroadcaster
}

// NewJobService creates a new job service
func NewJobService(db *gorm.DB, dispatcher *NotificationDispatcher, router RouteEstimator, broadcaster LiveBroadcaster) *JobService {
	return &JobService{
		db:          db,
		lifecycle:   NewLifecycleService(db),
		dispatcher:  dispatcher,
		router:      router,
		broadcaster: broadcaster,
	}
}

// Lifecycle exposes the status mutation path shared with other services.
func (s *JobService) Lifecycle() *LifecycleService {
	return s.lifecycle
}

// Create stores a customer-created job. It starts open for bids.
func (s *JobService) Create(req models.JobCreate, customer *models.User) (*models.Job, error) {
	serviceType, err := parseServiceType(req.ServiceType)
	if err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = "normal"
	}
	if req.IsEmergency {
		priority = "urgent"
	}

	customerID := customer.ID
	job := models.Job{
		CreatedByUserID: customer.ID,
		CustomerID:      &customerID,
		Status:          models.JobStatusOpen,
		ServiceType:     serviceType,
		Notes:           req.Notes,
		Priority:        priority,
		IsEmergency:     req.IsEmergency,
		PickupAddress:   req.PickupAddress,
		PickupLat:       req.PickupLat,
		PickupLng:       req.PickupLng,
		DropoffAddress:  req.DropoffAddress,
		DropoffLat:      req.DropoffLat,
		DropoffLng:      req.DropoffLng,
		VehicleInfo:     req.VehicleInfo,
		ClaimStatus:     models.ClaimStatusClaimed,
	}
	s.estimateMileage(&job)

	if err := s.db.Create(&job).Error; err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastJob(&job)
	}
	return &job, nil
}

// CreateGhost stores a dispatcher-created job on behalf of a customer who
// has no account yet. It waits in the claim-pending prefix until the claim
// link is used.
func (s *JobService) CreateGhost(req models.GhostJobCreate, dispatcher *models.User) (*models.Job, error) {
	if !dispatcher.IsStaff() {
		return nil, ErrPermissionDenied
	}

	serviceType, err := parseServiceType(req.ServiceType)
	if err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = "normal"
	}

	job := models.Job{
		CreatedByUserID: dispatcher.ID,
		Status:          models.JobStatusPendingClaim,
		ServiceType:     serviceType,
		Notes:           req.Notes,
		Priority:        priority,
		IsEmergency:     req.IsEmergency,
		PickupAddress:   req.PickupAddress,
		PickupLat:       req.PickupLat,
		PickupLng:       req.PickupLng,
		DropoffAddress:  req.DropoffAddress,
		DropoffLat:      req.DropoffLat,
		DropoffLng:      req.DropoffLng,
		VehicleInfo:     req.VehicleInfo,
		ContactName:     req.CustomerName,
		ContactPhone:    req.CustomerPhone,
		ClaimStatus:     models.ClaimStatusUnclaimed,
	}
	s.estimateMileage(&job)

	if err := s.db.Create(&job).Error; err != nil {
		return nil, fmt.Errorf("failed to create ghost job: %w", err)
	}

	log.Printf("👻 Ghost job %d created by dispatcher %d for %s", job.ID, dispatcher.ID, req.CustomerPhone)
	return &job, nil
}

// Get loads a job with its relations, enforcing read access: the owning
// customer, staff, the assigned provider's users, or any provider while the
// job is still open for bids.
func (s *JobService) Get(jobID uint, actor *models.User) (*models.Job, error) {
	var job models.Job
	if err := s.db.
		Preload("Customer").
		Preload("Provider").
		Preload("AssignedEmployee").
		Preload("Bids").
		First(&job, jobID).Error; err != nil {
		return nil, ErrNotFound
	}

	if !canReadJob(&job, actor) {
		return nil, ErrPermissionDenied
	}
	return &job, nil
}

// ListForCustomer returns the customer's own jobs, newest first
func (s *JobService) ListForCustomer(customerID uint) ([]models.Job, error) {
	var jobs []models.Job
	err := s.db.Where("customer_id = ?", customerID).
		Preload("Provider").
		Order("created_at DESC").
		Find(&jobs).Error
	return jobs, err
}

// ListOpen returns jobs still accepting bids, optionally filtered by
// service type, newest first.
func (s *JobService) ListOpen(serviceType string) ([]models.Job, error) {
	query := s.db.Where("status IN ?", []models.JobStatus{models.JobStatusOpen, models.JobStatusBidding})
	if serviceType != "" {
		st, err := parseServiceType(serviceType)
		if err != nil {
			return nil, err
		}
		query = query.Where("service_type = ?", st)
	}

	var jobs []models.Job
	err := query.Order("created_at DESC").Find(&jobs).Error
	return jobs, err
}

// ListForProvider returns jobs assigned to the provider, newest first
func (s *JobService) ListForProvider(providerID uint) ([]models.Job, error) {
	var jobs []models.Job
	err := s.db.Where("provider_id = ?", providerID).
		Preload("Customer").
		Order("created_at DESC").
		Find(&jobs).Error
	return jobs, err
}

// UpdateStatus applies a guarded lifecycle transition on behalf of an actor.
// Customers may only cancel; the assigned provider's users advance the job;
// staff may apply any valid transition.
func (s *JobService) UpdateStatus(jobID uint, target models.JobStatus, actor *models.User) (*models.Job, error) {
	var job models.Job
	if err := s.db.First(&job, jobID).Error; err != nil {
		return nil, ErrNotFound
	}

	if !canWriteStatus(&job, actor, target) {
		return nil, ErrPermissionDenied
	}

	// Assignment happens only through bid acceptance, which resolves the
	// competing bids in the same transaction. While no provider holds the
	// job, the guarded path stops short of assigned.
	if job.ProviderID == nil && target.Rank() >= models.JobStatusAssigned.Rank() {
		return nil, &InvalidTransitionError{From: job.Status, To: target}
	}

	if err := s.lifecycle.Transition(job.ID, job.Status, target); err != nil {
		return nil, err
	}

	if err := s.db.First(&job, jobID).Error; err != nil {
		return nil, err
	}

	if job.CustomerID != nil && actor.ID != *job.CustomerID {
		s.dispatcher.Dispatch(*job.CustomerID, models.NotificationStatusUpdate,
			"Job status updated",
			fmt.Sprintf("Roadside request #%d is now %s.", job.ID, job.Status),
			&job.ID)
	}
	return &job, nil
}

// Cancel moves the job to canceled from any non-terminal state
func (s *JobService) Cancel(jobID uint, actor *models.User) (*models.Job, error) {
	return s.UpdateStatus(jobID, models.JobStatusCanceled, actor)
}

// AssignEmployee sets the employee working the job. Allowed once the job is
// assigned, by the assigned provider's users or staff; the employee must
// belong to the assigned provider.
func (s *JobService) AssignEmployee(jobID, employeeID uint, actor *models.User) (*models.Job, error) {
	var job models.Job
	if err := s.db.First(&job, jobID).Error; err != nil {
		return nil, ErrNotFound
	}
	if job.ProviderID == nil || job.Status.Rank() < models.JobStatusAssigned.Rank() {
		return nil, &InvalidTransitionError{From: job.Status, To: models.JobStatusAssigned}
	}
	if !actor.IsStaff() && (actor.ProviderID == nil || *actor.ProviderID != *job.ProviderID) {
		return nil, ErrPermissionDenied
	}

	var employee models.User
	if err := s.db.First(&employee, employeeID).Error; err != nil {
		return nil, ErrNotFound
	}
	if employee.ProviderID == nil || *employee.ProviderID != *job.ProviderID {
		return nil, ErrPermissionDenied
	}

	if err := s.db.Model(&job).Update("assigned_employee_id", employeeID).Error; err != nil {
		return nil, err
	}
	job.AssignedEmployeeID = &employeeID
	return &job, nil
}

// estimateMileage fills in the pickup-to-dropoff driving distance when both
// coordinate pairs are known. Routing failures leave mileage unavailable,
// never fail the job write.
func (s *JobService) estimateMileage(job *models.Job) {
	if s.router == nil || job.PickupLat == nil || job.PickupLng == nil ||
		job.DropoffLat == nil || job.DropoffLng == nil {
		return
	}
	meters, seconds, err := s.router.DriveRoute(*job.PickupLat, *job.PickupLng, *job.DropoffLat, *job.DropoffLng)
	if err != nil {
		log.Printf("⚠️ Mileage unavailable for new job: %v", err)
		return
	}
	job.MileageMeters = &meters
	job.DurationSeconds = &seconds
}

func parseServiceType(raw string) (models.ServiceType, error) {
	for _, st := range models.GetServiceTypes() {
		if string(st) == raw {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown service type %q", raw)
}

func canReadJob(job *models.Job, actor *models.User) bool {
	if actor == nil {
		return false
	}
	if actor.IsStaff() {
		return true
	}
	if job.CustomerID != nil && *job.CustomerID == actor.ID {
		return true
	}
	if job.CreatedByUserID == actor.ID {
		return true
	}
	if actor.ProviderID != nil {
		if job.ProviderID != nil && *job.ProviderID == *actor.ProviderID {
			return true
		}
		// Providers can inspect anything still open for bids.
		if job.Status.CanAcceptBids() {
			return true
		}
	}
	return false
}

func canWriteStatus(job *models.Job, actor *models.User, target models.JobStatus) bool {
	if actor == nil {
		return false
	}
	if actor.IsStaff() {
		return true
	}
	if job.CustomerID != nil && *job.CustomerID == actor.ID {
		return target == models.JobStatusCanceled
	}
	if actor.ProviderID != nil && job.ProviderID != nil && *actor.ProviderID == *job.ProviderID {
		// The assigned provider advances the job but cannot cancel on the
		// customer's behalf.
		return target != models.JobStatusCanceled
	}
	return false
}
