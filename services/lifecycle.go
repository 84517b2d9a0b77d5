package services

import (
	"log"
	"time"

	"gorm.io/gorm"

	"roadside-assist-server/models"
)

// LifecycleService is the sole mutation path for a job's status. Every
// writer goes through Transition so that no screen or handler can push a
// job backwards in its lifecycle.
type LifecycleService struct {
	db *gorm.DB
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(db *gorm.DB) *LifecycleService {
	return &LifecycleService{db: db}
}

// ValidateTransition checks the lifecycle ordering rule: the target state's
// rank must be strictly greater than the current state's rank, or the target
// is canceled and the current state is non-terminal.
func ValidateTransition(from, to models.JobStatus) error {
	if !to.IsValid() {
		return &InvalidTransitionError{From: from, To: to}
	}
	if to == models.JobStatusCanceled {
		if from.IsTerminal() {
			return &InvalidTransitionError{From: from, To: to}
		}
		return nil
	}
	if from.IsTerminal() || to.Rank() <= from.Rank() {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// Transition moves a job from an expected prior status to a new one with a
// compare-and-set on the stored status. Concurrent conflicting transitions
// lose the CAS and are rejected instead of silently overwriting.
func (s *LifecycleService) Transition(jobID uint, from, to models.JobStatus) error {
	return s.transition(s.db, jobID, from, to)
}

// TransitionTx is Transition inside a caller-provided transaction.
func (s *LifecycleService) TransitionTx(tx *gorm.DB, jobID uint, from, to models.JobStatus) error {
	return s.transition(tx, jobID, from, to)
}

func (s *LifecycleService) transition(tx *gorm.DB, jobID uint, from, to models.JobStatus) error {
	if err := ValidateTransition(from, to); err != nil {
		return err
	}

	updates := map[string]interface{}{"status": to, "updated_at": time.Now()}
	switch to {
	case models.JobStatusCanceled:
		updates["canceled_at"] = time.Now()
	case models.JobStatusCompleted:
		updates["completed_at"] = time.Now()
	}

	res := tx.Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// The read-time status no longer matches: either the job vanished or
		// a concurrent writer advanced it first.
		var current models.Job
		if err := tx.Select("status").First(&current, jobID).Error; err != nil {
			return ErrNotFound
		}
		return &InvalidTransitionError{From: current.Status, To: to}
	}

	log.Printf("🔄 Job %d transitioned %s → %s", jobID, from, to)
	return nil
}

// CurrentStatus loads a job's status, for callers that need a read-time
// snapshot before requesting a transition.
func (s *LifecycleService) CurrentStatus(jobID uint) (models.JobStatus, error) {
	var job models.Job
	if err := s.db.Select("status").First(&job, jobID).Error; err != nil {
		return "", ErrNotFound
	}
	return job.Status, nil
}
