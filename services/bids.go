package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"roadside-assist-server/models"
)

// BidService owns the bid store and the bid resolution protocol. All
// accept/reject decisions for a job commit as a single transaction so that
// concurrent accepts serialize and the loser observes a clean rejection.
type BidService struct {
	db         *gorm.DB
	dispatcher *NotificationDispatcher
}

// NewBidService creates a new bid service
func NewBidService(db *gorm.DB, dispatcher *NotificationDispatcher) *BidService {
	return &BidService{
		db:         db,
		dispatcher: dispatcher,
	}
}

// AcceptResult describes the outcome of a bid acceptance
type AcceptResult struct {
	Job            models.Job `json:"job"`
	AcceptedBid    models.Bid `json:"accepted_bid"`
	RejectedBidIDs []uint     `json:"rejected_bid_ids"`
	Replayed       bool       `json:"replayed"` // true when this call was an idempotent no-op
}

// SubmitBid creates or updates a provider's bid on a job. A provider holds
// at most one bid per job; re-submitting while still unresolved replaces the
// offer in place.
func (s *BidService) SubmitBid(jobID, providerID uint, req models.BidCreate) (*models.Bid, error) {
	var bid models.Bid
	var customerID *uint

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		var job models.Job
		if err := tx.First(&job, jobID).Error; err != nil {
			return ErrNotFound
		}
		if !job.Status.CanAcceptBids() {
			return ErrJobNotBiddable
		}
		customerID = job.CustomerID

		err := tx.Where("job_id = ? AND provider_id = ?", jobID, providerID).First(&bid).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			bid = models.Bid{
				JobID:      jobID,
				ProviderID: providerID,
				Amount:     req.Amount,
				ETAMinutes: req.ETAMinutes,
				Message:    req.Message,
				Status:     models.BidStatusSubmitted,
			}
			if err := tx.Create(&bid).Error; err != nil {
				return fmt.Errorf("failed to create bid: %w", err)
			}
		case err != nil:
			return err
		default:
			if bid.Status != models.BidStatusSubmitted {
				return ErrBidAlreadyResolved
			}
			bid.Amount = req.Amount
			bid.ETAMinutes = req.ETAMinutes
			bid.Message = req.Message
			if err := tx.Save(&bid).Error; err != nil {
				return fmt.Errorf("failed to update bid: %w", err)
			}
		}

		// Guarded write on the job row is the authoritative biddability
		// check: it also pulls the job out of open on the first bid. A
		// concurrent accept either committed before us (zero rows, the bid
		// rolls back) or waits on the row lock and rejects this bid with the
		// other siblings.
		res := tx.Model(&models.Job{}).
			Where("id = ? AND status IN ? AND provider_id IS NULL",
				jobID, []models.JobStatus{models.JobStatusOpen, models.JobStatusBidding}).
			Updates(map[string]interface{}{"status": models.JobStatusBidding, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrJobNotBiddable
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if customerID != nil {
		s.dispatcher.Dispatch(*customerID, models.NotificationNewBid,
			"New bid received",
			fmt.Sprintf("A provider offered $%.2f with an ETA of %d minutes.", bid.Amount, bid.ETAMinutes),
			&jobID)
	}

	return &bid, nil
}

// ListBids returns all bids under a job, newest first
func (s *BidService) ListBids(jobID uint) ([]models.Bid, error) {
	var job models.Job
	if err := s.db.First(&job, jobID).Error; err != nil {
		return nil, ErrNotFound
	}

	var bids []models.Bid
	if err := s.db.Where("job_id = ?", jobID).
		Preload("Provider").
		Order("created_at DESC").
		Find(&bids).Error; err != nil {
		return nil, err
	}
	return bids, nil
}

// AcceptBid resolves a job's bidding round: exactly one bid becomes
// accepted, every sibling becomes rejected, and the job is assigned to the
// winning provider. The writes commit atomically; a concurrent accept for a
// different bid loses the compare-and-set and gets ErrBidAlreadyResolved.
// Repeating a successful call with the same arguments is a no-op that
// returns the original outcome.
func (s *BidService) AcceptBid(jobID, bidID uint, actor *models.User) (*AcceptResult, error) {
	var result AcceptResult

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		var job models.Job
		if err := tx.First(&job, jobID).Error; err != nil {
			return ErrNotFound
		}

		if !canResolveBids(&job, actor) {
			return ErrPermissionDenied
		}

		// Idempotent replay: this exact bid already won. Rebuild the
		// original payload, rejected siblings included.
		if job.AssignedBidID != nil && *job.AssignedBidID == bidID {
			var bid models.Bid
			if err := tx.First(&bid, bidID).Error; err != nil {
				return ErrBidNotFound
			}
			var rejectedIDs []uint
			if err := tx.Model(&models.Bid{}).
				Where("job_id = ? AND status = ?", jobID, models.BidStatusRejected).
				Order("id").
				Pluck("id", &rejectedIDs).Error; err != nil {
				return err
			}
			result = AcceptResult{Job: job, AcceptedBid: bid, RejectedBidIDs: rejectedIDs, Replayed: true}
			return nil
		}

		if !job.Status.CanAcceptBids() || job.ProviderID != nil {
			return ErrJobNotBiddable
		}

		var bid models.Bid
		if err := tx.Where("id = ? AND job_id = ?", bidID, jobID).First(&bid).Error; err != nil {
			return ErrBidNotFound
		}
		if bid.Status != models.BidStatusSubmitted {
			return ErrBidAlreadyResolved
		}

		// Compare-and-set on the job aggregate: accept iff the read-time
		// status still holds and nobody has been assigned meanwhile.
		now := time.Now()
		res := tx.Model(&models.Job{}).
			Where("id = ? AND status IN ? AND provider_id IS NULL",
				jobID, []models.JobStatus{models.JobStatusOpen, models.JobStatusBidding}).
			Updates(map[string]interface{}{
				"status":          models.JobStatusAssigned,
				"provider_id":     bid.ProviderID,
				"assigned_bid_id": bid.ID,
				"updated_at":      now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBidAlreadyResolved
		}

		if err := tx.Model(&models.Bid{}).
			Where("id = ? AND status = ?", bid.ID, models.BidStatusSubmitted).
			Updates(map[string]interface{}{"status": models.BidStatusAccepted, "updated_at": now}).Error; err != nil {
			return err
		}

		var siblings []models.Bid
		if err := tx.Where("job_id = ? AND id <> ? AND status = ?",
			jobID, bid.ID, models.BidStatusSubmitted).
			Order("id").
			Find(&siblings).Error; err != nil {
			return err
		}
		if len(siblings) > 0 {
			if err := tx.Model(&models.Bid{}).
				Where("job_id = ? AND id <> ? AND status = ?", jobID, bid.ID, models.BidStatusSubmitted).
				Updates(map[string]interface{}{"status": models.BidStatusRejected, "updated_at": now}).Error; err != nil {
				return err
			}
		}

		if err := tx.First(&job, jobID).Error; err != nil {
			return err
		}
		bid.Status = models.BidStatusAccepted
		result.Job = job
		result.AcceptedBid = bid
		for _, sibling := range siblings {
			result.RejectedBidIDs = append(result.RejectedBidIDs, sibling.ID)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if !result.Replayed {
		s.notifyResolution(&result)
	}
	return &result, nil
}

// notifyResolution fans out bid_accepted / bid_rejected / status_update
// notifications after the transaction has committed. Delivery failures are
// logged; they never undo the assignment.
func (s *BidService) notifyResolution(result *AcceptResult) {
	jobID := result.Job.ID

	if ownerID, err := s.providerOwner(result.AcceptedBid.ProviderID); err == nil {
		s.dispatcher.Dispatch(ownerID, models.NotificationBidAccepted,
			"Your bid was accepted",
			fmt.Sprintf("Your $%.2f offer on job #%d was accepted. You are now assigned.", result.AcceptedBid.Amount, jobID),
			&jobID)
	} else {
		log.Printf("⚠️ Could not resolve owner of provider %d: %v", result.AcceptedBid.ProviderID, err)
	}

	var rejected []models.Bid
	if len(result.RejectedBidIDs) > 0 {
		if err := s.db.Where("id IN ?", result.RejectedBidIDs).Find(&rejected).Error; err != nil {
			log.Printf("⚠️ Could not load rejected bids for job %d: %v", jobID, err)
		}
	}
	for _, bid := range rejected {
		ownerID, err := s.providerOwner(bid.ProviderID)
		if err != nil {
			log.Printf("⚠️ Could not resolve owner of provider %d: %v", bid.ProviderID, err)
			continue
		}
		s.dispatcher.Dispatch(ownerID, models.NotificationBidRejected,
			"Bid not selected",
			fmt.Sprintf("The customer chose another provider for job #%d.", jobID),
			&jobID)
	}

	if result.Job.CustomerID != nil {
		s.dispatcher.Dispatch(*result.Job.CustomerID, models.NotificationStatusUpdate,
			"Provider assigned",
			fmt.Sprintf("Job #%d has been assigned to your chosen provider.", jobID),
			&jobID)
	}
}

func (s *BidService) providerOwner(providerID uint) (uint, error) {
	var provider models.Provider
	if err := s.db.Select("owner_user_id").First(&provider, providerID).Error; err != nil {
		return 0, err
	}
	return provider.OwnerUserID, nil
}

// canResolveBids allows the owning customer or dispatch staff to resolve a
// job's bidding round.
func canResolveBids(job *models.Job, actor *models.User) bool {
	if actor == nil {
		return false
	}
	if actor.IsStaff() {
		return true
	}
	return job.CustomerID != nil && *job.CustomerID == actor.ID
}
