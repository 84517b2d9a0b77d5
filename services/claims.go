package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"roadside-assist-server/models"
)

// ClaimService binds ghost jobs (created by dispatch staff on behalf of an
// unauthenticated customer) to real accounts through a single-use,
// time-boxed token. Only the token's SHA-256 hash is stored; the raw value
// is returned once, embedded in the claim link sent to the customer.
type ClaimService struct {
	db         *gorm.DB
	tokenTTL   time.Duration
	dispatcher *NotificationDispatcher
}

// NewClaimService creates a new claim service
func NewClaimService(db *gorm.DB, tokenTTL time.Duration, dispatcher *NotificationDispatcher) *ClaimService {
	return &ClaimService{db: db, tokenTTL: tokenTTL, dispatcher: dispatcher}
}

// CreateClaimToken issues a fresh claim token for an unclaimed ghost job.
// Re-issuing replaces any previous token.
func (s *ClaimService) CreateClaimToken(jobID uint) (token string, expiresAt time.Time, err error) {
	token = uuid.NewString()
	expiresAt = time.Now().Add(s.tokenTTL)

	res := s.db.Model(&models.Job{}).
		Where("id = ? AND claim_status = ? AND status = ?",
			jobID, models.ClaimStatusUnclaimed, models.JobStatusPendingClaim).
		Updates(map[string]interface{}{
			"claim_token_hash": hashClaimToken(token),
			"claim_expires_at": expiresAt,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return "", time.Time{}, res.Error
	}
	if res.RowsAffected == 0 {
		// The guard missed: the job vanished, someone claimed it, or it
		// left the claim-pending state. Re-read to name the reason.
		var job models.Job
		if err := s.db.First(&job, jobID).Error; err != nil {
			return "", time.Time{}, ErrNotFound
		}
		if job.ClaimStatus == models.ClaimStatusClaimed {
			return "", time.Time{}, ErrAlreadyClaimed
		}
		return "", time.Time{}, &InvalidTransitionError{From: job.Status, To: models.JobStatusPendingClaim}
	}

	log.Printf("🔑 Claim token issued for job %d (expires %s)", jobID, expiresAt.Format(time.RFC3339))
	return token, expiresAt, nil
}

// ClaimJob consumes a claim token, binding the authenticated account to the
// ghost job and moving it into the open state. The token is single-use: the
// compare-and-set on claim_status guarantees at most one winner under
// concurrent attempts.
func (s *ClaimService) ClaimJob(jobID uint, token string, userID uint) (*models.Job, error) {
	var job models.Job

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&job, jobID).Error; err != nil {
			return ErrNotFound
		}
		if job.ClaimStatus == models.ClaimStatusClaimed {
			return ErrAlreadyClaimed
		}
		if job.ClaimTokenHash == "" || job.ClaimTokenHash != hashClaimToken(token) {
			return ErrTokenInvalid
		}
		if job.ClaimExpiresAt == nil || time.Now().After(*job.ClaimExpiresAt) {
			return ErrTokenExpired
		}

		now := time.Now()
		res := tx.Model(&models.Job{}).
			Where("id = ? AND claim_status = ? AND status = ?",
				jobID, models.ClaimStatusUnclaimed, models.JobStatusPendingClaim).
			Updates(map[string]interface{}{
				"customer_id":  userID,
				"claim_status": models.ClaimStatusClaimed,
				"claimed_at":   now,
				"status":       models.JobStatusOpen,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// A concurrent claim raced ahead of us.
			return ErrAlreadyClaimed
		}

		return tx.First(&job, jobID).Error
	})
	if txErr != nil {
		return nil, txErr
	}

	s.dispatcher.Dispatch(userID, models.NotificationJobClaimed,
		"Job linked to your account",
		fmt.Sprintf("Roadside request #%d is now yours and is open for bids.", jobID),
		&job.ID)

	log.Printf("✅ Job %d claimed by user %d", jobID, userID)
	return &job, nil
}

func hashClaimToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
