package jobs

import (
	"log"
	"time"

	"roadside-assist-server/database"
	"roadside-assist-server/models"
)

// ExpirationJob sweeps jobs that have outlived their useful window: ghost
// jobs whose claim link expired without being claimed, and open jobs nobody
// bid on for days.
type ExpirationJob struct {
	interval      time.Duration
	openJobMaxAge time.Duration
	stopChan      chan bool
}

// NewExpirationJob creates a new expiration job
func NewExpirationJob() *ExpirationJob {
	return &ExpirationJob{
		interval:      time.Minute,
		openJobMaxAge: 7 * 24 * time.Hour,
		stopChan:      make(chan bool),
	}
}

// Start begins the expiration job
func (j *ExpirationJob) Start() {
	go j.run()
	log.Println("🚀 Expiration job started")
}

// Stop stops the expiration job
func (j *ExpirationJob) Stop() {
	j.stopChan <- true
	log.Println("🛑 Expiration job stopped")
}

func (j *ExpirationJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweepExpiredClaims()
			j.sweepStaleOpenJobs()
		case <-j.stopChan:
			return
		}
	}
}

// sweepExpiredClaims cancels unclaimed ghost jobs whose claim link expired.
// The WHERE clause repeats the status checks so a claim racing the sweep
// wins cleanly.
func (j *ExpirationJob) sweepExpiredClaims() {
	now := time.Now()

	result := database.DB.Model(&models.Job{}).
		Where("status = ? AND claim_status = ? AND claim_expires_at IS NOT NULL AND claim_expires_at <= ?",
			models.JobStatusPendingClaim, models.ClaimStatusUnclaimed, now).
		Updates(map[string]interface{}{
			"status":      models.JobStatusCanceled,
			"canceled_at": now,
		})

	if result.Error != nil {
		log.Printf("❌ Error sweeping expired claims: %v", result.Error)
		return
	}

	if result.RowsAffected > 0 {
		log.Printf("⏰ Canceled %d ghost jobs with expired claim links", result.RowsAffected)
	}
}

// sweepStaleOpenJobs cancels jobs that sat open or bidding with no
// assignment for too long
func (j *ExpirationJob) sweepStaleOpenJobs() {
	now := time.Now()
	cutoff := now.Add(-j.openJobMaxAge)

	result := database.DB.Model(&models.Job{}).
		Where("status IN ? AND provider_id IS NULL AND created_at <= ?",
			[]models.JobStatus{models.JobStatusOpen, models.JobStatusBidding}, cutoff).
		Updates(map[string]interface{}{
			"status":      models.JobStatusCanceled,
			"canceled_at": now,
		})

	if result.Error != nil {
		log.Printf("❌ Error sweeping stale open jobs: %v", result.Error)
		return
	}

	if result.RowsAffected > 0 {
		log.Printf("⏰ Canceled %d stale open jobs", result.RowsAffected)
	}
}
