package models

import (
	"time"
)

// BidStatus represents the resolution state of a bid
type BidStatus string

const (
	BidStatusSubmitted BidStatus = "submitted"
	BidStatusAccepted  BidStatus = "accepted"
	BidStatusRejected  BidStatus = "rejected"
)

// Bid represents a provider's priced, timed offer against an open job.
// At most one bid per provider per job; the job's bid collection is the
// single authoritative store.
type Bid struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	JobID      uint `json:"job_id" gorm:"not null;uniqueIndex:idx_bids_job_provider"`
	ProviderID uint `json:"provider_id" gorm:"not null;uniqueIndex:idx_bids_job_provider"`

	Amount     float64   `json:"amount" gorm:"type:decimal(10,2);not null"`
	ETAMinutes int       `json:"eta_minutes" gorm:"not null"`
	Message    string    `json:"message" gorm:"type:text"`
	Status     BidStatus `json:"status" gorm:"type:varchar(16);not null;default:'submitted';index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Job      Job      `json:"job,omitempty" gorm:"foreignKey:JobID"`
	Provider Provider `json:"provider,omitempty" gorm:"foreignKey:ProviderID"`
}

// BidCreate represents the request structure for submitting or updating a bid
type BidCreate struct {
	Amount     float64 `json:"amount" binding:"required,gt=0"`
	ETAMinutes int     `json:"eta_minutes" binding:"required,gt=0"`
	Message    string  `json:"message"`
}
