package models

import (
	"time"

	"gorm.io/gorm"
)

// JobStatus represents the current status of a roadside job
type JobStatus string

const (
	// Ghost-job prefix: created by dispatch staff on behalf of an
	// unauthenticated customer, waiting for the claim link to be used.
	JobStatusPendingClaim JobStatus = "pending_customer_claim"

	JobStatusOpen              JobStatus = "open"
	JobStatusBidding           JobStatus = "bidding"
	JobStatusPendingProvider   JobStatus = "pending_provider_confirmation"
	JobStatusPendingCustomer   JobStatus = "pending_customer_confirmation"
	JobStatusAssigned          JobStatus = "assigned"
	JobStatusEnroute           JobStatus = "enroute"
	JobStatusOnSite            JobStatus = "on_site"
	JobStatusInProgress        JobStatus = "in_progress"
	JobStatusCompleted         JobStatus = "completed"
	JobStatusCanceled          JobStatus = "canceled"
)

// jobStatusRanks orders the lifecycle. A forward transition is one whose
// target rank is strictly greater than the current rank. Canceled sits
// outside the ordering and is reachable from any non-terminal state.
var jobStatusRanks = map[JobStatus]int{
	JobStatusPendingClaim:    0,
	JobStatusOpen:            1,
	JobStatusBidding:         2,
	JobStatusPendingProvider: 3,
	JobStatusPendingCustomer: 4,
	JobStatusAssigned:        5,
	JobStatusEnroute:         6,
	JobStatusOnSite:          7,
	JobStatusInProgress:      8,
	JobStatusCompleted:       9,
}

// Rank returns the lifecycle rank of a status, or -1 for canceled/unknown.
func (s JobStatus) Rank() int {
	if rank, ok := jobStatusRanks[s]; ok {
		return rank
	}
	return -1
}

// IsValid checks that the status belongs to the canonical enumeration
func (s JobStatus) IsValid() bool {
	return s == JobStatusCanceled || s.Rank() >= 0
}

// IsTerminal reports whether no further transitions are allowed
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusCanceled
}

// CanAcceptBids reports whether bids may still be submitted or accepted
func (s JobStatus) CanAcceptBids() bool {
	return s == JobStatusOpen || s == JobStatusBidding
}

// ClaimStatus tracks whether a ghost job has been bound to a customer account
type ClaimStatus string

const (
	ClaimStatusUnclaimed ClaimStatus = "unclaimed"
	ClaimStatusClaimed   ClaimStatus = "claimed"
)

// Job represents a roadside service request, the root aggregate of the
// bidding workflow.
type Job struct {
	ID              uint  `json:"id" gorm:"primaryKey"`
	CreatedByUserID uint  `json:"created_by_user_id" gorm:"not null"`
	// CustomerID is null for ghost jobs until the claim succeeds.
	CustomerID *uint `json:"customer_id" gorm:"index"`

	// Assignment. ProviderID is set exactly once per accepted-bid cycle.
	ProviderID         *uint `json:"provider_id" gorm:"index"`
	AssignedBidID      *uint `json:"assigned_bid_id"`
	AssignedEmployeeID *uint `json:"assigned_employee_id"`

	Status JobStatus `json:"status" gorm:"type:varchar(32);not null;index"`

	ServiceType     ServiceType `json:"service_type" gorm:"type:varchar(32);not null"`
	Notes           string      `json:"notes" gorm:"type:text"`
	Priority        string      `json:"priority" gorm:"type:varchar(20);not null;default:'normal'"` // low, normal, high, urgent
	IsEmergency     bool        `json:"is_emergency" gorm:"default:false"`
	PickupAddress   string      `json:"pickup_address" gorm:"type:text;not null"`
	PickupLat       *float64    `json:"pickup_lat" gorm:"type:decimal(10,8)"`
	PickupLng       *float64    `json:"pickup_lng" gorm:"type:decimal(11,8)"`
	DropoffAddress  string      `json:"dropoff_address" gorm:"type:text"` // towing only
	DropoffLat      *float64    `json:"dropoff_lat" gorm:"type:decimal(10,8)"`
	DropoffLng      *float64    `json:"dropoff_lng" gorm:"type:decimal(11,8)"`
	VehicleInfo     string      `json:"vehicle_info" gorm:"type:varchar(255)"`
	MileageMeters   *float64    `json:"mileage_meters"` // pickup-to-dropoff driving distance, nil when routing unavailable
	DurationSeconds *float64    `json:"duration_seconds"`

	// Contact details captured by dispatch for ghost jobs, so the claim
	// link can reach a customer who has no account yet.
	ContactName  string `json:"contact_name" gorm:"type:varchar(255)"`
	ContactPhone string `json:"contact_phone" gorm:"type:varchar(20)"`

	// Claim metadata, only meaningful while CustomerID is null at creation.
	ClaimStatus    ClaimStatus `json:"claim_status" gorm:"type:varchar(16);not null;default:'claimed'"`
	ClaimTokenHash string      `json:"-" gorm:"size:64;index"`
	ClaimExpiresAt *time.Time  `json:"claim_expires_at"`
	ClaimedAt      *time.Time  `json:"claimed_at"`

	CanceledAt  *time.Time `json:"canceled_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	// Relationships
	Customer         *User     `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Provider         *Provider `json:"provider,omitempty" gorm:"foreignKey:ProviderID"`
	AssignedEmployee *User     `json:"assigned_employee,omitempty" gorm:"foreignKey:AssignedEmployeeID"`
	Bids             []Bid     `json:"bids,omitempty" gorm:"foreignKey:JobID"`
}

// JobCreate represents the request structure for a customer-created job
type JobCreate struct {
	ServiceType    string   `json:"service_type" binding:"required"`
	Notes          string   `json:"notes"`
	Priority       string   `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
	IsEmergency    bool     `json:"is_emergency"`
	PickupAddress  string   `json:"pickup_address" binding:"required"`
	PickupLat      *float64 `json:"pickup_lat"`
	PickupLng      *float64 `json:"pickup_lng"`
	DropoffAddress string   `json:"dropoff_address"`
	DropoffLat     *float64 `json:"dropoff_lat"`
	DropoffLng     *float64 `json:"dropoff_lng"`
	VehicleInfo    string   `json:"vehicle_info"`
}

// GhostJobCreate represents the request structure for a dispatcher-created
// job on behalf of a customer who has no account yet.
type GhostJobCreate struct {
	JobCreate
	CustomerName  string `json:"customer_name" binding:"required"`
	CustomerPhone string `json:"customer_phone" binding:"required"`
}

// JobStatusUpdate represents a guarded status transition request
type JobStatusUpdate struct {
	Status string `json:"status" binding:"required"`
}
