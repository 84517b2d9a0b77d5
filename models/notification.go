package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationType enumerates the events that produce an inbox entry
type NotificationType string

const (
	NotificationNewBid       NotificationType = "new_bid"
	NotificationBidAccepted  NotificationType = "bid_accepted"
	NotificationBidRejected  NotificationType = "bid_rejected"
	NotificationStatusUpdate NotificationType = "status_update"
	NotificationJobClaimed   NotificationType = "job_claimed"
	NotificationSystem       NotificationType = "system"
)

// Notification is an in-app inbox entry. Rows are only ever mutated to flip
// the read flag; cleanup is manual.
type Notification struct {
	ID     uint             `json:"id" gorm:"primaryKey"`
	UserID uint             `json:"user_id" gorm:"not null;index"`
	Type   NotificationType `json:"type" gorm:"type:varchar(32);not null"`
	Title  string           `json:"title" gorm:"not null"`
	Body   string           `json:"body" gorm:"not null"`
	JobID  *uint            `json:"job_id" gorm:"index"`
	Read   bool             `json:"read" gorm:"default:false"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Relations
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Job  *Job `json:"job,omitempty" gorm:"foreignKey:JobID"`
}

type PushToken struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	UserID   uint   `json:"user_id" gorm:"not null"`
	Token    string `json:"token" gorm:"not null;unique"`
	Platform string `json:"platform" gorm:"not null"` // ios, android
	DeviceID string `json:"device_id"`
	Active   bool   `json:"active" gorm:"default:true"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Relations
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
