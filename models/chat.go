package models

import (
	"time"
)

// ChatRoom represents the conversation between a job's customer and its
// assigned provider. One room per job, created when the job is assigned.
type ChatRoom struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	JobID      uint `json:"job_id" gorm:"uniqueIndex;not null"`
	CustomerID uint `json:"customer_id" gorm:"not null"`
	ProviderID uint `json:"provider_id" gorm:"not null"`

	LastMessageAt   *time.Time `json:"last_message_at"`
	LastMessageText string     `json:"last_message_text"`
	IsActive        bool       `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Job      Job      `json:"job,omitempty" gorm:"foreignKey:JobID"`
	Customer User     `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Provider Provider `json:"provider,omitempty" gorm:"foreignKey:ProviderID"`
}

// ChatMessage represents a single message in a chat room
type ChatMessage struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	ChatRoomID uint   `json:"chat_room_id" gorm:"not null;index"`
	SenderID   uint   `json:"sender_id" gorm:"not null"`
	SenderType string `json:"sender_type" gorm:"not null"` // "customer" or "provider"
	Content    string `json:"content" gorm:"type:text;not null"`

	IsRead bool       `json:"is_read" gorm:"default:false"`
	ReadAt *time.Time `json:"read_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessageCreate represents the request structure for sending a message
type ChatMessageCreate struct {
	Content string `json:"content" binding:"required,max=4000"`
}
