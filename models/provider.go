package models

import (
	"time"

	"gorm.io/gorm"
)

// ServiceType represents the kind of roadside work a provider offers
type ServiceType string

const (
	ServiceTowing         ServiceType = "towing"
	ServiceTireChange     ServiceType = "tire_change"
	ServiceJumpStart      ServiceType = "jump_start"
	ServiceLockout        ServiceType = "lockout"
	ServiceFuelDelivery   ServiceType = "fuel_delivery"
	ServiceMobileMechanic ServiceType = "mobile_mechanic"
	ServiceWinchOut       ServiceType = "winch_out"
	ServiceShopRepair     ServiceType = "shop_repair"
)

// GetServiceTypes returns all supported service types
func GetServiceTypes() []ServiceType {
	return []ServiceType{
		ServiceTowing,
		ServiceTireChange,
		ServiceJumpStart,
		ServiceLockout,
		ServiceFuelDelivery,
		ServiceMobileMechanic,
		ServiceWinchOut,
		ServiceShopRepair,
	}
}

// Provider represents a business account (shop, mobile mechanic, towing company)
// that can bid on and be assigned jobs.
type Provider struct {
	ID           uint     `json:"id" gorm:"primaryKey"`
	OwnerUserID  uint     `json:"owner_user_id" gorm:"uniqueIndex;not null"`
	BusinessName string   `json:"business_name" gorm:"size:255;not null"`
	PhoneNumber  string   `json:"phone_number" gorm:"type:varchar(20);not null"`
	City         string   `json:"city" gorm:"type:varchar(100);not null"`
	Address      string   `json:"address" gorm:"type:text"`
	Services     string   `json:"services" gorm:"type:text;not null"` // comma-separated ServiceType values
	Description  string   `json:"description" gorm:"type:text"`
	BaseLat      *float64 `json:"base_lat" gorm:"type:decimal(10,8)"`
	BaseLng      *float64 `json:"base_lng" gorm:"type:decimal(11,8)"`

	IsAvailable   bool    `json:"is_available" gorm:"default:true"`
	IsVerified    bool    `json:"is_verified" gorm:"default:false"`
	CompletedJobs int     `json:"completed_jobs" gorm:"default:0"`
	Rating        float64 `json:"rating" gorm:"type:decimal(3,2);default:0"`
	TotalReviews  int     `json:"total_reviews" gorm:"default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	// Relationships
	Owner User `json:"owner,omitempty" gorm:"foreignKey:OwnerUserID"`
}

// ProviderCreate represents the request structure for registering a provider account
type ProviderCreate struct {
	BusinessName string   `json:"business_name" binding:"required,min=2,max=255"`
	PhoneNumber  string   `json:"phone_number" binding:"required"`
	City         string   `json:"city" binding:"required"`
	Address      string   `json:"address"`
	Services     []string `json:"services" binding:"required,min=1"`
	Description  string   `json:"description"`
	BaseLat      *float64 `json:"base_lat"`
	BaseLng      *float64 `json:"base_lng"`
}
