package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleCustomer   UserRole = "customer"
	RoleProvider   UserRole = "provider"
	RoleDispatcher UserRole = "dispatcher"
	RoleAdmin      UserRole = "admin"
)

type User struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	FullName          string    `json:"full_name" gorm:"size:255;not null"`
	PhoneNumber       string    `json:"phone_number" gorm:"size:20;uniqueIndex;not null"`
	PasswordHash      string    `json:"-" gorm:"size:255;not null"` // Hidden from JSON
	Role              UserRole  `json:"role" gorm:"type:varchar(20);not null;default:'customer';check:role IN ('customer','provider','dispatcher','admin')"`
	ProviderID        *uint     `json:"provider_id"` // set for provider owners and their staff
	ProfilePictureURL *string   `json:"profile_picture_url" gorm:"size:255"`
	IsActive          bool      `json:"is_active" gorm:"default:true"`
	CreatedAt         time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Provider *Provider `json:"provider,omitempty" gorm:"foreignKey:ProviderID"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate is a GORM hook that runs before creating a user
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleCustomer
	}
	return nil
}

// IsValidRole checks if the user role is valid
func (u *User) IsValidRole() bool {
	switch u.Role {
	case RoleCustomer, RoleProvider, RoleDispatcher, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsProvider checks if the user belongs to a provider account (owner or staff)
func (u *User) IsProvider() bool {
	return u.Role == RoleProvider
}

// IsStaff checks if the user can act on behalf of customers (dispatch staff or admin)
func (u *User) IsStaff() bool {
	return u.Role == RoleDispatcher || u.Role == RoleAdmin
}

// IsAdmin checks if the user is an admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsCustomer checks if the user is a customer
func (u *User) IsCustomer() bool {
	return u.Role == RoleCustomer
}
