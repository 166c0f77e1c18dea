package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account describes an identity provisioned from a verified phone number.
// Accounts are only ever created by the provisioning path after a successful
// OTP verification; there is no separate registration endpoint.
type Account struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	PhoneNumber string `gorm:"uniqueIndex;not null" json:"phone_number"`
	Password    string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`

	IsStaff  bool `gorm:"default:false" json:"is_staff"`
	IsActive bool `gorm:"default:true" json:"is_active"`

	// InviteKey is the key this account owns and hands out to others.
	InviteKey *InviteKey `gorm:"foreignKey:AccountID" json:"invite_key,omitempty"`

	// InviteID references the other account's key this account redeemed.
	// Once set it is never cleared or overwritten.
	InviteID *string    `gorm:"type:uuid" json:"-"`
	Invite   *InviteKey `gorm:"foreignKey:InviteID" json:"invite,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
