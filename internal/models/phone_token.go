package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PhoneToken is a one-time passcode issued for a phone number. Several pending
// tokens may coexist for the same number; consumption matches the exact
// (phone_number, otp) pair. Used flips false to true exactly once and is never
// reset. Rows are not deleted by the verification flow; the maintenance job
// purges stale ones.
type PhoneToken struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	PhoneNumber string `gorm:"index;not null" json:"phone_number"`
	OTP         string `gorm:"not null" json:"otp"`
	Used        bool   `gorm:"default:false" json:"used"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (p *PhoneToken) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
