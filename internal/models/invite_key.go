package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InviteKey is minted exactly once per account at account-creation time and
// stays owned by that account for its whole lifetime.
type InviteKey struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID string `gorm:"uniqueIndex;type:uuid;not null" json:"account_id"`
	Key       string `gorm:"uniqueIndex;not null" json:"key"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (k *InviteKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}
