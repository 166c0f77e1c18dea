package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/phonegate/internal/models"
	"github.com/charlesng35/phonegate/pkg/crypto"
	apperrors "github.com/charlesng35/phonegate/pkg/errors"
	"github.com/charlesng35/phonegate/pkg/logger"
)

const (
	defaultInviteKeyBytes = 9
	maxMintAttempts       = 5
)

// InviteOption customises InviteService behaviour.
type InviteOption func(*InviteService)

// WithInviteKeySize adjusts the random key length in bytes.
func WithInviteKeySize(size int) InviteOption {
	return func(s *InviteService) {
		if size > 0 {
			s.keyLength = size
		}
	}
}

// WithInviteLogger overrides the service logger, primarily for testing.
func WithInviteLogger(log *zap.Logger) InviteOption {
	return func(s *InviteService) {
		if log != nil {
			s.log = log
		}
	}
}

// InviteService owns the invite ledger: one key minted per account at
// creation time, redeemable once by exactly one other account.
type InviteService struct {
	db        *gorm.DB
	keyLength int
	log       *zap.Logger
}

// NewInviteService constructs an InviteService with the provided dependencies.
func NewInviteService(db *gorm.DB, opts ...InviteOption) (*InviteService, error) {
	if db == nil {
		return nil, errors.New("invite service: db is required")
	}

	service := &InviteService{
		db:        db,
		keyLength: defaultInviteKeyBytes,
		log:       logger.WithModule("invite"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// MintFor creates the account's invite key inside the supplied transaction.
// Key values are regenerated on collision a bounded number of times; running
// out of attempts means the key space is exhausted, which is an internal
// invariant violation rather than a user error.
func (s *InviteService) MintFor(tx *gorm.DB, accountID string) (*models.InviteKey, error) {
	if tx == nil {
		tx = s.db
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, errors.New("invite service: account id is required")
	}

	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		value, err := crypto.GenerateToken(s.keyLength)
		if err != nil {
			return nil, fmt.Errorf("invite service: generate key: %w", err)
		}

		key := &models.InviteKey{
			AccountID: accountID,
			Key:       value,
		}

		err = tx.Create(key).Error
		if err == nil {
			return key, nil
		}
		if !isUniqueConstraintError(err) {
			return nil, fmt.Errorf("invite service: create key: %w", err)
		}

		// A collision on account_id means a key was already minted for this
		// account; surface that instead of retrying the key value.
		var existing models.InviteKey
		if lookupErr := tx.Where("account_id = ?", accountID).First(&existing).Error; lookupErr == nil {
			return nil, fmt.Errorf("invite service: key already minted for account %s", accountID)
		}
	}

	s.log.Fatal("invite key space exhausted after repeated collisions",
		zap.String("account_id", accountID),
		zap.Int("attempts", maxMintAttempts),
	)
	return nil, errors.New("invite service: key space exhausted") // unreachable
}

// KeyFor returns the invite key owned by the account.
func (s *InviteService) KeyFor(ctx context.Context, accountID string) (*models.InviteKey, error) {
	var key models.InviteKey
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInviteKeyNotFound
		}
		return nil, fmt.Errorf("invite service: find key: %w", err)
	}
	return &key, nil
}

// Redeem records that the account entered another account's invite key.
// Checks run in a fixed order: a prior redemption wins over everything,
// self-redemption is compared by key value, and only then is the key looked
// up. The final write is conditional on invite_id still being unset so two
// concurrent redemptions cannot both land.
func (s *InviteService) Redeem(ctx context.Context, account *models.Account, keyValue string) (*models.InviteKey, error) {
	if account == nil || account.ID == "" {
		return nil, errors.New("invite service: account is required")
	}

	keyValue = strings.TrimSpace(keyValue)
	if keyValue == "" {
		return nil, apperrors.NewValidation("invite code is required")
	}

	if account.InviteID != nil {
		return nil, apperrors.ErrInviteAlreadyRedeemed
	}

	own := account.InviteKey
	if own == nil {
		// The account's own key may not be loaded; fetch it for the value
		// comparison. A missing row is tolerated, the self check just skips.
		if key, err := s.KeyFor(ctx, account.ID); err == nil {
			own = key
		}
	}
	if own != nil && own.Key == keyValue {
		return nil, apperrors.ErrInviteSelfRedemption
	}

	var key models.InviteKey
	err := s.db.WithContext(ctx).Where("key = ?", keyValue).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInviteKeyNotFound
		}
		return nil, fmt.Errorf("invite service: find key: %w", err)
	}

	result := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ? AND invite_id IS NULL", account.ID).
		Update("invite_id", key.ID)
	if result.Error != nil {
		return nil, fmt.Errorf("invite service: record redemption: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrInviteAlreadyRedeemed
	}

	account.InviteID = &key.ID
	account.Invite = &key
	return &key, nil
}
