package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/phonegate/internal/models"
	"github.com/charlesng35/phonegate/pkg/crypto"
	apperrors "github.com/charlesng35/phonegate/pkg/errors"
)

const (
	randomSecretBytes    = 24
	maxProvisionAttempts = 5
)

// UpdateAccountInput enumerates mutable profile attributes.
type UpdateAccountInput struct {
	FirstName *string
	LastName  *string
	Email     *string
}

// AccountService provisions identities from verified phone numbers and
// manages profile updates. GetOrCreate is the only account-creation path in
// the system.
type AccountService struct {
	db      *gorm.DB
	invites *InviteService
}

// NewAccountService constructs an AccountService instance.
func NewAccountService(db *gorm.DB, invites *InviteService) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	if invites == nil {
		return nil, errors.New("account service: invite service is required")
	}
	return &AccountService{db: db, invites: invites}, nil
}

// GetOrCreate returns the account for a verified phone number, creating one
// on first sight. New accounts take the phone number as username, carry the
// supplied password or a freshly generated random secret (bcrypt hashed
// either way), and have their invite key minted in the same transaction.
// If a concurrent request wins the insert race, the loser reads the winner's
// row instead of failing.
func (s *AccountService) GetOrCreate(ctx context.Context, phoneNumber, password string) (*models.Account, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return nil, apperrors.NewValidation("phone number is required")
	}

	if account, err := s.getByPhone(ctx, phoneNumber); err == nil {
		return account, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	secret := password
	if strings.TrimSpace(secret) == "" {
		generated, err := crypto.GenerateToken(randomSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("account service: generate secret: %w", err)
		}
		secret = generated
	}

	hashed, err := crypto.HashPassword(secret)
	if err != nil {
		return nil, fmt.Errorf("account service: hash password: %w", err)
	}

	for attempt := 0; ; attempt++ {
		account := &models.Account{
			Username:    phoneNumber,
			PhoneNumber: phoneNumber,
			Password:    hashed,
			IsActive:    true,
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(account).Error; err != nil {
				return err
			}

			key, err := s.invites.MintFor(tx, account.ID)
			if err != nil {
				return err
			}
			account.InviteKey = key
			return nil
		})
		if err == nil {
			return account, nil
		}

		if isUniqueConstraintError(err) {
			// Lost the first-verification race; the winner's row is authoritative.
			return s.getByPhone(ctx, phoneNumber)
		}

		if isLockContentionError(err) && attempt < maxProvisionAttempts-1 {
			// Another first-verification holds the write lock. Its row may
			// already be visible; otherwise back off and retry the insert.
			if winner, lookupErr := s.getByPhone(ctx, phoneNumber); lookupErr == nil {
				return winner, nil
			}
			time.Sleep(time.Duration(attempt+1) * 5 * time.Millisecond)
			continue
		}

		return nil, fmt.Errorf("account service: create account: %w", err)
	}
}

// GetByID loads an account with its own invite key and any redeemed invite.
func (s *AccountService) GetByID(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).
		Preload("InviteKey").
		Preload("Invite").
		Take(&account, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("account service: find account: %w", err)
	}
	return &account, nil
}

// Update applies partial profile changes and returns the refreshed account.
func (s *AccountService) Update(ctx context.Context, id string, input UpdateAccountInput) (*models.Account, error) {
	account, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*input.Email))
	}

	if len(updates) == 0 {
		return account, nil
	}

	if err := s.db.WithContext(ctx).Model(account).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("account service: update account: %w", err)
	}

	return s.GetByID(ctx, id)
}

// RecordLogin stamps the account's last successful verification time.
func (s *AccountService) RecordLogin(ctx context.Context, id string, at time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
	if err != nil {
		return fmt.Errorf("account service: record login: %w", err)
	}
	return nil
}

func (s *AccountService) getByPhone(ctx context.Context, phoneNumber string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).
		Preload("InviteKey").
		Preload("Invite").
		Where("phone_number = ?", phoneNumber).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("account service: find by phone: %w", err)
	}
	return &account, nil
}
