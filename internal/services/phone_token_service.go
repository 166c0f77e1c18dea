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
	defaultOTPLifetime = 5 * time.Minute
	defaultOTPDigits   = 6
)

// PhoneTokenOption customises PhoneTokenService behaviour.
type PhoneTokenOption func(*PhoneTokenService)

// WithOTPLifetime overrides the validity window for issued passcodes.
func WithOTPLifetime(d time.Duration) PhoneTokenOption {
	return func(s *PhoneTokenService) {
		if d > 0 {
			s.lifetime = d
		}
	}
}

// WithOTPDigits adjusts the number of digits in generated passcodes.
func WithOTPDigits(digits int) PhoneTokenOption {
	return func(s *PhoneTokenService) {
		if digits > 0 {
			s.digits = digits
		}
	}
}

// WithPhoneTokenClock injects a custom time source, primarily for testing.
func WithPhoneTokenClock(clock func() time.Time) PhoneTokenOption {
	return func(s *PhoneTokenService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// PhoneTokenService persists phone verification tokens and enforces their
// single-use lifecycle.
type PhoneTokenService struct {
	db       *gorm.DB
	lifetime time.Duration
	digits   int
	now      func() time.Time
}

// NewPhoneTokenService constructs a PhoneTokenService with the provided dependencies.
func NewPhoneTokenService(db *gorm.DB, opts ...PhoneTokenOption) (*PhoneTokenService, error) {
	if db == nil {
		return nil, errors.New("phone token service: db is required")
	}

	service := &PhoneTokenService{
		db:       db,
		lifetime: defaultOTPLifetime,
		digits:   defaultOTPDigits,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Lifetime reports the configured validity window.
func (s *PhoneTokenService) Lifetime() time.Duration {
	return s.lifetime
}

// Issue generates a fresh unpredictable passcode for the phone number and
// stores it unused. Earlier pending tokens for the same number stay valid;
// only the exact (phone, code) pair matches on consumption.
func (s *PhoneTokenService) Issue(ctx context.Context, phoneNumber string) (*models.PhoneToken, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return nil, errors.New("phone token service: phone number is required")
	}

	code, err := crypto.GenerateOTP(s.digits)
	if err != nil {
		return nil, fmt.Errorf("phone token service: generate otp: %w", err)
	}

	token := &models.PhoneToken{
		PhoneNumber: phoneNumber,
		OTP:         code,
		Used:        false,
		CreatedAt:   s.now(),
	}

	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, fmt.Errorf("phone token service: create token: %w", err)
	}

	return token, nil
}

// Find looks up a token by (phone, code) within the validity window without
// filtering on the used flag, so the caller can distinguish "already used"
// from "never existed". Tokens older than the lifetime are reported as absent
// even though the row still exists.
func (s *PhoneTokenService) Find(ctx context.Context, phoneNumber, code string) (*models.PhoneToken, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	code = strings.TrimSpace(code)
	if phoneNumber == "" || code == "" {
		return nil, apperrors.ErrOTPNotFound
	}

	cutoff := s.now().Add(-s.lifetime)

	var token models.PhoneToken
	err := s.db.WithContext(ctx).
		Where("phone_number = ? AND otp = ? AND created_at > ?", phoneNumber, code, cutoff).
		Order("created_at DESC").
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOTPNotFound
		}
		return nil, fmt.Errorf("phone token service: find token: %w", err)
	}

	return &token, nil
}

// Consume flips the token's used flag with a compare-and-swap update. A lost
// race is indistinguishable from a token that was already burned.
func (s *PhoneTokenService) Consume(ctx context.Context, token *models.PhoneToken) error {
	if token == nil || token.ID == "" {
		return errors.New("phone token service: token is required")
	}

	result := s.db.WithContext(ctx).
		Model(&models.PhoneToken{}).
		Where("id = ? AND used = ?", token.ID, false).
		Update("used", true)
	if result.Error != nil {
		return fmt.Errorf("phone token service: consume token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrOTPAlreadyUsed
	}

	token.Used = true
	return nil
}

// PurgeStale deletes tokens older than the retention cutoff, used or not.
// Run by the maintenance job, never by the verification flow, so recent
// burned tokens keep producing "already used" instead of "not found".
func (s *PhoneTokenService) PurgeStale(ctx context.Context, retention time.Duration) (int64, error) {
	if retention < s.lifetime {
		retention = s.lifetime
	}

	cutoff := s.now().Add(-retention)

	result := s.db.WithContext(ctx).
		Where("created_at <= ?", cutoff).
		Delete(&models.PhoneToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("phone token service: purge stale tokens: %w", result.Error)
	}

	return result.RowsAffected, nil
}
