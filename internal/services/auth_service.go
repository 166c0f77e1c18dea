package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	iauth "github.com/charlesng35/phonegate/internal/auth"
	"github.com/charlesng35/phonegate/internal/models"
	apperrors "github.com/charlesng35/phonegate/pkg/errors"
	"github.com/charlesng35/phonegate/pkg/logger"
	"github.com/charlesng35/phonegate/pkg/metrics"
	"github.com/charlesng35/phonegate/pkg/sms"
)

// AuthOption customises AuthService behaviour.
type AuthOption func(*AuthService)

// WithAuthLogger overrides the service logger.
func WithAuthLogger(log *zap.Logger) AuthOption {
	return func(s *AuthService) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSyncDelivery makes OTP delivery run inline instead of in a goroutine,
// primarily for testing. Delivery failures are still swallowed.
func WithSyncDelivery() AuthOption {
	return func(s *AuthService) {
		s.syncDelivery = true
	}
}

// AuthService orchestrates the verification flow: token issuance and
// delivery, single-use enforcement, account provisioning, and bearer token
// issuance. All collaborators are injected at construction.
type AuthService struct {
	tokens   *PhoneTokenService
	accounts *AccountService
	jwt      *iauth.JWTService
	sender   sms.Sender
	log      *zap.Logger

	syncDelivery bool
}

// NewAuthService constructs the orchestrator from its collaborators.
func NewAuthService(tokens *PhoneTokenService, accounts *AccountService, jwt *iauth.JWTService, sender sms.Sender, opts ...AuthOption) (*AuthService, error) {
	if tokens == nil {
		return nil, errors.New("auth service: phone token service is required")
	}
	if accounts == nil {
		return nil, errors.New("auth service: account service is required")
	}
	if jwt == nil {
		return nil, errors.New("auth service: jwt service is required")
	}

	service := &AuthService{
		tokens:   tokens,
		accounts: accounts,
		jwt:      jwt,
		sender:   sender,
		log:      logger.WithModule("auth"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// RequestOTP issues a fresh passcode for the phone number and dispatches it
// over SMS without blocking the response path. The token is returned so the
// transport can echo the code for headless and test flows. Requesting never
// touches any existing account.
func (s *AuthService) RequestOTP(ctx context.Context, phoneNumber string) (*models.PhoneToken, error) {
	token, err := s.tokens.Issue(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}

	metrics.OTPRequests.Inc()
	s.deliver(token)

	return token, nil
}

// VerifyOTP exchanges a valid passcode for the account and a bearer token.
// The token is burned on first presentation; anything failing after the burn
// leaves it burned (single-use outranks exactly-once delivery).
func (s *AuthService) VerifyOTP(ctx context.Context, phoneNumber, code string) (*models.Account, string, error) {
	token, err := s.tokens.Find(ctx, phoneNumber, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrOTPNotFound) {
			metrics.AuthAttempts.WithLabelValues("not_found").Inc()
		} else {
			metrics.AuthAttempts.WithLabelValues("error").Inc()
		}
		return nil, "", err
	}

	if token.Used {
		metrics.AuthAttempts.WithLabelValues("already_used").Inc()
		return nil, "", apperrors.ErrOTPAlreadyUsed
	}

	if err := s.tokens.Consume(ctx, token); err != nil {
		if errors.Is(err, apperrors.ErrOTPAlreadyUsed) {
			metrics.AuthAttempts.WithLabelValues("already_used").Inc()
		} else {
			metrics.AuthAttempts.WithLabelValues("error").Inc()
		}
		return nil, "", err
	}

	account, err := s.accounts.GetOrCreate(ctx, token.PhoneNumber, "")
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("error").Inc()
		return nil, "", fmt.Errorf("auth service: provision account: %w", err)
	}

	bearer, err := s.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		AccountID:   account.ID,
		PhoneNumber: account.PhoneNumber,
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("error").Inc()
		return nil, "", fmt.Errorf("auth service: issue bearer token: %w", err)
	}

	if err := s.accounts.RecordLogin(ctx, account.ID, s.tokens.now()); err != nil {
		s.log.Warn("failed to record login time", zap.Error(err))
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return account, bearer, nil
}

// deliver hands the passcode to the SMS collaborator. Failures are logged and
// never surfaced; the synchronous response already carries the code.
func (s *AuthService) deliver(token *models.PhoneToken) {
	if s.sender == nil {
		return
	}

	send := func() {
		msg := sms.Message{
			To:   token.PhoneNumber,
			Body: fmt.Sprintf("Your verification code is %s", token.OTP),
		}
		if err := s.sender.Send(context.Background(), msg); err != nil && !errors.Is(err, sms.ErrSMSDisabled) {
			s.log.Warn("otp delivery failed",
				zap.String("phone_number", token.PhoneNumber),
				zap.Error(err),
			)
		}
	}

	if s.syncDelivery {
		send()
		return
	}
	go send()
}
