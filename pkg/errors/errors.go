package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrUnauthenticated = &AppError{
		Code:       "UNAUTHENTICATED",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrOTPNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "OTP doesn't exist",
		StatusCode: http.StatusBadRequest,
	}

	ErrOTPAlreadyUsed = &AppError{
		Code:       "ALREADY_USED",
		Message:    "OTP is already used",
		StatusCode: http.StatusBadRequest,
	}

	ErrInviteAlreadyRedeemed = &AppError{
		Code:       "ALREADY_REDEEMED",
		Message:    "You have already entered an invite code",
		StatusCode: http.StatusBadRequest,
	}

	ErrInviteSelfRedemption = &AppError{
		Code:       "SELF_REDEMPTION",
		Message:    "You can't enter your own invite code",
		StatusCode: http.StatusBadRequest,
	}

	ErrInviteKeyNotFound = &AppError{
		Code:       "KEY_NOT_FOUND",
		Message:    "Invite code doesn't exist",
		StatusCode: http.StatusBadRequest,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrValidation = &AppError{
		Code:       "VALIDATION",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// Is reports whether err resolves to the given application error. Matching is
// by code so that copies carrying an internal error still compare equal.
func Is(err error, target *AppError) bool {
	if err == nil || target == nil {
		return false
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}

	return appErr.Code == target.Code
}

// NewValidation wraps input validation failures with a helpful message.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       ErrValidation.Code,
		Message:    message,
		StatusCode: ErrValidation.StatusCode,
	}
}
