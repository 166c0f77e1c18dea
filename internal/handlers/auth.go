package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/phonegate/internal/models"
	"github.com/charlesng35/phonegate/internal/services"
	appErrors "github.com/charlesng35/phonegate/pkg/errors"
	"github.com/charlesng35/phonegate/pkg/response"
)

// AuthHandler exposes the single login endpoint: request an OTP when only a
// phone number is sent, verify it when a code is included.
type AuthHandler struct {
	auth *services.AuthService
}

// NewAuthHandler configures an auth handler with the orchestrator service.
func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type otpRequest struct {
	PhoneNumber string `json:"phone_number" validate:"omitempty,e164"`
	OTP         string `json:"otp" validate:"omitempty,max=40"`
}

type pendingResponse struct {
	PhoneNumber string `json:"phone_number"`
	// The code is echoed synchronously so headless and test flows work
	// without an SMS gateway.
	OTP string `json:"otp"`
}

// POST /api/auth/otp
func (h *AuthHandler) RequestOrVerify(c *gin.Context) {
	var req otpRequest
	if !bindAndValidate(c, &req) {
		return
	}

	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.OTP = strings.TrimSpace(req.OTP)

	if req.PhoneNumber == "" {
		response.Error(c, appErrors.NewValidation("send phone_number or otp"))
		return
	}

	if req.OTP == "" {
		token, err := h.auth.RequestOTP(requestContext(c), req.PhoneNumber)
		if err != nil {
			response.Error(c, err)
			return
		}

		response.Success(c, http.StatusCreated, pendingResponse{
			PhoneNumber: token.PhoneNumber,
			OTP:         token.OTP,
		})
		return
	}

	account, bearer, err := h.auth.VerifyOTP(requestContext(c), req.PhoneNumber, req.OTP)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":   bearer,
		"account": marshalAccount(account),
	})
}

// marshalAccount renders the profile payload shared by auth and profile endpoints.
func marshalAccount(account *models.Account) gin.H {
	payload := gin.H{
		"id":           account.ID,
		"username":     account.Username,
		"phone_number": account.PhoneNumber,
		"first_name":   account.FirstName,
		"last_name":    account.LastName,
		"email":        account.Email,
		"is_staff":     account.IsStaff,
		"is_active":    account.IsActive,
	}

	if account.InviteKey != nil {
		payload["invite_key"] = account.InviteKey.Key
	}
	if account.Invite != nil {
		payload["invite"] = account.Invite.Key
	}

	return payload
}
