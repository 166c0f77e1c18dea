package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/phonegate/internal/middleware"
	"github.com/charlesng35/phonegate/internal/services"
	appErrors "github.com/charlesng35/phonegate/pkg/errors"
	"github.com/charlesng35/phonegate/pkg/metrics"
	"github.com/charlesng35/phonegate/pkg/response"
)

// ProfileHandler serves the authenticated account resource.
type ProfileHandler struct {
	accounts *services.AccountService
	invites  *services.InviteService
}

func NewProfileHandler(accounts *services.AccountService, invites *services.InviteService) *ProfileHandler {
	return &ProfileHandler{accounts: accounts, invites: invites}
}

type updateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Invite    *string `json:"invite" validate:"omitempty,min=1"`
}

// GET /api/account
func (h *ProfileHandler) Get(c *gin.Context) {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}

	account, err := h.accounts.GetByID(requestContext(c), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, marshalAccount(account))
}

// PUT /api/account
//
// Invite redemption rides on the profile update: a request carrying an
// "invite" key redeems it before the field updates are applied.
func (h *ProfileHandler) Update(c *gin.Context) {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}

	var req updateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)

	account, err := h.accounts.GetByID(ctx, accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if req.Invite != nil {
		if _, err := h.invites.Redeem(ctx, account, *req.Invite); err != nil {
			metrics.InviteRedemptions.WithLabelValues(redemptionResult(err)).Inc()
			response.Error(c, err)
			return
		}
		metrics.InviteRedemptions.WithLabelValues("success").Inc()
	}

	updated, err := h.accounts.Update(ctx, accountID, services.UpdateAccountInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, marshalAccount(updated))
}

func redemptionResult(err error) string {
	switch {
	case appErrors.Is(err, appErrors.ErrInviteAlreadyRedeemed):
		return "already_redeemed"
	case appErrors.Is(err, appErrors.ErrInviteSelfRedemption):
		return "self_redemption"
	case appErrors.Is(err, appErrors.ErrInviteKeyNotFound):
		return "not_found"
	default:
		return "error"
	}
}
