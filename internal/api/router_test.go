package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/phonegate/internal/app"
	iauth "github.com/charlesng35/phonegate/internal/auth"
	"github.com/charlesng35/phonegate/internal/database/testutil"
	"github.com/charlesng35/phonegate/internal/services"
	"github.com/charlesng35/phonegate/pkg/sms"
)

type envelope struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "test-secret",
		Issuer:         "test",
		AccessTokenTTL: 15 * time.Minute,
	})
	require.NoError(t, err)

	tokens, err := services.NewPhoneTokenService(db)
	require.NoError(t, err)

	invites, err := services.NewInviteService(db)
	require.NoError(t, err)

	accounts, err := services.NewAccountService(db, invites)
	require.NoError(t, err)

	sender := sms.NewSender(sms.Settings{Enabled: false}, nil)
	authSvc, err := services.NewAuthService(tokens, accounts, jwtSvc, sender, services.WithSyncDelivery())
	require.NoError(t, err)

	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)

	router, err := NewRouter(db, jwtSvc, cfg, Services{
		Auth:     authSvc,
		Accounts: accounts,
		Invites:  invites,
	})
	require.NoError(t, err)

	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

// login walks the OTP request/verify round trip and returns a bearer token.
func login(t *testing.T, router *gin.Engine, phone string) (string, map[string]interface{}) {
	t.Helper()

	w, env := doJSON(t, router, http.MethodPost, "/api/auth/otp", "", gin.H{"phone_number": phone})
	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, env.Success)
	require.Equal(t, phone, env.Data["phone_number"])

	code, ok := env.Data["otp"].(string)
	require.True(t, ok)
	require.NotEmpty(t, code)

	w, env = doJSON(t, router, http.MethodPost, "/api/auth/otp", "", gin.H{"phone_number": phone, "otp": code})
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)

	token, ok := env.Data["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	account, ok := env.Data["account"].(map[string]interface{})
	require.True(t, ok)
	return token, account
}

func TestRouterHealthAndProtectedRoutes(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	rec, _ := doJSON(t, router, http.MethodGet, "/api/account", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterOTPDispatch(t *testing.T) {
	router := newTestRouter(t)

	// Neither phone number nor code supplied.
	w, env := doJSON(t, router, http.MethodPost, "/api/auth/otp", "", gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.False(t, env.Success)
	require.Equal(t, "VALIDATION", env.Error.Code)
	require.Equal(t, "send phone_number or otp", env.Error.Message)

	// Malformed phone number fails validation.
	w, env = doJSON(t, router, http.MethodPost, "/api/auth/otp", "", gin.H{"phone_number": "12345"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "VALIDATION", env.Error.Code)

	// Wrong code reads as missing.
	w, env = doJSON(t, router, http.MethodPost, "/api/auth/otp", "", gin.H{"phone_number": "+15551230001"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env = doJSON(t, router, http.MethodPost, "/api/auth/otp", "", gin.H{"phone_number": "+15551230001", "otp": "000000"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "NOT_FOUND", env.Error.Code)
	require.Equal(t, "OTP doesn't exist", env.Error.Message)
}

func TestRouterLoginFlowAndProfile(t *testing.T) {
	router := newTestRouter(t)

	token, account := login(t, router, "+15551230002")
	require.Equal(t, "+15551230002", account["phone_number"])
	require.NotEmpty(t, account["invite_key"])

	w, env := doJSON(t, router, http.MethodGet, "/api/account", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "+15551230002", env.Data["phone_number"])

	w, env = doJSON(t, router, http.MethodPut, "/api/account", token, gin.H{
		"first_name": "Nora",
		"last_name":  "Diaz",
		"email":      "nora@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Nora", env.Data["first_name"])
	require.Equal(t, "Diaz", env.Data["last_name"])
	require.Equal(t, "nora@example.com", env.Data["email"])
}

func TestRouterInviteRedemption(t *testing.T) {
	router := newTestRouter(t)

	_, inviter := login(t, router, "+15551230003")
	inviterKey, ok := inviter["invite_key"].(string)
	require.True(t, ok)

	token, own := login(t, router, "+15551230004")
	ownKey, ok := own["invite_key"].(string)
	require.True(t, ok)

	// Own key is rejected.
	w, env := doJSON(t, router, http.MethodPut, "/api/account", token, gin.H{"invite": ownKey})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "SELF_REDEMPTION", env.Error.Code)

	// Unknown key is rejected.
	w, env = doJSON(t, router, http.MethodPut, "/api/account", token, gin.H{"invite": "no-such-key"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "KEY_NOT_FOUND", env.Error.Code)

	// A real key redeems once.
	w, env = doJSON(t, router, http.MethodPut, "/api/account", token, gin.H{"invite": inviterKey})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, inviterKey, env.Data["invite"])

	// A second attempt reports the account as already invited, even with garbage input.
	w, env = doJSON(t, router, http.MethodPut, "/api/account", token, gin.H{"invite": "no-such-key"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "ALREADY_REDEEMED", env.Error.Code)
}
