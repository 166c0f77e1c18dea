package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/phonegate/internal/auth"
	"github.com/charlesng35/phonegate/pkg/errors"
	"github.com/charlesng35/phonegate/pkg/response"
)

const (
	CtxClaimsKey    = "authClaims"
	CtxAccountIDKey = "accountID"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthenticated)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthenticated)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxAccountIDKey, claims.AccountID)

		c.Next()
	}
}

// AccountIDFromContext extracts the authenticated account id set by Auth.
func AccountIDFromContext(c *gin.Context) (string, bool) {
	id, ok := c.Get(CtxAccountIDKey)
	if !ok {
		return "", false
	}

	accountID, ok := id.(string)
	if !ok || accountID == "" {
		return "", false
	}

	return accountID, true
}
