package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/dmfesta/tradeacademy/internal/auth"
	"github.com/dmfesta/tradeacademy/internal/models"
	"github.com/dmfesta/tradeacademy/internal/services"
	"github.com/dmfesta/tradeacademy/pkg/errors"
	"github.com/dmfesta/tradeacademy/pkg/response"
)

const (
	CtxClaimsKey  = "authClaims"
	CtxUserIDKey  = "userID"
	CtxIsAdminKey = "isAdmin"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		// Propagate identity into request context
		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxIsAdminKey, claims.IsAdmin)

		c.Next()
	}
}

// RequireAdmin rejects requests whose token was not issued for an admin.
// Must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(CtxIsAdminKey) {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireActiveAccess re-checks the member's effective status on every
// request. A valid JWT does not outlive a pause or an access expiry, so the
// persisted record is consulted rather than trusting the token alone.
func RequireActiveAccess(accounts *services.AccountService, now func() time.Time) gin.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(c *gin.Context) {
		if c.GetBool(CtxIsAdminKey) {
			c.Next()
			return
		}

		userID := c.GetString(CtxUserIDKey)
		user, err := accounts.GetByID(c.Request.Context(), userID)
		if err != nil {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		switch user.EffectiveStatus(now()) {
		case models.UserStatusActive:
			c.Next()
		case models.UserStatusExpired:
			response.Error(c, errors.ErrAccessExpired)
			c.Abort()
		case models.UserStatusPaused:
			response.Error(c, errors.ErrAccountPaused)
			c.Abort()
		default:
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
		}
	}
}
