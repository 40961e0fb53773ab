package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stocktrail/stocktrail/internal/auth"
	apperrors "github.com/stocktrail/stocktrail/pkg/errors"
	"github.com/stocktrail/stocktrail/pkg/response"
)

// Gin context keys set by the authentication middleware.
const (
	CtxClaimsKey    = "auth.claims"
	CtxUserIDKey    = "auth.user_id"
	CtxSessionIDKey = "auth.session_id"
)

// RequireAuth validates the Bearer token and stores the claims on the request.
func RequireAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateAccessToken(strings.TrimSpace(token))
		if err != nil {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxSessionIDKey, claims.SessionID)
		c.Next()
	}
}

// ClaimsFromGin retrieves the validated claims stored by RequireAuth.
func ClaimsFromGin(c *gin.Context) (*auth.Claims, bool) {
	value, exists := c.Get(CtxClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok
}
