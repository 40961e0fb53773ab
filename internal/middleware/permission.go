package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stocktrail/stocktrail/internal/permissions"
	apperrors "github.com/stocktrail/stocktrail/pkg/errors"
	"github.com/stocktrail/stocktrail/pkg/logger"
	"github.com/stocktrail/stocktrail/pkg/metrics"
	"github.com/stocktrail/stocktrail/pkg/response"
)

// RequirePermission gates a route on one registered permission. Must run
// after RequireAuth.
func RequirePermission(checker *permissions.Checker, permissionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(CtxUserIDKey)
		if userID == "" {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		allowed, err := checker.Check(c.Request.Context(), userID, permissionID)
		if err != nil {
			metrics.PermissionChecks.WithLabelValues(permissionID, "error").Inc()
			logger.Error("permission check failed",
				zap.String("permission", permissionID),
				zap.String("user_id", userID),
				zap.Error(err))
			response.Error(c, apperrors.ErrInternalServer)
			c.Abort()
			return
		}
		if !allowed {
			metrics.PermissionChecks.WithLabelValues(permissionID, "denied").Inc()
			response.Error(c, apperrors.ErrForbidden)
			c.Abort()
			return
		}

		metrics.PermissionChecks.WithLabelValues(permissionID, "allowed").Inc()
		c.Next()
	}
}
