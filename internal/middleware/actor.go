package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/stocktrail/stocktrail/internal/auditctx"
)

// AuditActor propagates the authenticated actor onto the request context so
// services can attribute audit entries without touching HTTP types. Must run
// after RequireAuth.
func AuditActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := auditctx.Actor{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		if claims, ok := ClaimsFromGin(c); ok {
			actor.UserID = claims.UserID
			actor.Email = claims.Email
			actor.SessionID = claims.SessionID
		}

		ctx := auditctx.WithActor(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
