package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
)

// requestContext returns the context.Context carried by the request. Every
// handler hands this to the service layer so deadlines and the audit actor
// propagate.
func requestContext(c *gin.Context) context.Context {
	return c.Request.Context()
}
