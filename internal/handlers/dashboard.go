package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocktrail/stocktrail/internal/services"
	"github.com/stocktrail/stocktrail/pkg/response"
)

// DashboardHandler serves the overview endpoint.
type DashboardHandler struct {
	dashboard *services.DashboardService
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Summary handles GET /api/dashboard.
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.dashboard.Summary(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}
