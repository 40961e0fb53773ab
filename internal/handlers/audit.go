package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stocktrail/stocktrail/internal/services"
	apperrors "github.com/stocktrail/stocktrail/pkg/errors"
	"github.com/stocktrail/stocktrail/pkg/response"
)

// AuditHandler serves the audit trail read endpoints.
type AuditHandler struct {
	audit *services.AuditService
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List handles GET /api/audit-logs.
func (h *AuditHandler) List(c *gin.Context) {
	filters, err := parseAuditFilters(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	opts := services.AuditListOptions{
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "per_page", 50),
		Filters:  filters,
	}

	logs, total, err := h.audit.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, logs, pageMeta(opts.Page, opts.PageSize, total))
}

// Export handles GET /api/audit-logs/export.
func (h *AuditHandler) Export(c *gin.Context) {
	filters, err := parseAuditFilters(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	logs, err := h.audit.Export(requestContext(c), filters)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="audit-logs.json"`)
	response.Success(c, http.StatusOK, logs)
}

// Recent handles GET /api/audit-logs/recent.
func (h *AuditHandler) Recent(c *gin.Context) {
	logs, err := h.audit.RecentActivity(requestContext(c), queryInt(c, "limit", 10))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, logs)
}

// UserActivity handles GET /api/audit-logs/users/:id.
func (h *AuditHandler) UserActivity(c *gin.Context) {
	logs, err := h.audit.UserActivity(requestContext(c), c.Param("id"), queryInt(c, "limit", 10))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, logs)
}

// Stats handles GET /api/audit-logs/stats.
func (h *AuditHandler) Stats(c *gin.Context) {
	since, err := parseTimeQuery(c, "since")
	if err != nil {
		response.Error(c, err)
		return
	}
	until, err := parseTimeQuery(c, "until")
	if err != nil {
		response.Error(c, err)
		return
	}

	stats, err := h.audit.Stats(requestContext(c), since, until)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

func parseAuditFilters(c *gin.Context) (services.AuditFilters, error) {
	since, err := parseTimeQuery(c, "since")
	if err != nil {
		return services.AuditFilters{}, err
	}
	until, err := parseTimeQuery(c, "until")
	if err != nil {
		return services.AuditFilters{}, err
	}

	return services.AuditFilters{
		UserID:    c.Query("user_id"),
		Operation: c.Query("operation"),
		TableName: c.Query("table"),
		RecordID:  c.Query("record_id"),
		Since:     since,
		Until:     until,
	}, nil
}

func parseTimeQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperrors.NewBadRequest(name + " must be an RFC 3339 timestamp")
	}
	return &parsed, nil
}
