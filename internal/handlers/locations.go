package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocktrail/stocktrail/internal/models"
	"github.com/stocktrail/stocktrail/internal/services"
	"github.com/stocktrail/stocktrail/pkg/response"
)

// LocationHandler serves the stock location endpoints.
type LocationHandler struct {
	locations *services.LocationService
	audited   *services.Audited[models.Location, services.LocationCreateInput, services.LocationUpdateInput]
}

// NewLocationHandler constructs a LocationHandler.
func NewLocationHandler(locations *services.LocationService, audit *services.AuditService) *LocationHandler {
	return &LocationHandler{
		locations: locations,
		audited: services.NewAudited[models.Location, services.LocationCreateInput, services.LocationUpdateInput](
			locations, audit, "locations", func(l *models.Location) string { return l.ID }),
	}
}

// List handles GET /api/locations.
func (h *LocationHandler) List(c *gin.Context) {
	locations, err := h.locations.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, locations)
}

// Get handles GET /api/locations/:id.
func (h *LocationHandler) Get(c *gin.Context) {
	location, err := h.locations.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, location)
}

// Create handles POST /api/locations.
func (h *LocationHandler) Create(c *gin.Context) {
	var input services.LocationCreateInput
	if !bindAndValidate(c, &input) {
		return
	}

	location, err := h.audited.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, location)
}

// Update handles PUT /api/locations/:id.
func (h *LocationHandler) Update(c *gin.Context) {
	var input services.LocationUpdateInput
	if !bindAndValidate(c, &input) {
		return
	}

	location, err := h.audited.Update(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, location)
}

// Delete handles DELETE /api/locations/:id.
func (h *LocationHandler) Delete(c *gin.Context) {
	if err := h.audited.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
