package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocktrail/stocktrail/internal/models"
	"github.com/stocktrail/stocktrail/internal/services"
	"github.com/stocktrail/stocktrail/pkg/response"
)

// CategoryHandler serves the category catalog endpoints.
type CategoryHandler struct {
	categories *services.CategoryService
	audited    *services.Audited[models.Category, services.CategoryCreateInput, services.CategoryUpdateInput]
}

// NewCategoryHandler constructs a CategoryHandler. Mutations route through
// the audited wrapper; reads hit the service directly.
func NewCategoryHandler(categories *services.CategoryService, audit *services.AuditService) *CategoryHandler {
	return &CategoryHandler{
		categories: categories,
		audited: services.NewAudited[models.Category, services.CategoryCreateInput, services.CategoryUpdateInput](
			categories, audit, "categories", func(c *models.Category) string { return c.ID }),
	}
}

// List handles GET /api/categories.
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.categories.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, categories)
}

// Get handles GET /api/categories/:id.
func (h *CategoryHandler) Get(c *gin.Context) {
	category, err := h.categories.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, category)
}

// Create handles POST /api/categories.
func (h *CategoryHandler) Create(c *gin.Context) {
	var input services.CategoryCreateInput
	if !bindAndValidate(c, &input) {
		return
	}

	category, err := h.audited.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, category)
}

// Update handles PUT /api/categories/:id.
func (h *CategoryHandler) Update(c *gin.Context) {
	var input services.CategoryUpdateInput
	if !bindAndValidate(c, &input) {
		return
	}

	category, err := h.audited.Update(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, category)
}

// Delete handles DELETE /api/categories/:id.
func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.audited.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
