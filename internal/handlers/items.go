package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stocktrail/stocktrail/internal/models"
	"github.com/stocktrail/stocktrail/internal/services"
	"github.com/stocktrail/stocktrail/pkg/response"
)

// ItemHandler serves the inventory item endpoints.
type ItemHandler struct {
	items   *services.ItemService
	audited *services.Audited[models.Item, services.ItemCreateInput, services.ItemUpdateInput]
}

// NewItemHandler constructs an ItemHandler.
func NewItemHandler(items *services.ItemService, audit *services.AuditService) *ItemHandler {
	return &ItemHandler{
		items: items,
		audited: services.NewAudited[models.Item, services.ItemCreateInput, services.ItemUpdateInput](
			items, audit, "items", func(i *models.Item) string { return i.ID }),
	}
}

// List handles GET /api/items.
func (h *ItemHandler) List(c *gin.Context) {
	opts := services.ItemListOptions{
		Search:     c.Query("search"),
		CategoryID: c.Query("category_id"),
		LocationID: c.Query("location_id"),
		LowStock:   c.Query("low_stock") == "true",
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "per_page", 50),
	}

	items, total, err := h.items.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, items, pageMeta(opts.Page, opts.PageSize, total))
}

// Get handles GET /api/items/:id.
func (h *ItemHandler) Get(c *gin.Context) {
	item, err := h.items.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// LowStock handles GET /api/items/low-stock.
func (h *ItemHandler) LowStock(c *gin.Context) {
	items, err := h.items.LowStockItems(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemHandler) Create(c *gin.Context) {
	var input services.ItemCreateInput
	if !bindAndValidate(c, &input) {
		return
	}

	item, err := h.audited.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, item)
}

// Update handles PUT /api/items/:id.
func (h *ItemHandler) Update(c *gin.Context) {
	var input services.ItemUpdateInput
	if !bindAndValidate(c, &input) {
		return
	}

	item, err := h.audited.Update(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// Delete handles DELETE /api/items/:id.
func (h *ItemHandler) Delete(c *gin.Context) {
	if err := h.audited.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func pageMeta(page, perPage int, total int64) *response.Meta {
	totalPages := 0
	if perPage > 0 {
		totalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      int(total),
		TotalPages: totalPages,
	}
}
