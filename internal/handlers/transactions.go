package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocktrail/stocktrail/internal/services"
	"github.com/stocktrail/stocktrail/pkg/response"
)

// TransactionHandler serves the stock movement ledger endpoints.
type TransactionHandler struct {
	transactions *services.TransactionService
}

// NewTransactionHandler constructs a TransactionHandler. Movements audit
// themselves inside the service, so no wrapper is involved here.
func NewTransactionHandler(transactions *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

// List handles GET /api/transactions.
func (h *TransactionHandler) List(c *gin.Context) {
	opts := services.TransactionListOptions{
		ItemID:   c.Query("item_id"),
		Type:     c.Query("type"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "per_page", 50),
	}

	transactions, total, err := h.transactions.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, transactions, pageMeta(opts.Page, opts.PageSize, total))
}

// Get handles GET /api/transactions/:id.
func (h *TransactionHandler) Get(c *gin.Context) {
	transaction, err := h.transactions.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, transaction)
}

// Create handles POST /api/transactions.
func (h *TransactionHandler) Create(c *gin.Context) {
	var input services.TransactionCreateInput
	if !bindAndValidate(c, &input) {
		return
	}

	transaction, err := h.transactions.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, transaction)
}
