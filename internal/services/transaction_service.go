package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/internal/auditctx"
	"github.com/stocktrail/stocktrail/internal/models"
	apperrors "github.com/stocktrail/stocktrail/pkg/errors"
	"github.com/stocktrail/stocktrail/pkg/metrics"
)

// TransactionService records stock movements. Each movement updates the item
// quantity and the movement row inside one database transaction, so the
// ledger and the stock level cannot drift apart.
type TransactionService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewTransactionService constructs a TransactionService.
func NewTransactionService(db *gorm.DB, audit *AuditService) (*TransactionService, error) {
	if db == nil {
		return nil, errors.New("transaction service: db is required")
	}
	if audit == nil {
		return nil, errors.New("transaction service: audit service is required")
	}
	return &TransactionService{db: db, audit: audit}, nil
}

// TransactionCreateInput carries the fields accepted when recording a movement.
// Quantity is the movement amount for in/out, or the absolute target level
// for adjustments.
type TransactionCreateInput struct {
	ItemID    string `json:"item_id" validate:"required,uuid"`
	Type      string `json:"type" validate:"required,oneof=in out adjustment"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
	Reference string `json:"reference" validate:"max=200"`
	Notes     string `json:"notes" validate:"max=2000"`
}

// TransactionListOptions controls filtering and pagination for the ledger.
type TransactionListOptions struct {
	ItemID   string
	Type     string
	Page     int
	PageSize int
}

// List returns a filtered, paginated page of movements, newest first.
func (s *TransactionService) List(ctx context.Context, opts TransactionListOptions) ([]models.StockTransaction, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	query := s.db.WithContext(ctx).Model(&models.StockTransaction{})
	if opts.ItemID != "" {
		query = query.Where("item_id = ?", opts.ItemID)
	}
	if opts.Type != "" {
		query = query.Where("type = ?", opts.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("transaction service: count: %w", err)
	}

	var transactions []models.StockTransaction
	if err := query.
		Preload("Item").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&transactions).Error; err != nil {
		return nil, 0, fmt.Errorf("transaction service: list: %w", err)
	}

	return transactions, total, nil
}

// Get loads one movement by id.
func (s *TransactionService) Get(ctx context.Context, id string) (*models.StockTransaction, error) {
	ctx = ensureContext(ctx)

	var transaction models.StockTransaction
	err := s.db.WithContext(ctx).
		Preload("Item").
		First(&transaction, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("transaction service: get: %w", err)
	}
	return &transaction, nil
}

// Create records a stock movement and applies it to the item quantity. A
// movement that would drive stock negative is rejected.
func (s *TransactionService) Create(ctx context.Context, input TransactionCreateInput) (*models.StockTransaction, error) {
	ctx = ensureContext(ctx)

	itemID := strings.TrimSpace(input.ItemID)
	if itemID == "" {
		return nil, apperrors.NewBadRequest("item id is required")
	}
	if input.Quantity < 0 {
		return nil, apperrors.NewBadRequest("quantity cannot be negative")
	}

	movementType := strings.TrimSpace(input.Type)
	switch movementType {
	case models.TransactionIn, models.TransactionOut, models.TransactionAdjustment:
	default:
		return nil, apperrors.NewBadRequest("transaction type must be in, out or adjustment")
	}
	if movementType != models.TransactionAdjustment && input.Quantity == 0 {
		return nil, apperrors.NewBadRequest("movement quantity must be positive")
	}

	var transaction models.StockTransaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.Item
		err := tx.First(&item, "id = ?", itemID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("transaction service: load item: %w", err)
		}

		previous := item.Quantity
		next := previous
		switch movementType {
		case models.TransactionIn:
			next = previous + input.Quantity
		case models.TransactionOut:
			next = previous - input.Quantity
		case models.TransactionAdjustment:
			next = input.Quantity
		}
		if next < 0 {
			return apperrors.NewBadRequest(
				fmt.Sprintf("insufficient stock: %d on hand, %d requested", previous, input.Quantity))
		}

		transaction = models.StockTransaction{
			ItemID:           item.ID,
			Type:             movementType,
			Quantity:         input.Quantity,
			PreviousQuantity: previous,
			NewQuantity:      next,
			Reference:        strings.TrimSpace(input.Reference),
			Notes:            strings.TrimSpace(input.Notes),
		}
		if actor, ok := auditctx.FromContext(ctx); ok && actor.UserID != "" {
			userID := actor.UserID
			transaction.UserID = &userID
		}

		if err := tx.Create(&transaction).Error; err != nil {
			return fmt.Errorf("transaction service: create movement: %w", err)
		}
		if err := tx.Model(&item).Update("quantity", next).Error; err != nil {
			return fmt.Errorf("transaction service: apply movement: %w", err)
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, err
	}

	metrics.StockMovements.WithLabelValues(movementType).Inc()

	recordAudit(s.audit.LogUpdate(ctx, "items", transaction.ItemID,
		map[string]any{"quantity": transaction.PreviousQuantity},
		map[string]any{"quantity": transaction.NewQuantity},
		map[string]any{
			"transaction_id":   transaction.ID,
			"transaction_type": transaction.Type,
			"reference":        transaction.Reference,
		}))

	return &transaction, nil
}
