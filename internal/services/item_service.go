package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/internal/models"
	apperrors "github.com/stocktrail/stocktrail/pkg/errors"
)

// ItemService manages inventory items. Quantity changes go through the
// transaction service; direct item updates never touch stock levels.
type ItemService struct {
	db *gorm.DB
}

// NewItemService constructs an ItemService.
func NewItemService(db *gorm.DB) (*ItemService, error) {
	if db == nil {
		return nil, errors.New("item service: db is required")
	}
	return &ItemService{db: db}, nil
}

// ItemCreateInput carries the fields accepted when creating an item.
type ItemCreateInput struct {
	SKU          string  `json:"sku" validate:"required,min=1,max=64"`
	Name         string  `json:"name" validate:"required,min=1,max=200"`
	Description  string  `json:"description" validate:"max=2000"`
	Quantity     int     `json:"quantity" validate:"gte=0"`
	UnitCost     float64 `json:"unit_cost" validate:"gte=0"`
	ReorderLevel int     `json:"reorder_level" validate:"gte=0"`
	CategoryID   *string `json:"category_id" validate:"omitempty,uuid"`
	LocationID   *string `json:"location_id" validate:"omitempty,uuid"`
}

// ItemUpdateInput carries optional fields for updating an item. Quantity is
// deliberately absent; stock moves only through transactions.
type ItemUpdateInput struct {
	SKU          *string  `json:"sku" validate:"omitempty,min=1,max=64"`
	Name         *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Description  *string  `json:"description" validate:"omitempty,max=2000"`
	UnitCost     *float64 `json:"unit_cost" validate:"omitempty,gte=0"`
	ReorderLevel *int     `json:"reorder_level" validate:"omitempty,gte=0"`
	CategoryID   *string  `json:"category_id" validate:"omitempty,uuid"`
	LocationID   *string  `json:"location_id" validate:"omitempty,uuid"`
	IsActive     *bool    `json:"is_active"`
}

// ItemListOptions controls filtering and pagination when listing items.
type ItemListOptions struct {
	Search     string
	CategoryID string
	LocationID string
	LowStock   bool
	Page       int
	PageSize   int
}

// List returns a filtered, paginated page of items with the total count.
func (s *ItemService) List(ctx context.Context, opts ItemListOptions) ([]models.Item, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	query := s.db.WithContext(ctx).Model(&models.Item{})

	if search := strings.TrimSpace(opts.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}
	if opts.CategoryID != "" {
		query = query.Where("category_id = ?", opts.CategoryID)
	}
	if opts.LocationID != "" {
		query = query.Where("location_id = ?", opts.LocationID)
	}
	if opts.LowStock {
		query = query.Where("reorder_level > 0 AND quantity <= reorder_level")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("item service: count: %w", err)
	}

	var items []models.Item
	if err := query.
		Preload("Category").
		Preload("Location").
		Order("name ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("item service: list: %w", err)
	}

	return items, total, nil
}

// Get loads one item by id with its category and location.
func (s *ItemService) Get(ctx context.Context, id string) (*models.Item, error) {
	ctx = ensureContext(ctx)

	var item models.Item
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Location").
		First(&item, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("item service: get: %w", err)
	}
	return &item, nil
}

// GetBySKU loads one item by its SKU.
func (s *ItemService) GetBySKU(ctx context.Context, sku string) (*models.Item, error) {
	ctx = ensureContext(ctx)

	var item models.Item
	err := s.db.WithContext(ctx).First(&item, "sku = ?", strings.TrimSpace(sku)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("item service: get by sku: %w", err)
	}
	return &item, nil
}

// Create persists a new item. SKUs are unique.
func (s *ItemService) Create(ctx context.Context, input ItemCreateInput) (*models.Item, error) {
	ctx = ensureContext(ctx)

	sku := strings.TrimSpace(input.SKU)
	name := strings.TrimSpace(input.Name)
	if sku == "" {
		return nil, apperrors.NewBadRequest("item sku is required")
	}
	if name == "" {
		return nil, apperrors.NewBadRequest("item name is required")
	}
	if input.Quantity < 0 {
		return nil, apperrors.NewBadRequest("item quantity cannot be negative")
	}

	if err := s.validateReferences(ctx, input.CategoryID, input.LocationID); err != nil {
		return nil, err
	}

	item := models.Item{
		SKU:          sku,
		Name:         name,
		Description:  strings.TrimSpace(input.Description),
		Quantity:     input.Quantity,
		UnitCost:     input.UnitCost,
		ReorderLevel: input.ReorderLevel,
		CategoryID:   input.CategoryID,
		LocationID:   input.LocationID,
		IsActive:     true,
	}

	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("an item with that SKU already exists")
		}
		return nil, fmt.Errorf("item service: create: %w", err)
	}
	return &item, nil
}

// Update applies the provided changes to an existing item.
func (s *ItemService) Update(ctx context.Context, id string, input ItemUpdateInput) (*models.Item, error) {
	ctx = ensureContext(ctx)

	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.validateReferences(ctx, input.CategoryID, input.LocationID); err != nil {
		return nil, err
	}

	if input.SKU != nil {
		sku := strings.TrimSpace(*input.SKU)
		if sku == "" {
			return nil, apperrors.NewBadRequest("item sku cannot be empty")
		}
		item.SKU = sku
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("item name cannot be empty")
		}
		item.Name = name
	}
	if input.Description != nil {
		item.Description = strings.TrimSpace(*input.Description)
	}
	if input.UnitCost != nil {
		if *input.UnitCost < 0 {
			return nil, apperrors.NewBadRequest("unit cost cannot be negative")
		}
		item.UnitCost = *input.UnitCost
	}
	if input.ReorderLevel != nil {
		if *input.ReorderLevel < 0 {
			return nil, apperrors.NewBadRequest("reorder level cannot be negative")
		}
		item.ReorderLevel = *input.ReorderLevel
	}
	if input.CategoryID != nil {
		item.CategoryID = input.CategoryID
	}
	if input.LocationID != nil {
		item.LocationID = input.LocationID
	}
	if input.IsActive != nil {
		item.IsActive = *input.IsActive
	}

	if err := s.db.WithContext(ctx).Save(item).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("an item with that SKU already exists")
		}
		return nil, fmt.Errorf("item service: update: %w", err)
	}
	return item, nil
}

// Delete removes an item together with its stock transaction history.
func (s *ItemService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", item.ID).Delete(&models.StockTransaction{}).Error; err != nil {
			return fmt.Errorf("item service: delete transactions: %w", err)
		}
		if err := tx.Delete(item).Error; err != nil {
			return fmt.Errorf("item service: delete: %w", err)
		}
		return nil
	})
}

// LowStockItems returns active items at or below their reorder level.
func (s *ItemService) LowStockItems(ctx context.Context) ([]models.Item, error) {
	ctx = ensureContext(ctx)

	var items []models.Item
	if err := s.db.WithContext(ctx).
		Where("is_active = ? AND reorder_level > 0 AND quantity <= reorder_level", true).
		Order("quantity ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("item service: low stock: %w", err)
	}
	return items, nil
}

func (s *ItemService) validateReferences(ctx context.Context, categoryID, locationID *string) error {
	if categoryID != nil && *categoryID != "" {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Category{}).
			Where("id = ?", *categoryID).Count(&count).Error; err != nil {
			return fmt.Errorf("item service: check category: %w", err)
		}
		if count == 0 {
			return apperrors.NewBadRequest("category does not exist")
		}
	}
	if locationID != nil && *locationID != "" {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Location{}).
			Where("id = ?", *locationID).Count(&count).Error; err != nil {
			return fmt.Errorf("item service: check location: %w", err)
		}
		if count == 0 {
			return apperrors.NewBadRequest("location does not exist")
		}
	}
	return nil
}
