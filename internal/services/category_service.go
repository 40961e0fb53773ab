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

// CategoryService manages the item category catalog.
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService constructs a CategoryService.
func NewCategoryService(db *gorm.DB) (*CategoryService, error) {
	if db == nil {
		return nil, errors.New("category service: db is required")
	}
	return &CategoryService{db: db}, nil
}

// CategoryCreateInput carries the fields accepted when creating a category.
type CategoryCreateInput struct {
	Name        string `json:"name" validate:"required,min=1,max=120"`
	Description string `json:"description" validate:"max=500"`
}

// CategoryUpdateInput carries optional fields for updating a category.
type CategoryUpdateInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// List returns all categories ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	ctx = ensureContext(ctx)

	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("category service: list: %w", err)
	}
	return categories, nil
}

// Get loads one category by id.
func (s *CategoryService) Get(ctx context.Context, id string) (*models.Category, error) {
	ctx = ensureContext(ctx)

	var category models.Category
	err := s.db.WithContext(ctx).First(&category, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("category service: get: %w", err)
	}
	return &category, nil
}

// Create persists a new category. Names are unique.
func (s *CategoryService) Create(ctx context.Context, input CategoryCreateInput) (*models.Category, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("category name is required")
	}

	category := models.Category{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
	}

	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("a category with that name already exists")
		}
		return nil, fmt.Errorf("category service: create: %w", err)
	}
	return &category, nil
}

// Update applies the provided changes to an existing category.
func (s *CategoryService) Update(ctx context.Context, id string, input CategoryUpdateInput) (*models.Category, error) {
	ctx = ensureContext(ctx)

	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("category name cannot be empty")
		}
		category.Name = name
	}
	if input.Description != nil {
		category.Description = strings.TrimSpace(*input.Description)
	}

	if err := s.db.WithContext(ctx).Save(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("a category with that name already exists")
		}
		return nil, fmt.Errorf("category service: update: %w", err)
	}
	return category, nil
}

// Delete removes a category. Items keep their rows; the foreign key is
// cleared so inventory history survives catalog changes.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	category, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Item{}).
			Where("category_id = ?", category.ID).
			Update("category_id", nil).Error; err != nil {
			return fmt.Errorf("category service: detach items: %w", err)
		}
		if err := tx.Delete(category).Error; err != nil {
			return fmt.Errorf("category service: delete: %w", err)
		}
		return nil
	})
}
