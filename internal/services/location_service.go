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

// LocationService manages physical stock locations.
type LocationService struct {
	db *gorm.DB
}

// NewLocationService constructs a LocationService.
func NewLocationService(db *gorm.DB) (*LocationService, error) {
	if db == nil {
		return nil, errors.New("location service: db is required")
	}
	return &LocationService{db: db}, nil
}

// LocationCreateInput carries the fields accepted when creating a location.
type LocationCreateInput struct {
	Name    string `json:"name" validate:"required,min=1,max=120"`
	Address string `json:"address" validate:"max=500"`
}

// LocationUpdateInput carries optional fields for updating a location.
type LocationUpdateInput struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=120"`
	Address *string `json:"address" validate:"omitempty,max=500"`
}

// List returns all locations ordered by name.
func (s *LocationService) List(ctx context.Context) ([]models.Location, error) {
	ctx = ensureContext(ctx)

	var locations []models.Location
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("location service: list: %w", err)
	}
	return locations, nil
}

// Get loads one location by id.
func (s *LocationService) Get(ctx context.Context, id string) (*models.Location, error) {
	ctx = ensureContext(ctx)

	var location models.Location
	err := s.db.WithContext(ctx).First(&location, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("location service: get: %w", err)
	}
	return &location, nil
}

// Create persists a new location. Names are unique.
func (s *LocationService) Create(ctx context.Context, input LocationCreateInput) (*models.Location, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("location name is required")
	}

	location := models.Location{
		Name:    name,
		Address: strings.TrimSpace(input.Address),
	}

	if err := s.db.WithContext(ctx).Create(&location).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("a location with that name already exists")
		}
		return nil, fmt.Errorf("location service: create: %w", err)
	}
	return &location, nil
}

// Update applies the provided changes to an existing location.
func (s *LocationService) Update(ctx context.Context, id string, input LocationUpdateInput) (*models.Location, error) {
	ctx = ensureContext(ctx)

	location, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("location name cannot be empty")
		}
		location.Name = name
	}
	if input.Address != nil {
		location.Address = strings.TrimSpace(*input.Address)
	}

	if err := s.db.WithContext(ctx).Save(location).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("a location with that name already exists")
		}
		return nil, fmt.Errorf("location service: update: %w", err)
	}
	return location, nil
}

// Delete removes a location and detaches its items.
func (s *LocationService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	location, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Item{}).
			Where("location_id = ?", location.ID).
			Update("location_id", nil).Error; err != nil {
			return fmt.Errorf("location service: detach items: %w", err)
		}
		if err := tx.Delete(location).Error; err != nil {
			return fmt.Errorf("location service: delete: %w", err)
		}
		return nil
	})
}
