package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/internal/models"
)

// DashboardSummary is the landing-page card set.
type DashboardSummary struct {
	TotalItems      int64                     `json:"total_items"`
	ActiveItems     int64                     `json:"active_items"`
	LowStockItems   int64                     `json:"low_stock_items"`
	TotalCategories int64                     `json:"total_categories"`
	TotalLocations  int64                     `json:"total_locations"`
	TotalStockValue float64                   `json:"total_stock_value"`
	OpenTasks       int64                     `json:"open_tasks"`
	MovementsToday  int64                     `json:"movements_today"`
	MovementsByType map[string]int64          `json:"movements_by_type"`
	RecentActivity  []models.AuditLog         `json:"recent_activity"`
	RecentMovements []models.StockTransaction `json:"recent_movements"`
}

// DashboardService aggregates the overview figures shown on the landing page.
type DashboardService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(db *gorm.DB, audit *AuditService) (*DashboardService, error) {
	if db == nil {
		return nil, errors.New("dashboard service: db is required")
	}
	if audit == nil {
		return nil, errors.New("dashboard service: audit service is required")
	}
	return &DashboardService{db: db, audit: audit}, nil
}

// Summary computes the dashboard cards in one pass.
func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	ctx = ensureContext(ctx)

	summary := &DashboardSummary{}
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Item{}).Count(&summary.TotalItems).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: total items: %w", err)
	}
	if err := db.Model(&models.Item{}).
		Where("is_active = ?", true).
		Count(&summary.ActiveItems).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: active items: %w", err)
	}
	if err := db.Model(&models.Item{}).
		Where("is_active = ? AND reorder_level > 0 AND quantity <= reorder_level", true).
		Count(&summary.LowStockItems).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: low stock items: %w", err)
	}

	if err := db.Model(&models.Category{}).Count(&summary.TotalCategories).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: total categories: %w", err)
	}
	if err := db.Model(&models.Location{}).Count(&summary.TotalLocations).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: total locations: %w", err)
	}

	var stockValue struct {
		Total float64
	}
	if err := db.Model(&models.Item{}).
		Select("COALESCE(SUM(quantity * unit_cost), 0) AS total").
		Where("is_active = ?", true).
		Scan(&stockValue).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: stock value: %w", err)
	}
	summary.TotalStockValue = stockValue.Total

	if err := db.Model(&models.ProcurementTask{}).
		Where("status IN ?", []string{models.TaskStatusOpen, models.TaskStatusInProgress}).
		Count(&summary.OpenTasks).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: open tasks: %w", err)
	}

	if err := db.Model(&models.StockTransaction{}).
		Where("created_at >= CURRENT_DATE").
		Count(&summary.MovementsToday).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: movements today: %w", err)
	}

	var byType []struct {
		Type  string
		Count int64
	}
	if err := db.Model(&models.StockTransaction{}).
		Select("type", "COUNT(*) AS count").
		Group("type").
		Scan(&byType).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: movements by type: %w", err)
	}
	summary.MovementsByType = make(map[string]int64, len(byType))
	for _, bucket := range byType {
		summary.MovementsByType[bucket.Type] = bucket.Count
	}

	recent, err := s.audit.RecentActivity(ctx, defaultActivityLimit)
	if err != nil {
		return nil, err
	}
	summary.RecentActivity = recent

	if err := db.
		Preload("Item").
		Order("created_at DESC").
		Limit(defaultActivityLimit).
		Find(&summary.RecentMovements).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: recent movements: %w", err)
	}

	return summary, nil
}
