package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/internal/auditctx"
	"github.com/stocktrail/stocktrail/internal/models"
	"github.com/stocktrail/stocktrail/pkg/metrics"
)

// statsScanLimit bounds the number of rows the in-memory stats aggregation
// will consider. Aggregation beyond this volume belongs in the database.
const statsScanLimit = 5000

// defaultActivityLimit applies when a recent-activity caller passes no limit.
const defaultActivityLimit = 10

// RecordInput captures a single audit event to persist. Actor identity is not
// part of the input; it is read from the request context at write time.
type RecordInput struct {
	Operation string
	TableName string
	RecordID  string
	OldValues map[string]any
	NewValues map[string]any
	Metadata  map[string]any
}

// AuditFilters encapsulates optional filters when querying audit logs.
type AuditFilters struct {
	UserID    string
	Operation string
	TableName string
	RecordID  string
	Since     *time.Time
	Until     *time.Time
}

// AuditListOptions controls pagination and filtering for audit queries.
type AuditListOptions struct {
	Page     int
	PageSize int
	Filters  AuditFilters
}

// AuditStats aggregates operation counts over a bounded window of entries.
type AuditStats struct {
	TotalOperations   int64            `json:"total_operations"`
	OperationsByType  map[string]int64 `json:"operations_by_type"`
	OperationsByTable map[string]int64 `json:"operations_by_table"`
}

// AuditService persists and retrieves audit trail entries. Every write merges
// in the actor stored on the request context by the auth middleware.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db}, nil
}

// Record inserts one audit entry and returns the persisted row. The error is
// reported rather than swallowed here; call sites that must not fail the
// primary operation discard it through recordAudit.
func (s *AuditService) Record(ctx context.Context, input RecordInput) (*models.AuditLog, error) {
	ctx = ensureContext(ctx)

	operation := strings.TrimSpace(input.Operation)
	if operation == "" {
		return nil, errors.New("audit service: operation is required")
	}
	tableName := strings.TrimSpace(input.TableName)
	if tableName == "" {
		return nil, errors.New("audit service: table name is required")
	}

	entry := models.AuditLog{
		Operation: operation,
		TableName: tableName,
		RecordID:  strings.TrimSpace(input.RecordID),
		OldValues: datatypes.JSONMap(input.OldValues),
		NewValues: datatypes.JSONMap(input.NewValues),
		Metadata:  datatypes.JSONMap(input.Metadata),
	}

	if actor, ok := auditctx.FromContext(ctx); ok {
		if id := strings.TrimSpace(actor.UserID); id != "" {
			entry.UserID = &id
		}
		entry.UserEmail = strings.TrimSpace(actor.Email)
		entry.SessionID = strings.TrimSpace(actor.SessionID)
		entry.IPAddress = strings.TrimSpace(actor.IPAddress)
		entry.UserAgent = strings.TrimSpace(actor.UserAgent)
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		metrics.AuditWrites.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("audit service: insert entry: %w", err)
	}

	metrics.AuditWrites.WithLabelValues("success").Inc()
	return &entry, nil
}

// LogCreate records an INSERT against the given table with the post-image.
func (s *AuditService) LogCreate(ctx context.Context, table, recordID string, newValues, metadata map[string]any) (*models.AuditLog, error) {
	return s.Record(ctx, RecordInput{
		Operation: models.AuditOpInsert,
		TableName: table,
		RecordID:  recordID,
		NewValues: newValues,
		Metadata:  metadata,
	})
}

// LogUpdate records an UPDATE with both images and the list of top-level
// fields whose values changed between them.
func (s *AuditService) LogUpdate(ctx context.Context, table, recordID string, oldValues, newValues, metadata map[string]any) (*models.AuditLog, error) {
	changed := affectedFields(oldValues, newValues)
	if len(changed) > 0 {
		if metadata == nil {
			metadata = make(map[string]any, 1)
		}
		metadata["affected_fields"] = changed
	}

	return s.Record(ctx, RecordInput{
		Operation: models.AuditOpUpdate,
		TableName: table,
		RecordID:  recordID,
		OldValues: oldValues,
		NewValues: newValues,
		Metadata:  metadata,
	})
}

// LogDelete records a DELETE with the pre-image only.
func (s *AuditService) LogDelete(ctx context.Context, table, recordID string, oldValues, metadata map[string]any) (*models.AuditLog, error) {
	return s.Record(ctx, RecordInput{
		Operation: models.AuditOpDelete,
		TableName: table,
		RecordID:  recordID,
		OldValues: oldValues,
		Metadata:  metadata,
	})
}

// LogAuth records an authentication event in the logical users table context.
func (s *AuditService) LogAuth(ctx context.Context, operation, userID, email string, metadata map[string]any) (*models.AuditLog, error) {
	if metadata == nil {
		metadata = make(map[string]any, 1)
	}
	if email != "" {
		metadata["email"] = email
	}

	return s.Record(ctx, RecordInput{
		Operation: operation,
		TableName: "users",
		RecordID:  strings.TrimSpace(userID),
		Metadata:  metadata,
	})
}

// List returns paginated audit logs ordered by creation time descending.
func (s *AuditService) List(ctx context.Context, opts AuditListOptions) ([]models.AuditLog, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	var (
		results []models.AuditLog
		total   int64
	)

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	query = applyAuditFilters(query, opts.Filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: count logs: %w", err)
	}

	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: list logs: %w", err)
	}

	return results, total, nil
}

// Export returns audit logs that match the provided filters without pagination.
func (s *AuditService) Export(ctx context.Context, filters AuditFilters) ([]models.AuditLog, error) {
	ctx = ensureContext(ctx)

	var logs []models.AuditLog
	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	query = applyAuditFilters(query, filters)

	if err := query.
		Order("created_at DESC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("audit service: export logs: %w", err)
	}

	return logs, nil
}

// RecentActivity returns the newest entries across all tables.
func (s *AuditService) RecentActivity(ctx context.Context, limit int) ([]models.AuditLog, error) {
	ctx = ensureContext(ctx)

	if limit <= 0 {
		limit = defaultActivityLimit
	}

	var logs []models.AuditLog
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("audit service: recent activity: %w", err)
	}

	return logs, nil
}

// UserActivity returns the newest entries attributed to one actor.
func (s *AuditService) UserActivity(ctx context.Context, userID string, limit int) ([]models.AuditLog, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("audit service: user id is required")
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}

	var logs []models.AuditLog
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("audit service: user activity: %w", err)
	}

	return logs, nil
}

// Stats aggregates operation counts by type and by table over an optional
// date window. Counting happens in memory over at most statsScanLimit rows,
// so the per-bucket values always sum to TotalOperations.
func (s *AuditService) Stats(ctx context.Context, since, until *time.Time) (*AuditStats, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	query = applyAuditFilters(query, AuditFilters{Since: since, Until: until})

	var logs []models.AuditLog
	if err := query.
		Select("operation", "table_name").
		Order("created_at DESC").
		Limit(statsScanLimit).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("audit service: load stats window: %w", err)
	}

	stats := &AuditStats{
		OperationsByType:  make(map[string]int64),
		OperationsByTable: make(map[string]int64),
	}

	for _, entry := range logs {
		stats.TotalOperations++
		stats.OperationsByType[entry.Operation]++
		stats.OperationsByTable[entry.TableName]++
	}

	return stats, nil
}

// CleanupOlderThan removes audit logs older than the supplied retention window (in days).
func (s *AuditService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	ctx = ensureContext(ctx)

	if retentionDays <= 0 {
		return 0, errors.New("audit service: retentionDays must be positive")
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit service: cleanup logs: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// affectedFields returns the sorted top-level keys present in both snapshots
// whose values differ. Keys present on only one side describe the shape of
// the change, not a changed field, and are excluded.
func affectedFields(oldValues, newValues map[string]any) []string {
	if len(oldValues) == 0 || len(newValues) == 0 {
		return nil
	}

	var changed []string
	for key, oldVal := range oldValues {
		newVal, ok := newValues[key]
		if !ok {
			continue
		}
		if !reflect.DeepEqual(oldVal, newVal) {
			changed = append(changed, key)
		}
	}

	sort.Strings(changed)
	return changed
}

func applyAuditFilters(query *gorm.DB, filters AuditFilters) *gorm.DB {
	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.Operation != "" {
		query = query.Where("operation = ?", filters.Operation)
	}
	if filters.TableName != "" {
		query = query.Where("table_name = ?", filters.TableName)
	}
	if filters.RecordID != "" {
		query = query.Where("record_id = ?", filters.RecordID)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}
