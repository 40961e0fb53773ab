package services

import (
	"go.uber.org/zap"

	"github.com/stocktrail/stocktrail/internal/models"
	"github.com/stocktrail/stocktrail/pkg/logger"
)

// recordAudit discards an audit write error after logging it. The trail is
// best-effort: a failed audit insert must never fail the primary operation.
func recordAudit(entry *models.AuditLog, err error) {
	if err == nil {
		return
	}

	fields := []zap.Field{zap.Error(err)}
	if entry != nil {
		fields = append(fields,
			zap.String("operation", entry.Operation),
			zap.String("table", entry.TableName),
		)
	}
	logger.Warn("audit write failed", fields...)
}
