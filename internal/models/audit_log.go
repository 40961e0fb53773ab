package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit operations recorded against entity collections. The column is an open
// string so new operation kinds can be introduced without a migration.
const (
	AuditOpInsert = "INSERT"
	AuditOpUpdate = "UPDATE"
	AuditOpDelete = "DELETE"
	AuditOpLogin  = "LOGIN"
	AuditOpLogout = "LOGOUT"
)

// AuditLog is one immutable audit trail record. RecordID carries no foreign
// key on purpose: entries must outlive the entities they describe.
type AuditLog struct {
	ID        string  `gorm:"primaryKey;type:uuid" json:"id"`
	Operation string  `gorm:"not null;index" json:"operation"`
	TableName string  `gorm:"not null;index" json:"table_name"`
	RecordID  string  `gorm:"index" json:"record_id"`
	UserID    *string `gorm:"type:uuid;index" json:"user_id"`
	UserEmail string  `json:"user_email"`
	SessionID string  `json:"session_id"`

	OldValues datatypes.JSONMap `json:"old_values,omitempty"`
	NewValues datatypes.JSONMap `json:"new_values,omitempty"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`

	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
