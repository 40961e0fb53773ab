package permissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/internal/models"
)

// Sync upserts every registered permission definition into the database so
// role assignments can reference them.
func Sync(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("permission sync: db is required")
	}
	ctx = ensureContext(ctx)

	for _, id := range IDs() {
		def, _ := Get(id)

		implies, err := json.Marshal(def.Implies)
		if err != nil {
			return fmt.Errorf("permission sync: marshal implies for %s: %w", id, err)
		}

		row := models.Permission{
			BaseModel:   models.BaseModel{ID: def.ID},
			Module:      def.Module,
			Description: def.Description,
			Implies:     string(implies),
		}

		if err := db.WithContext(ctx).
			Where(models.Permission{BaseModel: models.BaseModel{ID: def.ID}}).
			Assign(row).
			FirstOrCreate(&models.Permission{}).Error; err != nil {
			return fmt.Errorf("permission sync: upsert %s: %w", id, err)
		}
	}

	return nil
}

// EnsureSystemRoles creates the built-in roles and attaches their permission
// grants. Existing roles keep any extra grants an administrator added.
func EnsureSystemRoles(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("permission sync: db is required")
	}
	ctx = ensureContext(ctx)

	roles := []struct {
		id          string
		name        string
		description string
		grants      []string
	}{
		{"admin", "Administrator", "Full system access", IDs()},
		{"manager", "Manager", "Day-to-day inventory operations", ManagerPermissions},
		{"viewer", "Viewer", "Read-only access", ViewerPermissions},
	}

	for _, def := range roles {
		role := models.Role{
			BaseModel:   models.BaseModel{ID: def.id},
			Name:        def.name,
			Description: def.description,
			IsSystem:    true,
		}

		if err := db.WithContext(ctx).
			Where(models.Role{BaseModel: models.BaseModel{ID: def.id}}).
			Attrs(role).
			FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("permission sync: role %s: %w", def.id, err)
		}

		perms := make([]models.Permission, 0, len(def.grants))
		for _, grant := range def.grants {
			perms = append(perms, models.Permission{BaseModel: models.BaseModel{ID: grant}})
		}

		if len(perms) > 0 {
			if err := db.WithContext(ctx).Model(&role).Association("Permissions").Append(&perms); err != nil {
				return fmt.Errorf("permission sync: grants for %s: %w", def.id, err)
			}
		}
	}

	return nil
}
