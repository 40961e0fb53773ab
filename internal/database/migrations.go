package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/internal/models"
	"github.com/stocktrail/stocktrail/internal/permissions"
	"github.com/stocktrail/stocktrail/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.Session{},
		&models.Category{},
		&models.Location{},
		&models.Item{},
		&models.StockTransaction{},
		&models.ProcurementTask{},
		&models.TaskNote{},
		&models.AuditLog{},
	)
}

// SeedData populates the permission registry and the built-in system roles.
func SeedData(db *gorm.DB) error {
	ctx := context.Background()

	if err := permissions.Sync(ctx, db); err != nil {
		return err
	}

	return permissions.EnsureSystemRoles(ctx, db)
}

// EnsureRootUser creates the bootstrap administrator when no root account
// exists yet. Returns true when a user was created.
func EnsureRootUser(ctx context.Context, db *gorm.DB, username, email, password string) (bool, error) {
	if db == nil {
		return false, errors.New("ensure root user: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return false, errors.New("ensure root user: username, email and password are required")
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("is_root = ?", true).Count(&count).Error; err != nil {
		return false, fmt.Errorf("ensure root user: count roots: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	hashed, err := crypto.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("ensure root user: hash password: %w", err)
	}

	user := models.User{
		Username: username,
		Email:    email,
		Password: hashed,
		IsRoot:   true,
		IsActive: true,
	}

	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return false, fmt.Errorf("ensure root user: create: %w", err)
	}

	var adminRole models.Role
	if err := db.WithContext(ctx).First(&adminRole, "id = ?", "admin").Error; err == nil {
		if err := db.WithContext(ctx).Model(&user).Association("Roles").Append(&adminRole); err != nil {
			return false, fmt.Errorf("ensure root user: assign admin role: %w", err)
		}
	}

	return true, nil
}
