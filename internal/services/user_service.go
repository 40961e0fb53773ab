package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/internal/models"
	"github.com/stocktrail/stocktrail/pkg/crypto"
	apperrors "github.com/stocktrail/stocktrail/pkg/errors"
)

// UserService manages operator accounts.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// UserCreateInput carries the fields accepted when creating a user.
type UserCreateInput struct {
	Username  string   `json:"username" validate:"required,min=3,max=64"`
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=8,max=128"`
	FirstName string   `json:"first_name" validate:"max=100"`
	LastName  string   `json:"last_name" validate:"max=100"`
	RoleIDs   []string `json:"role_ids" validate:"omitempty,dive,required"`
}

// UserUpdateInput carries optional fields for updating a user.
type UserUpdateInput struct {
	Email     *string   `json:"email" validate:"omitempty,email"`
	Password  *string   `json:"password" validate:"omitempty,min=8,max=128"`
	FirstName *string   `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string   `json:"last_name" validate:"omitempty,max=100"`
	IsActive  *bool     `json:"is_active"`
	RoleIDs   *[]string `json:"role_ids" validate:"omitempty,dive,required"`
}

// List returns all users with their roles.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	ctx = ensureContext(ctx)

	var users []models.User
	if err := s.db.WithContext(ctx).
		Preload("Roles").
		Order("username ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("user service: list: %w", err)
	}
	return users, nil
}

// Get loads one user by id with roles.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Roles").
		First(&user, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get: %w", err)
	}
	return &user, nil
}

// GetByUsername loads one user by username, including inactive accounts.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Roles").
		First(&user, "username = ?", strings.TrimSpace(username)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get by username: %w", err)
	}
	return &user, nil
}

// Create persists a new account with a bcrypt password hash.
func (s *UserService) Create(ctx context.Context, input UserCreateInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if username == "" {
		return nil, apperrors.NewBadRequest("username is required")
	}
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewBadRequest("password must be at least 8 characters")
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := models.User{
		Username:  username,
		Email:     email,
		Password:  hash,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		IsActive:  true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if len(input.RoleIDs) > 0 {
			return assignRoles(tx, &user, input.RoleIDs)
		}
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("a user with that username or email already exists")
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, fmt.Errorf("user service: create: %w", err)
	}

	return s.Get(ctx, user.ID)
}

// Update applies the provided changes to an existing account.
func (s *UserService) Update(ctx context.Context, id string, input UserUpdateInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*input.Email))
		if email == "" {
			return nil, apperrors.NewBadRequest("email cannot be empty")
		}
		user.Email = email
	}
	if input.Password != nil {
		if len(*input.Password) < 8 {
			return nil, apperrors.NewBadRequest("password must be at least 8 characters")
		}
		hash, err := crypto.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("user service: hash password: %w", err)
		}
		user.Password = hash
	}
	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.IsActive != nil {
		if user.IsRoot && !*input.IsActive {
			return nil, apperrors.NewBadRequest("the root account cannot be deactivated")
		}
		user.IsActive = *input.IsActive
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(user).Error; err != nil {
			return err
		}
		if input.RoleIDs != nil {
			return replaceRoles(tx, user, *input.RoleIDs)
		}
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("a user with that email already exists")
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, fmt.Errorf("user service: update: %w", err)
	}

	return s.Get(ctx, user.ID)
}

// Delete removes an account. The root account is protected.
func (s *UserService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.IsRoot {
		return apperrors.NewBadRequest("the root account cannot be deleted")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Association("Roles").Clear(); err != nil {
			return fmt.Errorf("user service: clear roles: %w", err)
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Session{}).Error; err != nil {
			return fmt.Errorf("user service: delete sessions: %w", err)
		}
		if err := tx.Delete(user).Error; err != nil {
			return fmt.Errorf("user service: delete: %w", err)
		}
		return nil
	})
}

func assignRoles(tx *gorm.DB, user *models.User, roleIDs []string) error {
	roles, err := loadRoles(tx, roleIDs)
	if err != nil {
		return err
	}
	if err := tx.Model(user).Association("Roles").Append(roles); err != nil {
		return fmt.Errorf("user service: assign roles: %w", err)
	}
	return nil
}

func replaceRoles(tx *gorm.DB, user *models.User, roleIDs []string) error {
	roles, err := loadRoles(tx, roleIDs)
	if err != nil {
		return err
	}
	if err := tx.Model(user).Association("Roles").Replace(roles); err != nil {
		return fmt.Errorf("user service: replace roles: %w", err)
	}
	return nil
}

func loadRoles(tx *gorm.DB, roleIDs []string) ([]*models.Role, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	var roles []*models.Role
	if err := tx.Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("user service: load roles: %w", err)
	}
	if len(roles) != len(roleIDs) {
		return nil, apperrors.NewBadRequest("one or more roles do not exist")
	}
	return roles, nil
}
