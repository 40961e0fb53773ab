package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/internal/auditctx"
	"github.com/stocktrail/stocktrail/internal/models"
	apperrors "github.com/stocktrail/stocktrail/pkg/errors"
)

// TaskService manages procurement workflows and their notes.
type TaskService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewTaskService constructs a TaskService.
func NewTaskService(db *gorm.DB, audit *AuditService) (*TaskService, error) {
	if db == nil {
		return nil, errors.New("task service: db is required")
	}
	if audit == nil {
		return nil, errors.New("task service: audit service is required")
	}
	return &TaskService{db: db, audit: audit}, nil
}

// TaskCreateInput carries the fields accepted when opening a task.
type TaskCreateInput struct {
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Kind        string  `json:"kind" validate:"required,oneof=cl imp"`
	TotalSteps  int     `json:"total_steps" validate:"gte=0"`
	AssigneeID  *string `json:"assignee_id" validate:"omitempty,uuid"`
}

// TaskUpdateInput carries optional fields for updating a task.
type TaskUpdateInput struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Status      *string `json:"status" validate:"omitempty,oneof=open in_progress done cancelled"`
	Step        *int    `json:"step" validate:"omitempty,gte=0"`
	TotalSteps  *int    `json:"total_steps" validate:"omitempty,gte=0"`
	AssigneeID  *string `json:"assignee_id" validate:"omitempty,uuid"`
}

// TaskListOptions controls filtering when listing tasks.
type TaskListOptions struct {
	Kind       string
	Status     string
	AssigneeID string
	Page       int
	PageSize   int
}

// List returns a filtered, paginated page of tasks, newest first.
func (s *TaskService) List(ctx context.Context, opts TaskListOptions) ([]models.ProcurementTask, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	query := s.db.WithContext(ctx).Model(&models.ProcurementTask{})
	if opts.Kind != "" {
		query = query.Where("kind = ?", opts.Kind)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	if opts.AssigneeID != "" {
		query = query.Where("assignee_id = ?", opts.AssigneeID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("task service: count: %w", err)
	}

	var tasks []models.ProcurementTask
	if err := query.
		Preload("Assignee").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&tasks).Error; err != nil {
		return nil, 0, fmt.Errorf("task service: list: %w", err)
	}

	return tasks, total, nil
}

// Get loads one task with its assignee and notes.
func (s *TaskService) Get(ctx context.Context, id string) (*models.ProcurementTask, error) {
	ctx = ensureContext(ctx)

	var task models.ProcurementTask
	err := s.db.WithContext(ctx).
		Preload("Assignee").
		Preload("Notes", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Notes.Author").
		First(&task, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("task service: get: %w", err)
	}
	return &task, nil
}

// Create opens a new task in the open status at step zero.
func (s *TaskService) Create(ctx context.Context, input TaskCreateInput) (*models.ProcurementTask, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("task title is required")
	}

	kind := strings.TrimSpace(input.Kind)
	switch kind {
	case models.TaskKindChecklist, models.TaskKindImport:
	default:
		return nil, apperrors.NewBadRequest("task kind must be cl or imp")
	}

	task := models.ProcurementTask{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Kind:        kind,
		Status:      models.TaskStatusOpen,
		TotalSteps:  input.TotalSteps,
		AssigneeID:  input.AssigneeID,
	}

	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, fmt.Errorf("task service: create: %w", err)
	}
	return &task, nil
}

// Update applies the provided changes. Finished tasks accept no further edits
// besides being reopened.
func (s *TaskService) Update(ctx context.Context, id string, input TaskUpdateInput) (*models.ProcurementTask, error) {
	ctx = ensureContext(ctx)

	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if terminalStatus(task.Status) && (input.Status == nil || terminalStatus(*input.Status)) &&
		(input.Title != nil || input.Description != nil || input.Step != nil || input.TotalSteps != nil || input.AssigneeID != nil) {
		return nil, apperrors.NewBadRequest("finished tasks cannot be edited")
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewBadRequest("task title cannot be empty")
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		status := strings.TrimSpace(*input.Status)
		switch status {
		case models.TaskStatusOpen, models.TaskStatusInProgress, models.TaskStatusDone, models.TaskStatusCancelled:
		default:
			return nil, apperrors.NewBadRequest("invalid task status")
		}
		task.Status = status
	}
	if input.TotalSteps != nil {
		if *input.TotalSteps < 0 {
			return nil, apperrors.NewBadRequest("total steps cannot be negative")
		}
		task.TotalSteps = *input.TotalSteps
	}
	if input.Step != nil {
		if *input.Step < 0 {
			return nil, apperrors.NewBadRequest("step cannot be negative")
		}
		if task.TotalSteps > 0 && *input.Step > task.TotalSteps {
			return nil, apperrors.NewBadRequest("step cannot exceed total steps")
		}
		task.Step = *input.Step
		if task.TotalSteps > 0 && task.Step == task.TotalSteps && task.Status == models.TaskStatusInProgress {
			task.Status = models.TaskStatusDone
		}
	}
	if input.AssigneeID != nil {
		task.AssigneeID = input.AssigneeID
	}

	if err := s.db.WithContext(ctx).Save(task).Error; err != nil {
		return nil, fmt.Errorf("task service: update: %w", err)
	}
	return task, nil
}

// Delete removes a task with its notes.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	task, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskNote{}).Error; err != nil {
			return fmt.Errorf("task service: delete notes: %w", err)
		}
		if err := tx.Delete(task).Error; err != nil {
			return fmt.Errorf("task service: delete: %w", err)
		}
		return nil
	})
}

// AddNote attaches a comment to a task, attributed to the request actor.
func (s *TaskService) AddNote(ctx context.Context, taskID, body string) (*models.TaskNote, error) {
	ctx = ensureContext(ctx)

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewBadRequest("note body is required")
	}

	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	note := models.TaskNote{
		TaskID: task.ID,
		Body:   body,
	}
	if actor, ok := auditctx.FromContext(ctx); ok && actor.UserID != "" {
		authorID := actor.UserID
		note.AuthorID = &authorID
	}

	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		return nil, fmt.Errorf("task service: add note: %w", err)
	}

	recordAudit(s.audit.LogCreate(ctx, "task_notes", note.ID, entitySnapshot(&note),
		map[string]any{"task_id": task.ID}))

	return &note, nil
}

// ListNotes returns a task's notes in chronological order.
func (s *TaskService) ListNotes(ctx context.Context, taskID string) ([]models.TaskNote, error) {
	ctx = ensureContext(ctx)

	if _, err := s.Get(ctx, taskID); err != nil {
		return nil, err
	}

	var notes []models.TaskNote
	if err := s.db.WithContext(ctx).
		Preload("Author").
		Where("task_id = ?", strings.TrimSpace(taskID)).
		Order("created_at ASC").
		Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("task service: list notes: %w", err)
	}
	return notes, nil
}

func terminalStatus(status string) bool {
	return status == models.TaskStatusDone || status == models.TaskStatusCancelled
}
