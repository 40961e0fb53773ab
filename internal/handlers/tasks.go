package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocktrail/stocktrail/internal/models"
	"github.com/stocktrail/stocktrail/internal/services"
	"github.com/stocktrail/stocktrail/pkg/response"
)

// TaskHandler serves the procurement task endpoints.
type TaskHandler struct {
	tasks   *services.TaskService
	audited *services.Audited[models.ProcurementTask, services.TaskCreateInput, services.TaskUpdateInput]
}

// NewTaskHandler constructs a TaskHandler.
func NewTaskHandler(tasks *services.TaskService, audit *services.AuditService) *TaskHandler {
	return &TaskHandler{
		tasks: tasks,
		audited: services.NewAudited[models.ProcurementTask, services.TaskCreateInput, services.TaskUpdateInput](
			tasks, audit, "procurement_tasks", func(t *models.ProcurementTask) string { return t.ID }),
	}
}

// List handles GET /api/tasks.
func (h *TaskHandler) List(c *gin.Context) {
	opts := services.TaskListOptions{
		Kind:       c.Query("kind"),
		Status:     c.Query("status"),
		AssigneeID: c.Query("assignee_id"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "per_page", 50),
	}

	tasks, total, err := h.tasks.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, tasks, pageMeta(opts.Page, opts.PageSize, total))
}

// Get handles GET /api/tasks/:id.
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.tasks.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(c *gin.Context) {
	var input services.TaskCreateInput
	if !bindAndValidate(c, &input) {
		return
	}

	task, err := h.audited.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, task)
}

// Update handles PUT /api/tasks/:id.
func (h *TaskHandler) Update(c *gin.Context) {
	var input services.TaskUpdateInput
	if !bindAndValidate(c, &input) {
		return
	}

	task, err := h.audited.Update(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// Delete handles DELETE /api/tasks/:id.
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.audited.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

type noteRequest struct {
	Body string `json:"body" validate:"required,min=1,max=2000"`
}

// AddNote handles POST /api/tasks/:id/notes.
func (h *TaskHandler) AddNote(c *gin.Context) {
	var req noteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	note, err := h.tasks.AddNote(requestContext(c), c.Param("id"), req.Body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, note)
}

// ListNotes handles GET /api/tasks/:id/notes.
func (h *TaskHandler) ListNotes(c *gin.Context) {
	notes, err := h.tasks.ListNotes(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, notes)
}
