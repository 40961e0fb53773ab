package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocktrail/stocktrail/internal/models"
	"github.com/stocktrail/stocktrail/internal/services"
	"github.com/stocktrail/stocktrail/pkg/response"
)

// UserHandler serves the account management endpoints.
type UserHandler struct {
	users   *services.UserService
	audited *services.Audited[models.User, services.UserCreateInput, services.UserUpdateInput]
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(users *services.UserService, audit *services.AuditService) *UserHandler {
	return &UserHandler{
		users: users,
		audited: services.NewAudited[models.User, services.UserCreateInput, services.UserUpdateInput](
			users, audit, "users", func(u *models.User) string { return u.ID }),
	}
}

// List handles GET /api/users.
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, users)
}

// Get handles GET /api/users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// Create handles POST /api/users.
func (h *UserHandler) Create(c *gin.Context) {
	var input services.UserCreateInput
	if !bindAndValidate(c, &input) {
		return
	}

	user, err := h.audited.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// Update handles PUT /api/users/:id.
func (h *UserHandler) Update(c *gin.Context) {
	var input services.UserUpdateInput
	if !bindAndValidate(c, &input) {
		return
	}

	user, err := h.audited.Update(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// Delete handles DELETE /api/users/:id.
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.audited.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
