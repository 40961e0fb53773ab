package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocktrail/stocktrail/internal/middleware"
	"github.com/stocktrail/stocktrail/internal/services"
	apperrors "github.com/stocktrail/stocktrail/pkg/errors"
	"github.com/stocktrail/stocktrail/pkg/response"
)

// AuthHandler serves login, token refresh, logout and the current-user view.
type AuthHandler struct {
	auth  *services.AuthService
	users *services.UserService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *services.AuthService, users *services.UserService) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	issued, user, err := h.auth.Login(requestContext(c), req.Username, req.Password,
		c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user": user,
		"session": sessionResponse{
			AccessToken:  issued.AccessToken,
			RefreshToken: issued.RefreshToken,
			ExpiresAt:    issued.Session.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		},
	})
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	issued, err := h.auth.Refresh(requestContext(c), req.RefreshToken)
	if err != nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, sessionResponse{
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		ExpiresAt:    issued.Session.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	sessionID := c.GetString(middleware.CtxSessionIDKey)

	if err := h.auth.Logout(requestContext(c), sessionID, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	user, err := h.users.Get(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}
