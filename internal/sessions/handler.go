package sessions

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docvault-backend/internal/shared/auth"
	"docvault-backend/internal/shared/server/middleware"
	"docvault-backend/internal/shared/server/respond"
	"docvault-backend/internal/users"
)

// Handler serves the session lifecycle endpoints.
type Handler struct {
	Users   *users.Service
	Manager *Manager
	Secure  bool
}

// NewHandler constructs a Handler. secure controls the cookie Secure flag.
func NewHandler(userSvc *users.Service, manager *Manager, secure bool) *Handler {
	return &Handler{Users: userSvc, Manager: manager, Secure: secure}
}

// RegisterPublicRoutes attaches unauthenticated session routes.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/register", h.register)
	rg.POST("/auth/login", h.login)
}

// RegisterRoutes attaches session routes that require authentication.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/logout", h.logout)
	rg.GET("/auth/me", h.me)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	// Self-service registration always yields an unprivileged account.
	user, err := h.Users.Register(c.Request.Context(), req.Email, req.Name, req.Password, auth.RoleUser)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "email and a password of at least 8 characters are required", nil)
		case errors.Is(err, users.ErrEmailTaken):
			respond.Error(c, http.StatusBadRequest, "validation_error", "email already registered", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to register", nil)
		}
		return
	}

	h.setSessionCookie(c, h.Manager.Issue(user.ID))
	respond.JSON(c, http.StatusCreated, gin.H{"id": user.ID, "email": user.Email})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	user, err := h.Users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "invalid email or password", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to log in", nil)
		return
	}

	h.setSessionCookie(c, h.Manager.Issue(user.ID))
	respond.OK(c, gin.H{"id": user.ID, "email": user.Email, "role": string(user.Role)})
}

func (h *Handler) logout(c *gin.Context) {
	if token, err := c.Cookie(middleware.SessionCookie); err == nil && token != "" {
		h.Manager.Revoke(token)
	}
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.Secure, true)
	respond.OK(c, gin.H{"message": "logged out"})
}

func (h *Handler) me(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "authentication_required", "authentication required", nil)
		return
	}
	respond.OK(c, gin.H{"id": principal.ID, "email": principal.Email, "role": string(principal.Role)})
}

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetCookie(middleware.SessionCookie, token, 0, "/", "", h.Secure, true)
}
