package api

import (
	"net/http"

	"faqdesk/backend/internal/models"
	"faqdesk/backend/internal/service"
	"faqdesk/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles accounts, logins and staff profiles
type AuthHandler struct {
	service *service.UserService
	logger  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service *service.UserService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// Signup handles user registration
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.service.Signup(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Login handles user authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	logger.FromContext(c).Info("User logged in successfully",
		"user_id", res.User.ID,
		"role", res.User.Role,
	)
	c.JSON(http.StatusOK, res)
}

// Guest identifies an anonymous visitor
func (h *AuthHandler) Guest(c *gin.Context) {
	var req models.GuestRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	res, err := h.service.IdentifyGuest(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Me returns the current authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	user, err := h.service.GetByID(c.Request.Context(), who.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUserRole allows admins to update a user's role
func (h *AuthHandler) UpdateUserRole(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.service.UpdateRole(c.Request.Context(), id, req.Role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UnlockUser clears a login lock
func (h *AuthHandler) UnlockUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	user, err := h.service.Unlock(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// CreateStaff attaches a staff profile to a user
func (h *AuthHandler) CreateStaff(c *gin.Context) {
	var req models.CreateStaffRequest
	if !bindJSON(c, &req) {
		return
	}

	staff, err := h.service.CreateStaff(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, staff)
}

// ListStaff returns every staff profile
func (h *AuthHandler) ListStaff(c *gin.Context) {
	staff, err := h.service.ListStaff(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": staff, "count": len(staff)})
}
