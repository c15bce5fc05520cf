package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"quickride/internal/models"
	"quickride/internal/repository"
)

// UserHandler exposes admin user management endpoints.
type UserHandler struct {
	users  *repository.UserRepository
	logger *zap.Logger
}

func NewUserHandler(users *repository.UserRepository, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// List returns users with pagination and optional ?q= search.
func (h *UserHandler) List(c echo.Context) error {
	page, limit := pageParams(c)
	users, total, err := h.users.FindAll(limit, page, c.QueryParam("q"))
	if err != nil {
		h.logger.Error("list users", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to list users")
	}
	return successResponse(c, "users retrieved", paginatedResponse(users, total, page, limit))
}

// Get returns a single user by ID.
func (h *UserHandler) Get(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return errorResponse(c, http.StatusBadRequest, "invalid user id")
	}
	user, err := h.users.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, "user not found")
		}
		h.logger.Error("get user", zap.Uint("id", id), zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to get user")
	}
	return successResponse(c, "user retrieved", user)
}

// Update changes a user's name or role.
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return errorResponse(c, http.StatusBadRequest, "invalid user id")
	}

	var req struct {
		Name string `json:"name"`
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Role != "" {
		switch req.Role {
		case models.RoleCustomer, models.RoleAdmin, models.RoleManager:
			updates["role"] = req.Role
		default:
			return errorResponse(c, http.StatusBadRequest, "unknown role")
		}
	}
	if len(updates) == 0 {
		return errorResponse(c, http.StatusBadRequest, "no updatable fields provided")
	}

	if err := h.users.Update(id, updates); err != nil {
		h.logger.Error("update user", zap.Uint("id", id), zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to update user")
	}
	return successResponse(c, "user updated", nil)
}

// Delete removes a user.
func (h *UserHandler) Delete(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return errorResponse(c, http.StatusBadRequest, "invalid user id")
	}
	if err := h.users.Delete(id); err != nil {
		h.logger.Error("delete user", zap.Uint("id", id), zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to delete user")
	}
	return successResponse(c, "user deleted", nil)
}
