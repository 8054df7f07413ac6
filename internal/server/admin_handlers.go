package server

import (
	"strconv"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateAdmin handles POST /api/admin/create-admin
func (s *Server) CreateAdmin(c *fiber.Ctx) error {
	var in service.CreateAdminInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}

	user, err := s.adminService.CreateAdmin(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
}

// ListUsers handles GET /api/admin/users
func (s *Server) ListUsers(c *fiber.Ctx) error {
	filter := repository.UserFilter{
		Search: c.Query("search"),
		Role:   c.Query("role"),
	}
	if raw := c.Query("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("isActive must be true or false"))
		}
		filter.IsActive = &active
	}
	if filter.Role != "" && filter.Role != models.RoleAdmin && filter.Role != models.RoleUser {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid role"))
	}

	users, pagination, err := s.adminService.ListUsers(c.UserContext(), filter, parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listResponse("users", users, pagination))
}

// SetUserStatus handles PUT /api/admin/users/:id/status
func (s *Server) SetUserStatus(c *fiber.Ctx) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		IsActive *bool `json:"isActive"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	if req.IsActive == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("isActive is required"))
	}

	user, err := s.adminService.SetUserStatus(c.UserContext(), viewerID(c), targetID, *req.IsActive)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

// DeleteUser handles DELETE /api/admin/users/:id
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.adminService.DeleteUser(c.UserContext(), viewerID(c), targetID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}
