package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/asafe/user-service/internal/api/dto"
	"github.com/asafe/user-service/internal/auth"
	"github.com/asafe/user-service/internal/service"
	apperrors "github.com/asafe/user-service/pkg/util"
)

// UsersHandler exposes user management endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// Create handles POST /api/user.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.UserCreateRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}

	user, err := h.users.Create(c.UserContext(), auth.MustPrincipal(c), service.CreateUserInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"user": dto.NewUserResponse(user)})
}

// Get handles GET /api/user/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}

	user, err := h.users.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": dto.NewUserResponse(user)})
}

// Update handles PUT /api/user/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}

	var req dto.UserUpdateRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}

	user, err := h.users.Update(c.UserContext(), auth.MustPrincipal(c), id, req.ToDomain())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": dto.NewUserResponse(user)})
}

// Delete handles DELETE /api/user/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}

	if err := h.users.Delete(c.UserContext(), auth.MustPrincipal(c), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func userID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("id must be a positive integer", map[string]any{"id": c.Params("id")})
	}
	return int64(id), nil
}
