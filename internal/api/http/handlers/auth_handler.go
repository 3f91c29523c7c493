package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/asafe/user-service/internal/api/dto"
	"github.com/asafe/user-service/internal/service"
)

// AuthHandler exposes registration and login.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}

	user, err := h.auth.RegisterUser(c.UserContext(), service.RegisterInput{
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

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}

	_, token, exp, err := h.auth.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(dto.AuthResponse{Token: token, ExpiresAt: exp})
}
