package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/hospital-booking/middleware"
	"github.com/meinhoongagan/hospital-booking/services"
)

type AuthController struct {
	users *services.UserService
}

func NewAuthController(users *services.UserService) *AuthController {
	return &AuthController{users: users}
}

// Register handles patient self-registration
func (h *AuthController) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	res, err := h.users.Register(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User registered successfully",
		"token":   res.Token,
		"user":    res.User,
	})
}

// Login handles user authentication
func (h *AuthController) Login(c *fiber.Ctx) error {
	var in services.LoginInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	res, err := h.users.Login(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"token":   res.Token,
		"user":    res.User,
	})
}

// Me returns the current user's profile
func (h *AuthController) Me(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "user": middleware.CurrentUser(c)})
}
