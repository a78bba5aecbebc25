package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/hospital-booking/controllers"
)

// SetupAuthRoutes configures all authentication related routes
func SetupAuthRoutes(api fiber.Router, h *controllers.AuthController, protected, limit fiber.Handler) {
	auth := api.Group("/auth")

	// Public routes
	auth.Post("/register", limit, h.Register)
	auth.Post("/login", limit, h.Login)

	// Protected routes
	auth.Get("/me", protected, h.Me)
}
