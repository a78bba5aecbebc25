package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/hospital-booking/controllers"
	"github.com/meinhoongagan/hospital-booking/middleware"
	"github.com/meinhoongagan/hospital-booking/models"
)

// SetupUserRoutes configures the doctor directory and user administration
func SetupUserRoutes(api fiber.Router, h *controllers.UserController, protected fiber.Handler) {
	admin := middleware.RequireRole(models.RoleAdmin)

	users := api.Group("/users", protected)
	users.Get("/doctors", h.GetDoctors)
	users.Get("/stats/overview", admin, h.GetUserStats)
	users.Get("/", admin, h.GetUsers)
	users.Post("/", admin, h.CreateUser)
	users.Get("/:id", h.GetUser)
	users.Put("/:id/image", middleware.RequireRole(models.RoleAdmin, models.RoleDoctor), h.UploadImage)
	users.Put("/:id", h.UpdateUser)
	users.Delete("/:id", admin, h.DeactivateUser)
	users.Post("/:id/activate", admin, h.ActivateUser)
}
