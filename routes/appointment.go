package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/hospital-booking/controllers"
	"github.com/meinhoongagan/hospital-booking/middleware"
	"github.com/meinhoongagan/hospital-booking/models"
)

// SetupAppointmentRoutes configures all appointment related routes
func SetupAppointmentRoutes(api fiber.Router, h *controllers.AppointmentController, protected fiber.Handler) {
	appointment := api.Group("/appointments", protected)
	appointment.Get("/", h.GetAppointments)
	appointment.Post("/", middleware.RequireRole(models.RolePatient), h.CreateAppointment)
	// Registered before /:id so "stats" is not taken for an ID.
	appointment.Get("/stats/overview", middleware.RequireRole(models.RoleAdmin, models.RoleDoctor), h.GetAppointmentStats)
	appointment.Get("/:id", h.GetAppointment)
	appointment.Put("/:id/status", middleware.RequireRole(models.RoleDoctor, models.RoleAdmin), h.UpdateAppointmentStatus)
	appointment.Put("/:id", middleware.RequireRole(models.RolePatient, models.RoleAdmin), h.UpdateAppointment)
	appointment.Delete("/:id", middleware.RequireRole(models.RolePatient, models.RoleAdmin), h.CancelAppointment)
}
