package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/hospital-booking/middleware"
	"github.com/meinhoongagan/hospital-booking/services"
)

type AppointmentController struct {
	svc *services.AppointmentService
}

func NewAppointmentController(svc *services.AppointmentService) *AppointmentController {
	return &AppointmentController{svc: svc}
}

// GetAppointments godoc
// @Summary List appointments visible to the caller
// @Tags appointments
// @Produce json
// @Param status query string false "Filter by status"
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Success 200 {array} models.Appointment
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/appointments [get]
func (h *AppointmentController) GetAppointments(c *fiber.Ctx) error {
	list, err := h.svc.List(c.UserContext(), middleware.CurrentActor(c), services.ListInput{
		Status: c.Query("status"),
		Date:   c.Query("date"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"count":        len(list),
		"appointments": list,
	})
}

// GetAppointment godoc
// @Summary Get an appointment by ID
// @Tags appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} models.Appointment
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/appointments/{id} [get]
func (h *AppointmentController) GetAppointment(c *fiber.Ctx) error {
	a, err := h.svc.Get(c.UserContext(), middleware.CurrentActor(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "appointment": a})
}

// CreateAppointment godoc
// @Summary Book an appointment
// @Tags appointments
// @Accept json
// @Produce json
// @Param appointment body services.BookInput true "Booking"
// @Success 201 {object} models.Appointment
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/appointments [post]
func (h *AppointmentController) CreateAppointment(c *fiber.Ctx) error {
	var in services.BookInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	a, err := h.svc.Book(c.UserContext(), middleware.CurrentActor(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":     true,
		"message":     "Appointment booked successfully",
		"appointment": a,
	})
}

// UpdateAppointmentStatus godoc
// @Summary Change an appointment's status
// @Tags appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param status body services.StatusInput true "New status"
// @Success 200 {object} models.Appointment
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/appointments/{id}/status [put]
func (h *AppointmentController) UpdateAppointmentStatus(c *fiber.Ctx) error {
	var in services.StatusInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	a, err := h.svc.UpdateStatus(c.UserContext(), middleware.CurrentActor(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"message":     "Appointment status updated successfully",
		"appointment": a,
	})
}

func (h *AppointmentController) UpdateAppointment(c *fiber.Ctx) error {
	var in services.UpdateInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	a, err := h.svc.Update(c.UserContext(), middleware.CurrentActor(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"message":     "Appointment updated successfully",
		"appointment": a,
	})
}

func (h *AppointmentController) CancelAppointment(c *fiber.Ctx) error {
	if _, err := h.svc.Cancel(c.UserContext(), middleware.CurrentActor(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Appointment cancelled successfully",
	})
}

func (h *AppointmentController) GetAppointmentStats(c *fiber.Ctx) error {
	stats, err := h.svc.Stats(c.UserContext(), middleware.CurrentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "stats": stats})
}
