package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/hospital-booking/middleware"
	"github.com/meinhoongagan/hospital-booking/services"
	"github.com/meinhoongagan/hospital-booking/utils"
)

const maxImageSize = 5 << 20

type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

func (h *UserController) GetDoctors(c *fiber.Ctx) error {
	doctors, err := h.users.Doctors(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "doctors": doctors})
}

// GetUsers godoc
// @Summary List users (admin)
// @Tags users
// @Produce json
// @Param role query string false "Filter by role"
// @Param page query int false "Page, default 1"
// @Param limit query int false "Page size, default 10"
// @Success 200 {object} services.UserPage
// @Failure 403 {object} utils.ErrorResponse
// @Router /api/users [get]
func (h *UserController) GetUsers(c *fiber.Ctx) error {
	page, err := h.users.List(c.UserContext(), middleware.CurrentActor(c),
		c.Query("role"), c.QueryInt("page", 1), c.QueryInt("limit", 10))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"users":      page.Users,
		"pagination": page.Pagination,
	})
}

func (h *UserController) GetUser(c *fiber.Ctx) error {
	u, err := h.users.Get(c.UserContext(), middleware.CurrentActor(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": u})
}

func (h *UserController) CreateUser(c *fiber.Ctx) error {
	var in services.CreateUserInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	u, err := h.users.Create(c.UserContext(), middleware.CurrentActor(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User created successfully",
		"user":    u,
	})
}

func (h *UserController) UpdateUser(c *fiber.Ctx) error {
	var in services.UpdateUserInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	u, err := h.users.Update(c.UserContext(), middleware.CurrentActor(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "User updated successfully",
		"user":    u,
	})
}

func (h *UserController) DeactivateUser(c *fiber.Ctx) error {
	if _, err := h.users.SetActive(c.UserContext(), middleware.CurrentActor(c), c.Params("id"), false); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "User deactivated successfully"})
}

func (h *UserController) ActivateUser(c *fiber.Ctx) error {
	u, err := h.users.SetActive(c.UserContext(), middleware.CurrentActor(c), c.Params("id"), true)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "User activated successfully", "user": u})
}

func (h *UserController) GetUserStats(c *fiber.Ctx) error {
	stats, err := h.users.Stats(c.UserContext(), middleware.CurrentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "stats": stats})
}

// UploadImage accepts a multipart "image" field and stores it as the
// doctor's profile picture.
func (h *UserController) UploadImage(c *fiber.Ctx) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(utils.Fail("image file is required"))
	}
	if fh.Size > maxImageSize {
		return c.Status(fiber.StatusBadRequest).JSON(utils.Fail("Image must be 5MB or smaller"))
	}
	if ct := fh.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return c.Status(fiber.StatusBadRequest).JSON(utils.Fail("Only image files are allowed"))
	}

	f, err := fh.Open()
	if err != nil {
		return respondError(c, err)
	}
	defer f.Close()

	u, err := h.users.UploadImage(c.UserContext(), middleware.CurrentActor(c), c.Params("id"), f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Image uploaded successfully",
		"user":    u,
	})
}
