package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/meinhoongagan/hospital-booking/controllers"
	"github.com/meinhoongagan/hospital-booking/middleware"
	"github.com/meinhoongagan/hospital-booking/services"
	"github.com/meinhoongagan/hospital-booking/utils"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the handles the HTTP layer needs. All are built by the caller.
type Deps struct {
	Appointments *services.AppointmentService
	Users        *services.UserService
	Health       Pinger
	Limiter      *middleware.RateLimiter
	JWTSecret    string
	CORSOrigins  string
	// Quiet disables the request logger.
	Quiet bool
}

// NewApp builds the fiber application with every route under /api.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "hospital-booking",
		ErrorHandler: controllers.ErrorHandler,
		BodyLimit:    8 << 20,
	})

	app.Use(recover.New())
	if !d.Quiet {
		app.Use(logger.New())
	}
	origins := d.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	api := app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		if d.Health != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := d.Health.Ping(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(utils.Fail("Storage unavailable"))
			}
		}
		return c.JSON(fiber.Map{"success": true, "status": "OK", "time": time.Now().UTC()})
	})

	protected := middleware.Protected(d.JWTSecret, d.Users)
	limit := func(c *fiber.Ctx) error { return c.Next() }
	if d.Limiter != nil {
		limit = middleware.RateLimit(d.Limiter)
	}

	SetupAuthRoutes(api, controllers.NewAuthController(d.Users), protected, limit)
	SetupAppointmentRoutes(api, controllers.NewAppointmentController(d.Appointments), protected)
	SetupUserRoutes(api, controllers.NewUserController(d.Users), protected)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(utils.Fail("Route not found"))
	})
	return app
}
