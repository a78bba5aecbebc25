package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/hospital-booking/models"
	"github.com/meinhoongagan/hospital-booking/utils"
)

// RequireRole lets the request through only when the caller has one of roles.
// Must run after Protected.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := CurrentActor(c).Role
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(utils.Fail("Access denied"))
	}
}
