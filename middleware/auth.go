package middleware

import (
	"context"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"

	"github.com/meinhoongagan/hospital-booking/auth"
	"github.com/meinhoongagan/hospital-booking/models"
	"github.com/meinhoongagan/hospital-booking/services"
	"github.com/meinhoongagan/hospital-booking/utils"
)

const (
	localUserID = "userID"
	localRole   = "role"
	localUser   = "currentUser"
)

// UserResolver loads the account behind a verified token.
type UserResolver interface {
	Current(ctx context.Context, id string) (*models.User, error)
}

// Protected verifies the bearer token and loads the caller. Tokens of deleted
// or deactivated accounts are rejected.
func Protected(secret string, users UserResolver) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		KeyFunc:      auth.KeyFunc(secret),
		Claims:       &auth.Claims{},
		ErrorHandler: jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwt.Token)
			if !ok {
				return unauthorized(c, "No token, authorization denied")
			}
			claims, ok := token.Claims.(*auth.Claims)
			if !ok || claims.UserID == "" {
				return unauthorized(c, "Token is not valid")
			}

			u, err := users.Current(c.UserContext(), claims.UserID)
			if err != nil {
				if msg := services.Message(err); msg != "" {
					return unauthorized(c, msg)
				}
				log.Printf("middleware: resolve user %s: %v", claims.UserID, err)
				return c.Status(fiber.StatusInternalServerError).JSON(utils.Fail("Server error"))
			}

			c.Locals(localUserID, u.ID)
			c.Locals(localRole, u.Role)
			c.Locals(localUser, u)
			return c.Next()
		},
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if strings.EqualFold(err.Error(), "missing or malformed JWT") {
		return unauthorized(c, "No token, authorization denied")
	}
	return unauthorized(c, "Token is not valid")
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(utils.Fail(msg))
}

// CurrentActor returns the caller set by Protected.
func CurrentActor(c *fiber.Ctx) services.Actor {
	id, _ := c.Locals(localUserID).(string)
	role, _ := c.Locals(localRole).(models.Role)
	return services.Actor{ID: id, Role: role}
}

// CurrentUser returns the full account set by Protected, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(localUser).(*models.User)
	return u
}
