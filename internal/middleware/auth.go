package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/joywood/internal/config"
	"github.com/example/joywood/internal/utils"
)

const actorContextKey = "currentActor"

// AuthMiddleware validates manager JWT tokens and stores the acting manager in context.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		actor, err := utils.ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(actorContextKey, actor)
		return c.Next()
	}
}

// GetActor extracts the authenticated manager from context.
func GetActor(c *fiber.Ctx) (string, bool) {
	actor, ok := c.Locals(actorContextKey).(string)
	return actor, ok && actor != ""
}
