package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/meech-ward/qr-full-stack/internal/models"
	jwtPkg "github.com/meech-ward/qr-full-stack/pkg/jwt"
	"go.uber.org/zap"
)

// AdminAuth requires a bearer token signed with secret. With an empty
// secret the routes stay open, matching a local setup without auth.
func AdminAuth(secret string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}

		// Get authorization header
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("Authorization header is required"))
		}

		// Check if the header starts with "Bearer "
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("Invalid authorization header format"))
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := jwtPkg.ValidateToken(secret, tokenString)
		if err != nil {
			logger.Info("token validation failed", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("Invalid token"))
		}

		if role, _ := claims["role"].(string); role != jwtPkg.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse("Admin role required"))
		}

		subject, _ := claims["sub"].(string)
		c.Locals("subject", subject)

		return c.Next()
	}
}
