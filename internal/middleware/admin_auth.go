package middleware

import (
	"crypto/subtle"
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
)

// RequireAdminKey guards the employee endpoints (verify, remove, pending
// queue) with the shared key from ADMIN_API_KEY. The contest runs with a
// single employee console, so a shared key matches the operational model;
// per-user auth is out of scope.
func RequireAdminKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		adminKey := os.Getenv("ADMIN_API_KEY")
		if adminKey == "" {
			// Log error but don't expose to client
			fmt.Println("ERROR: ADMIN_API_KEY not set")
			return c.Status(500).JSON(fiber.Map{
				"error": "Server configuration error",
			})
		}

		provided := c.Get("X-Admin-Key")
		if provided == "" {
			return c.Status(401).JSON(fiber.Map{
				"error": "Missing admin key",
			})
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(adminKey)) != 1 {
			return c.Status(401).JSON(fiber.Map{
				"error": "Invalid admin key",
			})
		}

		return c.Next()
	}
}
