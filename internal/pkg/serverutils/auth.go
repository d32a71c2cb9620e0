package serverutils

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// APIKeyMiddleware guards chat endpoints with a static shared key carried in
// the X-API-Key header. Comparison is constant time.
func APIKeyMiddleware(apiKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		provided := c.Get("X-API-Key")
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			return NewUnauthorizedError()
		}
		return c.Next()
	}
}
