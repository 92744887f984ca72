package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// ============================================================================
// RATE LIMITING MIDDLEWARE
// ============================================================================
// Protege el backend contra abuso. El limiter de unlock existe porque la
// comparación del master password no tenía ningún throttle en la app
// original: fuerza bruta ilimitada. Acá se corta en la ruta además del
// lockout propio del lock service.

// RateLimiter - Limitador general para todos los endpoints
// 100 requests por minuto por IP
func RateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate limit exceeded",
				"message":     "demasiadas solicitudes, intenta de nuevo en un minuto",
				"retry_after": 60,
			})
		},
		SkipFailedRequests:     false,
		SkipSuccessfulRequests: false,
	})
}

// StrictRateLimiter - Limitador para endpoints de autenticación
// 10 requests por minuto (protege contra fuerza bruta del login)
func StrictRateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate limit exceeded",
				"message":     "demasiadas solicitudes de autenticación, intenta de nuevo en un minuto",
				"retry_after": 60,
			})
		},
	})
}

// UnlockRateLimiter - Limitador para los intentos de master password
// 10 intentos por minuto por IP+ruta
func UnlockRateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			// IP + endpoint para no mezclar unlock con activate
			return c.IP() + ":" + c.Path()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate limit exceeded",
				"message":     "demasiados intentos de master password, intenta de nuevo en un minuto",
				"retry_after": 60,
			})
		},
	})
}
