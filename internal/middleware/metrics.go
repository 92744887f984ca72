package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/yourorg/cloudlock/internal/events"
)

// MetricsMiddleware captura métricas de cada request y las difunde al
// dashboard de eventos (solo si está habilitado)
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !events.IsEnabled() {
			return c.Next()
		}

		start := time.Now()

		err := c.Next()

		duration := time.Since(start)

		metadata := map[string]interface{}{
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      c.Response().StatusCode(),
			"duration_ms": duration.Milliseconds(),
			"ip":          c.IP(),
		}

		level := "info"
		if c.Response().StatusCode() >= 400 {
			level = "warn"
		}
		if c.Response().StatusCode() >= 500 {
			level = "error"
		}

		message := c.Method() + " " + c.Path()

		events.Send("log", "backend", level, message, metadata)

		return err
	}
}
