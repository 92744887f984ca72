package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/cloudlock/internal/events"
	"github.com/yourorg/cloudlock/internal/gate"
	"github.com/yourorg/cloudlock/internal/identity"
)

// ============================================================================
// ACCESS GATE MIDDLEWARE
// ============================================================================
// Corre en TODOS los requests antes de cualquier handler y aplica la
// decisión del gate: pasar, redirigir al login o redirigir al setup del
// master password.
//
// Importante: identity.GetUser puede refrescar el token de sesión y setear
// la cookie sobre la respuesta actual. Los redirects se emiten sobre esa
// misma respuesta, así que el refresh viaja también en los REDIRECT_*,
// nunca se pierde en una respuesta nueva y vacía.

// AccessGate crea el middleware del gate.
func AccessGate(provider *identity.Provider, creds gate.CredentialSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()

		if gate.Excluded(path) {
			return c.Next()
		}

		user := provider.GetUser(c)

		decision := gate.Decide(c.UserContext(), path, user, creds)
		switch decision {
		case gate.Allow:
			return c.Next()

		case gate.RedirectLogin:
			events.LogInfo("gate: redirect to login", map[string]interface{}{"path": path})
			return c.Redirect(decision.Target(), fiber.StatusFound)

		case gate.RedirectSetup:
			log.Printf("🔐 [GATE] user %d sin master password, redirigiendo a %s", user.ID, decision.Target())
			events.LogInfo("gate: redirect to setup", map[string]interface{}{"path": path, "user_id": user.ID})
			return c.Redirect(decision.Target(), fiber.StatusFound)

		default:
			// Decisión desconocida: bloquear antes que filtrar acceso
			return c.Redirect(gate.SetupTarget, fiber.StatusFound)
		}
	}
}
