package routes

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/yourorg/cloudlock/internal/events"
	"github.com/yourorg/cloudlock/internal/handlers"
	"github.com/yourorg/cloudlock/internal/middleware"
)

func Register(app *fiber.App, db *sql.DB) {
	// ============================================================================
	// MIDDLEWARE GLOBAL
	// ============================================================================
	// El access gate corre sobre TODA ruta no excluida: decide Allow, redirect
	// a login o redirect al setup del master password antes de cualquier handler.
	app.Use(middleware.MetricsMiddleware())
	app.Use(middleware.RateLimiter()) // 100 req/min por IP
	app.Use(middleware.AccessGate(handlers.Provider(), handlers.Credentials()))

	// ============================================================================
	// AUTENTICACIÓN (excluida del gate, con rate limiting estricto)
	// ============================================================================
	authGroup := app.Group("/auth")
	authGroup.Use(middleware.StrictRateLimiter()) // 10 req/min

	authGroup.Get("/login", handlers.LoginPage)
	authGroup.Post("/login", handlers.Login)
	authGroup.Post("/register", handlers.Register)
	authGroup.Post("/logout", handlers.Logout)

	// ============================================================================
	// SETUP DEL MASTER PASSWORD (excluido del gate: acá se llega a configurarlo)
	// ============================================================================
	securityGroup := app.Group("/security")
	securityGroup.Get("/", handlers.SecurityStatus)
	securityGroup.Get("/status", handlers.SecurityStatus)
	securityGroup.Post("/password", middleware.StrictRateLimiter(), handlers.SetMasterPassword)

	// ============================================================================
	// API DE ARCHIVOS (detrás del gate)
	// ============================================================================
	api := app.Group("/api")

	// Health check (excluido del gate, sin rate limiting extra)
	api.Get("/health", handlers.Health)

	filesGroup := api.Group("/files")
	filesGroup.Get("/", handlers.ListFiles)
	filesGroup.Post("/upload", handlers.UploadFile)
	filesGroup.Get("/download", handlers.DownloadFile)

	// El unlock lleva su propio rate limit además del lockout del lock service
	filesGroup.Post("/unlock", middleware.UnlockRateLimiter(), handlers.UnlockFiles)
	filesGroup.Post("/activate", middleware.UnlockRateLimiter(), handlers.ActivateFile)

	// ============================================================================
	// PÁGINAS (shells JSON detrás del gate; el frontend renderiza)
	// ============================================================================
	app.Get("/dashboard", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"page": "dashboard"})
	})
	app.Get("/myfiles", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"page": "myfiles"})
	})

	// ============================================================================
	// EVENTS DASHBOARD WEBSOCKET
	// ============================================================================
	// WebSocket para el dashboard de observabilidad (siempre disponible;
	// emite solo si CLOUDLOCK_EVENTS_DASHBOARD=true)
	app.Use("/ws/events", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/events", websocket.New(func(c *websocket.Conn) {
		events.HandleWebSocketFiber(c)
	}))
}
