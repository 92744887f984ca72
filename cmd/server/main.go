package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	"github.com/yourorg/cloudlock/internal/cache"
	appdb "github.com/yourorg/cloudlock/internal/db"
	"github.com/yourorg/cloudlock/internal/handlers"
	"github.com/yourorg/cloudlock/internal/routes"
)

func main() {
	_ = godotenv.Load()

	app := fiber.New()
	app.Use(logger.New())

	// ============================================================================
	// DB CONNECTION
	// ============================================================================
	var dbReady bool

	go func() {
		for {
			db, err := appdb.Connect()
			if err != nil {
				log.Printf("db connect error: %v (retrying in 5s)", err)
				time.Sleep(5 * time.Second)
				continue
			}
			if err := appdb.EnsureSchema(db); err != nil {
				log.Printf("ensure schema error: %v (retrying in 5s)", err)
				time.Sleep(5 * time.Second)
				continue
			}
			handlers.Setup(db)
			routes.Register(app, db)
			dbReady = true
			log.Printf("✅ Database ready and routes registered")
			return
		}
	}()

	// Wait briefly for DB to be ready
	for i := 0; i < 10 && !dbReady; i++ {
		time.Sleep(500 * time.Millisecond)
	}

	// ============================================================================
	// GRACEFUL SHUTDOWN
	// ============================================================================
	// Capturar señales de terminación (Ctrl+C, kill, etc.)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("\n🛑 Señal de terminación recibida, cerrando servidor...")

		cache.StopCaches()

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️  Error cerrando servidor: %v", err)
		}

		log.Println("✅ Servidor cerrado correctamente")
		os.Exit(0)
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("🚀 Servidor escuchando en :%s", port)
	log.Println("📍 Endpoints disponibles:")
	log.Println("   ═══ AUTENTICACIÓN ═══")
	log.Println("   POST /auth/register            - Crear cuenta (sesión incluida)")
	log.Println("   POST /auth/login               - Iniciar sesión")
	log.Println("   POST /auth/logout              - Cerrar sesión")
	log.Println("")
	log.Println("   ═══ MASTER PASSWORD ═══")
	log.Println("   GET  /security/status          - ¿Credencial configurada?")
	log.Println("   POST /security/password        - Configurar o rotar master password")
	log.Println("")
	log.Println("   ═══ ARCHIVOS ═══")
	log.Println("   GET  /api/files                - Listar (conteo si está bloqueado)")
	log.Println("   POST /api/files/unlock         - Desbloquear biblioteca")
	log.Println("   POST /api/files/activate       - Activar archivo individual")
	log.Println("   POST /api/files/upload         - Subir archivo al media host")
	log.Println("   GET  /api/files/download       - URL de descarga forzada")
	log.Println("")
	log.Println("💡 Presiona Ctrl+C para detener")
	log.Println("💡 Rutas no excluidas pasan por el access gate (login → setup → allow)")

	if err := app.Listen(":" + port); err != nil {
		log.Fatal(err)
	}
}
