package handlers

import (
	"database/sql"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/cloudlock/internal/cache"
	"github.com/yourorg/cloudlock/internal/identity"
	"github.com/yourorg/cloudlock/internal/lock"
	"github.com/yourorg/cloudlock/internal/mediahost"
	"github.com/yourorg/cloudlock/internal/models"
	"github.com/yourorg/cloudlock/internal/preview"
	"github.com/yourorg/cloudlock/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// package-level dependencies
var (
	setupOnce   sync.Once    // Garantiza inicialización única
	setupMu     sync.RWMutex // Protege acceso a variables globales
	dbConn      *sql.DB
	provider    *identity.Provider
	credStore   *store.CredentialStore
	fileStore   *store.FileStore
	lockService *lock.Service
	mediaClient *mediahost.Client
	previewGen  *preview.Generator
)

// Setup wires shared dependencies for handlers. Call this during app bootstrap.
func Setup(db *sql.DB) {
	setupOnce.Do(func() {
		setupMu.Lock()
		defer setupMu.Unlock()

		dbConn = db
		provider = identity.NewProviderFromEnv()
		credStore = store.NewCredentialStore(db)
		fileStore = store.NewFileStore(db)

		cache.InitCaches()

		lockService = lock.NewService(credStore, fileStore, cache.LockoutCache, lock.ConfigFromEnv())
		log.Printf("🔒 Lock configurado en modo %q", lockService.Mode())

		mediaClient = mediahost.NewClient()
		previewGen = preview.NewGenerator(mediaClient)
	})
}

// getDBConn retorna la conexión de base de datos de forma segura
func getDBConn() *sql.DB {
	setupMu.RLock()
	defer setupMu.RUnlock()
	return dbConn
}

// Provider retorna el identity provider compartido (lo usa el gate)
func Provider() *identity.Provider {
	setupMu.RLock()
	defer setupMu.RUnlock()
	return provider
}

// Credentials retorna el repositorio de credenciales (lo usa el gate)
func Credentials() *store.CredentialStore {
	setupMu.RLock()
	defer setupMu.RUnlock()
	return credStore
}

func getFileStore() *store.FileStore {
	setupMu.RLock()
	defer setupMu.RUnlock()
	return fileStore
}

func getLockService() *lock.Service {
	setupMu.RLock()
	defer setupMu.RUnlock()
	return lockService
}

func getMediaClient() *mediahost.Client {
	setupMu.RLock()
	defer setupMu.RUnlock()
	return mediaClient
}

func getPreviewGen() *preview.Generator {
	setupMu.RLock()
	defer setupMu.RUnlock()
	return previewGen
}

// currentUser resuelve la sesión del request (memoizada por el provider).
func currentUser(c *fiber.Ctx) *identity.User {
	p := Provider()
	if p == nil {
		return nil
	}
	return p.GetUser(c)
}

// Register handles POST /auth/register.
func Register(c *fiber.Ctx) error {
	db := getDBConn()
	if db == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "server not ready"})
	}
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid json"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if req.Username == "" || req.Email == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Error: "username and email required"})
	}
	if !strings.Contains(req.Email, "@") {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Error: "invalid email"})
	}
	if req.Password == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Error: "password required"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to secure password"})
	}

	res, err := db.Exec(`
		INSERT INTO users (username, email, name, password_hash)
		VALUES (?, ?, ?, ?)
	`, req.Username, req.Email, req.Name, string(hash))
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{Error: "username or email already exists"})
		}
		log.Printf("❌ Error insertando usuario: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	userID, _ := res.LastInsertId()
	log.Printf("✅ Usuario registrado: id=%d, username=%s", userID, req.Username)

	token, expiresAt, err := Provider().IssueToken(userID, req.Username, req.Email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to sign token"})
	}
	Provider().SetSessionCookie(c, token, expiresAt)
	c.Set("Cache-Control", "no-store")
	return c.Status(fiber.StatusCreated).JSON(models.LoginResponse{
		Token:     token,
		User:      models.UserDTO{ID: userID, Username: req.Username, Name: req.Name, Email: req.Email},
		ExpiresAt: expiresAt,
	})
}

// Login handles POST /auth/login.
func Login(c *fiber.Ctx) error {
	db := getDBConn()
	if db == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "server not ready"})
	}
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid json"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || strings.TrimSpace(req.Password) == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Error: "username and password required"})
	}

	var (
		id                                  int64
		username, email, name, passwordHash string
	)
	err := db.QueryRow(`SELECT id, username, email, name, password_hash FROM users WHERE username = ?`, req.Username).
		Scan(&id, &username, &email, &name, &passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "invalid credentials"})
		}
		log.Printf("❌ Error consultando usuario: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "invalid credentials"})
	}
	token, expiresAt, err := Provider().IssueToken(id, username, email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to sign token"})
	}
	Provider().SetSessionCookie(c, token, expiresAt)
	c.Set("Cache-Control", "no-store")
	return c.Status(fiber.StatusOK).JSON(models.LoginResponse{
		Token:     token,
		User:      models.UserDTO{ID: id, Username: username, Name: name, Email: email},
		ExpiresAt: expiresAt,
	})
}

// LoginPage handles GET /auth/login (target del redirect del gate).
func LoginPage(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"page":    "login",
		"message": "authentication required",
	})
}

// Logout handles POST /auth/logout: borra la cookie de sesión.
func Logout(c *fiber.Ctx) error {
	c.ClearCookie(identity.CookieName)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "logged out"})
}
