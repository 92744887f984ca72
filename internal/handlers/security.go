package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/cloudlock/internal/models"
	"github.com/yourorg/cloudlock/internal/validation"
)

// ============================================================================
// MASTER PASSWORD SETUP (/security)
// ============================================================================
// /security queda fuera del gate (allow-list explícita) para que un usuario
// autenticado sin credencial pueda llegar a configurarla sin caer en un loop
// de redirects. Por lo mismo, estos handlers validan la sesión por su cuenta.

// masterHashCost debe calzar bit a bit con el costo usado al verificar.
// El deployment original hasheaba con bcryptjs salt 10; DefaultCost es 10.
const masterHashCost = bcrypt.DefaultCost

// SecurityStatus handles GET /security y GET /security/status.
func SecurityStatus(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "not authenticated"})
	}

	hash, err := Credentials().MasterHash(c.UserContext(), user.ID)
	if err != nil {
		log.Printf("❌ Error consultando credencial de user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	secured := false
	if row, err := getFileStore().Row(c.UserContext(), user.ID); err == nil {
		secured = row.Secured
	}

	return c.Status(fiber.StatusOK).JSON(models.SecurityStatusResponse{
		Configured: hash != "",
		Secured:    secured,
	})
}

// SetMasterPassword handles POST /security/password.
// Crea o rota el master password: valida fortaleza y confirmación, hashea
// con bcrypt y hace upsert keyed por user_id. Una rotación vuelve a bloquear
// la biblioteca de la sesión actual.
func SetMasterPassword(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "not authenticated"})
	}

	var req models.SetMasterPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid json"})
	}

	if err := validation.ValidateMasterPassword(req.Password, req.ConfirmPassword); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Error: err.Error()})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), masterHashCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to secure password"})
	}

	if err := Credentials().UpsertMasterHash(c.UserContext(), user.ID, string(hash)); err != nil {
		log.Printf("❌ Error guardando master password de user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	getLockService().Reset(user.ID)

	log.Printf("🔑 Master password configurado para user %d", user.ID)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "master password configured",
	})
}
