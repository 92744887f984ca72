package handlers

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/cloudlock/internal/cache"
	"github.com/yourorg/cloudlock/internal/events"
	"github.com/yourorg/cloudlock/internal/lock"
	"github.com/yourorg/cloudlock/internal/mediahost"
	"github.com/yourorg/cloudlock/internal/models"
	"github.com/yourorg/cloudlock/internal/preview"
)

// ============================================================================
// FILE LIBRARY (/api/files)
// ============================================================================
// Toda la metadata vive en la fila myfiles del usuario; los bytes viven en el
// media host. El listado llega siempre (fetch-then-gate): lo que se retiene
// detrás del lock son las URLs, nunca el conteo.

func filesCacheKey(userID int64) string {
	return "files:" + strconv.FormatInt(userID, 10)
}

// userRow retorna la fila myfiles del usuario, con caché de 2 minutos.
func userRow(c *fiber.Ctx, userID int64) (*models.FileRow, error) {
	key := filesCacheKey(userID)
	if cached, found := cache.FilesCache.Get(key); found {
		if row, ok := cached.(*models.FileRow); ok {
			return row, nil
		}
	}

	row, err := getFileStore().Row(c.UserContext(), userID)
	if err != nil {
		return nil, err
	}
	cache.FilesCache.Set(key, row)
	return row, nil
}

// ListFiles handles GET /api/files.
// Mientras el lock esté cerrado la respuesta trae locked=true y el conteo;
// las URLs solo aparecen con la biblioteca desbloqueada. En modo per-file la
// lista llega con nombres y tipos pero con las URLs vacías hasta que cada
// archivo se active.
func ListFiles(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "not authenticated"})
	}

	row, err := userRow(c, user.ID)
	if err != nil {
		log.Printf("❌ Error leyendo archivos de user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	svc := getLockService()
	if svc.Unlocked(user.ID) {
		return c.Status(fiber.StatusOK).JSON(models.FileListResponse{
			Locked: false,
			Count:  len(row.Files),
			Files:  row.Files,
		})
	}

	if svc.Mode() == lock.ModeFile {
		// Copia con las URLs retenidas; el slice original va al caché
		redacted := make([]models.FileRecord, len(row.Files))
		for i, f := range row.Files {
			f.URL = ""
			f.PreviewURL = ""
			redacted[i] = f
		}
		return c.Status(fiber.StatusOK).JSON(models.FileListResponse{
			Locked: true,
			Count:  len(redacted),
			Files:  redacted,
		})
	}

	return c.Status(fiber.StatusOK).JSON(models.FileListResponse{
		Locked: true,
		Count:  len(row.Files),
	})
}

// lockErrorStatus mapea los errores del lock a status HTTP.
func lockErrorStatus(err error) int {
	switch {
	case errors.Is(err, lock.ErrLockedOut):
		return fiber.StatusTooManyRequests
	case errors.Is(err, lock.ErrEmptyPassword):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, lock.ErrNotConfigured):
		return fiber.StatusNotFound
	default: // ErrIncorrect
		return fiber.StatusUnauthorized
	}
}

// UnlockFiles handles POST /api/files/unlock (modo page).
// Un unlock exitoso es terminal por sesión: submits posteriores son no-op.
func UnlockFiles(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "not authenticated"})
	}

	var req models.UnlockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid json"})
	}

	state, err := getLockService().Submit(c.UserContext(), user.ID, req.Password)
	if err != nil {
		return c.Status(lockErrorStatus(err)).JSON(models.UnlockResponse{
			State: lock.StateLocked.String(),
			Error: err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(models.UnlockResponse{State: state.String()})
}

// ActivateFile handles POST /api/files/activate (modo per-file).
// La primera activación verifica el master password y registra el flag
// secured; las siguientes reutilizan el estado desbloqueado y no vuelven a
// pedir el password.
func ActivateFile(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "not authenticated"})
	}

	var req models.UnlockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid json"})
	}

	svc := getLockService()
	if !svc.Unlocked(user.ID) {
		if _, err := svc.Submit(c.UserContext(), user.ID, req.Password); err != nil {
			return c.Status(lockErrorStatus(err)).JSON(models.UnlockResponse{
				State: lock.StateLocked.String(),
				Error: err.Error(),
			})
		}
	}

	row, err := userRow(c, user.ID)
	if err != nil {
		log.Printf("❌ Error leyendo archivos de user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	if req.Index < 0 || req.Index >= len(row.Files) {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "file not found"})
	}

	return c.Status(fiber.StatusOK).JSON(row.Files[req.Index])
}

// UploadFile handles POST /api/files/upload (multipart).
// El binario va directo al media host; acá solo persistimos la metadata.
// Subir nunca requiere unlock: el lock protege la lectura, no la escritura.
func UploadFile(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "not authenticated"})
	}

	header, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "file field required"})
	}

	fileType := strings.TrimSpace(c.FormValue("file_type"))
	if fileType == "" {
		fileType = strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	}
	fileType = strings.ToLower(fileType)

	uploadID := events.NewUploadID()
	events.UploadStarted(uploadID, header.Filename, fileType, user.ID)
	log.Printf("📤 [UPLOAD %s] user %d sube %s (%s, %d bytes)",
		uploadID, user.ID, header.Filename, fileType, header.Size)

	src, err := header.Open()
	if err != nil {
		events.UploadFailed(uploadID, header.Filename, err.Error(), user.ID)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "cannot read upload"})
	}
	defer src.Close()

	url, err := getMediaClient().Upload(c.UserContext(), header.Filename, src)
	if err != nil {
		log.Printf("❌ [UPLOAD %s] Media host rechazó %s: %v", uploadID, header.Filename, err)
		events.UploadFailed(uploadID, header.Filename, err.Error(), user.ID)
		return c.Status(fiber.StatusBadGateway).JSON(models.ErrorResponse{Error: "upload to media host failed"})
	}

	rec := models.FileRecord{
		URL:        url,
		Name:       header.Filename,
		FileType:   fileType,
		UploadedAt: time.Now().UTC(),
	}

	// Miniatura best-effort: un snapshot fallido jamás hace fallar el upload
	if gen := getPreviewGen(); gen != nil && gen.Enabled() && preview.Previewable(fileType) {
		if thumb, perr := gen.Generate(c.UserContext(), url, header.Filename); perr == nil {
			rec.PreviewURL = thumb
		} else {
			log.Printf("⚠️ [UPLOAD %s] Preview falló: %v", uploadID, perr)
		}
	}

	if err := getFileStore().AppendFile(c.UserContext(), user.ID, rec); err != nil {
		// El binario ya vive en el host pero la metadata no quedó: el cliente
		// debe reintentar el registro, no re-subir los bytes.
		log.Printf("❌ [UPLOAD %s] Binario subido pero falló la metadata: %v", uploadID, err)
		events.UploadFailed(uploadID, header.Filename, "metadata persist failed", user.ID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "file uploaded but metadata could not be saved",
			"url":   url,
		})
	}

	cache.FilesCache.Delete(filesCacheKey(user.ID))
	events.UploadCompleted(uploadID, header.Filename, url, user.ID)
	log.Printf("✅ [UPLOAD %s] %s registrado para user %d", uploadID, header.Filename, user.ID)

	return c.Status(fiber.StatusCreated).JSON(models.UploadResponse{
		UploadID: uploadID,
		File:     rec,
	})
}

// DownloadFile handles GET /api/files/download?index=n.
// Requiere biblioteca desbloqueada; retorna la URL con el segmento de
// descarga forzada para que el browser la entregue como attachment.
func DownloadFile(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "not authenticated"})
	}

	if !getLockService().Unlocked(user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse{Error: "library is locked"})
	}

	index, err := strconv.Atoi(c.Query("index", "-1"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid index"})
	}

	row, rerr := userRow(c, user.ID)
	if rerr != nil {
		log.Printf("❌ Error leyendo archivos de user %d: %v", user.ID, rerr)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	if index < 0 || index >= len(row.Files) {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: fmt.Sprintf("no file at index %d", index),
		})
	}

	rec := row.Files[index]
	return c.Status(fiber.StatusOK).JSON(models.DownloadResponse{
		URL:  mediahost.ForceDownloadURL(rec.URL),
		Name: rec.Name,
	})
}
