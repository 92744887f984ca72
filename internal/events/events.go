package events

import (
	"log"
	"os"

	"github.com/google/uuid"
)

var (
	enabled = false
)

func init() {
	// Leer la variable de entorno CLOUDLOCK_EVENTS_DASHBOARD
	enabled = os.Getenv("CLOUDLOCK_EVENTS_DASHBOARD") == "true"
	if enabled {
		log.Println("📡 Events Dashboard habilitado")
	}
}

// IsEnabled retorna si el dashboard de eventos está habilitado
func IsEnabled() bool {
	return enabled
}

// LogInfo envía un log de nivel info al dashboard
func LogInfo(message string, metadata map[string]interface{}) {
	if !enabled {
		return
	}
	Send("log", "backend", "info", message, metadata)
}

// LogWarn envía un log de nivel warn al dashboard
func LogWarn(message string, metadata map[string]interface{}) {
	if !enabled {
		return
	}
	Send("log", "backend", "warn", message, metadata)
}

// LogError envía un log de nivel error al dashboard
func LogError(message string, metadata map[string]interface{}) {
	if !enabled {
		return
	}
	Send("log", "backend", "error", message, metadata)
}

// NewUploadID genera el identificador de un upload en curso
func NewUploadID() string {
	return uuid.NewString()
}

// UploadStarted notifica el inicio de un upload al dashboard
func UploadStarted(uploadID, filename, fileType string, userID int64) {
	if !enabled {
		return
	}
	Send("upload", "backend", "info", "upload started", map[string]interface{}{
		"upload_id": uploadID,
		"name":      filename,
		"file_type": fileType,
		"user_id":   userID,
		"status":    "UPLOADING",
	})
}

// UploadCompleted notifica un upload exitoso con su URL durable
func UploadCompleted(uploadID, filename, url string, userID int64) {
	if !enabled {
		return
	}
	Send("upload", "backend", "info", "upload completed", map[string]interface{}{
		"upload_id": uploadID,
		"name":      filename,
		"url":       url,
		"user_id":   userID,
		"status":    "SUCCESS",
	})
}

// UploadFailed notifica un upload fallido
func UploadFailed(uploadID, filename, reason string, userID int64) {
	if !enabled {
		return
	}
	Send("upload", "backend", "error", "upload failed", map[string]interface{}{
		"upload_id": uploadID,
		"name":      filename,
		"error":     reason,
		"user_id":   userID,
		"status":    "ERROR",
	})
}
