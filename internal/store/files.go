package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yourorg/cloudlock/internal/models"
)

// FileStore maneja la tabla myfiles: una fila por usuario con la secuencia
// JSON de FileRecord en orden de subida.
type FileStore struct {
	db *sql.DB
}

// NewFileStore crea el repositorio sobre la conexión compartida.
func NewFileStore(db *sql.DB) *FileStore {
	return &FileStore{db: db}
}

// Row retorna la fila del usuario. Si no existe, retorna una fila vacía
// (cero archivos, secured=false) sin error.
func (s *FileStore) Row(ctx context.Context, userID int64) (*models.FileRow, error) {
	var (
		raw     []byte
		secured bool
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT files, secured FROM myfiles WHERE user_id = ? LIMIT 1`, userID,
	).Scan(&raw, &secured)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.FileRow{UserID: userID, Files: []models.FileRecord{}}, nil
		}
		return nil, err
	}

	var files []models.FileRecord
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, fmt.Errorf("myfiles: files JSON corrupto para user %d: %w", userID, err)
	}

	return &models.FileRow{UserID: userID, Files: files, Secured: secured}, nil
}

// AppendFile agrega un FileRecord al final de la secuencia del usuario.
// El read-modify-write va dentro de una transacción con SELECT ... FOR UPDATE
// para que dos uploads simultáneos del mismo usuario no se pisen el append.
func (s *FileStore) AppendFile(ctx context.Context, userID int64, rec models.FileRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.QueryRowContext(ctx,
		`SELECT files FROM myfiles WHERE user_id = ? FOR UPDATE`, userID,
	).Scan(&raw)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		data, merr := json.Marshal([]models.FileRecord{rec})
		if merr != nil {
			return merr
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO myfiles (user_id, files, secured) VALUES (?, ?, 0)`, userID, data,
		); err != nil {
			return err
		}

	case err != nil:
		return err

	default:
		var files []models.FileRecord
		if err := json.Unmarshal(raw, &files); err != nil {
			return fmt.Errorf("myfiles: files JSON corrupto para user %d: %w", userID, err)
		}
		files = append(files, rec)
		data, merr := json.Marshal(files)
		if merr != nil {
			return merr
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE myfiles SET files = ? WHERE user_id = ?`, data, userID,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// MarkSecured deja registrado que el usuario completó al menos un unlock
// exitoso. Transición one-way: nunca se resetea, e idempotente si ya está
// en true.
func (s *FileStore) MarkSecured(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO myfiles (user_id, files, secured) VALUES (?, '[]', 1)
		ON DUPLICATE KEY UPDATE secured = 1
	`, userID)
	return err
}
