package store

import (
	"context"
	"database/sql"
	"errors"
)

// CredentialStore maneja la tabla password (a lo más una fila por usuario).
type CredentialStore struct {
	db *sql.DB
}

// NewCredentialStore crea el repositorio sobre la conexión compartida.
func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// MasterHash retorna el hash bcrypt del master password del usuario.
// Fila ausente o password NULL retornan hash vacío sin error: "no
// configurado" es un estado normal, no una falla del store.
func (s *CredentialStore) MasterHash(ctx context.Context, userID int64) (string, error) {
	var hash sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT password FROM password WHERE user_id = ? LIMIT 1`, userID,
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	if !hash.Valid {
		return "", nil
	}
	return hash.String, nil
}

// UpsertMasterHash crea o sobreescribe la credencial del usuario,
// keyed por user_id. La fila nunca se elimina desde este sistema.
func (s *CredentialStore) UpsertMasterHash(ctx context.Context, userID int64, hash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password (user_id, password) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE password = VALUES(password)
	`, userID, hash)
	return err
}

// ClearMasterHash deja la credencial en NULL sin eliminar la fila: el gate
// vuelve a mandar al usuario a /security a configurar una nueva. Retorna
// false si el usuario no tenía credencial que limpiar.
func (s *CredentialStore) ClearMasterHash(ctx context.Context, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE password SET password = NULL WHERE user_id = ? AND password IS NOT NULL`, userID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
