package models

// SecondaryCredential es la fila de la tabla password: el hash bcrypt del
// master password de un usuario. Hash vacío significa "no configurado".
type SecondaryCredential struct {
	UserID       int64  `json:"user_id"`
	PasswordHash string `json:"-"`
}

// Configured indica si el usuario ya completó el setup del master password.
func (c SecondaryCredential) Configured() bool {
	return c.PasswordHash != ""
}

// SetMasterPasswordRequest es el body de POST /api/security/password.
type SetMasterPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// SecurityStatusResponse responde GET /api/security/status.
type SecurityStatusResponse struct {
	Configured bool `json:"configured"`
	Secured    bool `json:"secured"`
}

// UnlockRequest es el body de POST /api/files/unlock y /api/files/activate.
type UnlockRequest struct {
	Password string `json:"password"`
	Index    int    `json:"index,omitempty"` // solo modo per-file
}

// UnlockResponse describe el estado del lock después de un submit.
type UnlockResponse struct {
	State string `json:"state"` // locked | unlocked
	Error string `json:"error,omitempty"`
}
