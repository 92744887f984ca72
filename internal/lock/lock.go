package lock

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/cloudlock/internal/cache"
)

// ============================================================================
// SECONDARY LOCK - MÁQUINA DE ESTADOS DEL MASTER PASSWORD
// ============================================================================
// El gate deja pasar la navegación cuando existe una credencial; este lock
// verifica que el caller CONOZCA el secreto antes de revelar la biblioteca.
// En la app original esto vivía en el cliente como un montón de flags
// (open/loading/error); acá es una FSM explícita con un único reducer:
//
//   Locked ──submit──▶ Verifying ──match──▶ Unlocked (terminal por sesión)
//                          │
//                          └─mismatch/ausente──▶ Error(msg) ──submit──▶ Verifying
//
// El estado vive en memoria por usuario y dura lo que dure el proceso (el
// equivalente al "page lifetime" original). Tras un reinicio todo el mundo
// vuelve a Locked, que es el default seguro.

// State es el estado del lock de un usuario.
type State int

const (
	StateLocked State = iota
	StateVerifying
	StateUnlocked
	StateError
)

func (s State) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateVerifying:
		return "verifying"
	case StateUnlocked:
		return "unlocked"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Event es un evento del reducer.
type Event int

const (
	EvSubmit Event = iota
	EvMatch
	EvMismatch
	EvReset
)

// Transition es el único reducer de la FSM. Unlocked es terminal: ningún
// evento lo saca de ahí.
func Transition(s State, ev Event) State {
	if s == StateUnlocked {
		return StateUnlocked
	}
	switch ev {
	case EvSubmit:
		return StateVerifying
	case EvMatch:
		return StateUnlocked
	case EvMismatch:
		return StateError
	case EvReset:
		return StateLocked
	default:
		return s
	}
}

// Mode selecciona la granularidad del unlock.
type Mode string

const (
	// ModePage desbloquea toda la biblioteca con un submit exitoso.
	ModePage Mode = "page"
	// ModeFile verifica en la primera activación de un archivo individual y
	// además registra el flag secured en la fila myfiles.
	ModeFile Mode = "file"
)

// Mensajes de error superados a la UI. El mensaje de credencial ausente es
// distinto al de password incorrecto a propósito: es feedback al usuario, no
// un borde de seguridad (la página ya implica que la credencial existe).
var (
	ErrEmptyPassword = errors.New("Password required.")
	ErrNotConfigured = errors.New("No password set for this user.")
	ErrIncorrect     = errors.New("Incorrect password. Access denied.")
	ErrLockedOut     = errors.New("Too many failed attempts. Try again later.")
)

// CredentialSource entrega el hash bcrypt a comparar (misma fila que usa el
// gate). El hash de setup y el de verificación deben ser bit-a-bit el mismo
// algoritmo y costo.
type CredentialSource interface {
	MasterHash(ctx context.Context, userID int64) (string, error)
}

// SecuredMarker registra el flag one-way secured=true (solo modo per-file).
type SecuredMarker interface {
	MarkSecured(ctx context.Context, userID int64) error
}

type session struct {
	state    State
	errorMsg string
}

// Service mantiene el estado del lock por usuario y aplica el lockout.
type Service struct {
	mu       sync.Mutex
	sessions map[int64]*session

	creds CredentialSource
	files SecuredMarker

	mode        Mode
	maxAttempts int
	cooldown    time.Duration
	lockouts    *cache.Cache
}

// Config agrupa los parámetros del lock.
type Config struct {
	Mode        Mode
	MaxAttempts int
	Cooldown    time.Duration
}

// ConfigFromEnv lee LOCK_MODE, LOCK_MAX_ATTEMPTS y LOCK_COOLDOWN.
func ConfigFromEnv() Config {
	cfg := Config{Mode: ModePage, MaxAttempts: 5, Cooldown: 5 * time.Minute}

	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOCK_MODE"))) {
	case "", string(ModePage):
		cfg.Mode = ModePage
	case string(ModeFile):
		cfg.Mode = ModeFile
	default:
		log.Printf("⚠️ LOCK_MODE inválido %q, usando %q", os.Getenv("LOCK_MODE"), ModePage)
	}

	if v := os.Getenv("LOCK_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxAttempts = n
		} else {
			log.Printf("⚠️ LOCK_MAX_ATTEMPTS inválido %q, usando %d", v, cfg.MaxAttempts)
		}
	}

	if v := os.Getenv("LOCK_COOLDOWN"); v != "" {
		if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
			cfg.Cooldown = dur
		} else {
			log.Printf("⚠️ LOCK_COOLDOWN inválido %q, usando %s", v, cfg.Cooldown)
		}
	}

	return cfg
}

// NewService crea el lock service. lockouts puede compartirse con otros usos
// del caché; las keys van con prefijo "lockout:".
func NewService(creds CredentialSource, files SecuredMarker, lockouts *cache.Cache, cfg Config) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.Mode == "" {
		cfg.Mode = ModePage
	}
	return &Service{
		sessions:    make(map[int64]*session),
		creds:       creds,
		files:       files,
		mode:        cfg.Mode,
		maxAttempts: cfg.MaxAttempts,
		cooldown:    cfg.Cooldown,
		lockouts:    lockouts,
	}
}

// Mode retorna la granularidad configurada.
func (s *Service) Mode() Mode {
	return s.mode
}

// State retorna el estado actual del lock del usuario.
func (s *Service) State(userID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess.state
	}
	return StateLocked
}

// LastError retorna el último mensaje de error superado ("" si no hay).
func (s *Service) LastError(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess.errorMsg
	}
	return ""
}

// Unlocked indica si la biblioteca del usuario ya está desbloqueada.
func (s *Service) Unlocked(userID int64) bool {
	return s.State(userID) == StateUnlocked
}

// Submit procesa un intento de unlock. Retorna el estado resultante y el
// error a superar a la UI (nil en éxito). Un submit sobre un lock ya
// desbloqueado es un no-op.
func (s *Service) Submit(ctx context.Context, userID int64, plaintext string) (State, error) {
	sess := s.session(userID)

	s.mu.Lock()
	if sess.state == StateUnlocked {
		s.mu.Unlock()
		return StateUnlocked, nil
	}

	if plaintext == "" {
		sess.state = Transition(sess.state, EvMismatch)
		sess.errorMsg = ErrEmptyPassword.Error()
		s.mu.Unlock()
		return StateError, ErrEmptyPassword
	}

	if s.lockedOut(userID) {
		sess.state = Transition(sess.state, EvMismatch)
		sess.errorMsg = ErrLockedOut.Error()
		s.mu.Unlock()
		return StateError, ErrLockedOut
	}

	sess.state = Transition(sess.state, EvSubmit) // → Verifying
	s.mu.Unlock()

	// Suspend point: la comparación parte del hash recién leído, nunca de
	// estado viejo.
	hash, err := s.creds.MasterHash(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil || hash == "" {
		sess.state = Transition(sess.state, EvMismatch)
		sess.errorMsg = ErrNotConfigured.Error()
		return StateError, ErrNotConfigured
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) != nil {
		s.recordFailure(userID)
		sess.state = Transition(sess.state, EvMismatch)
		sess.errorMsg = ErrIncorrect.Error()
		return StateError, ErrIncorrect
	}

	sess.state = Transition(sess.state, EvMatch) // → Unlocked, terminal
	sess.errorMsg = ""
	s.clearFailures(userID)

	// En modo per-file, la primera verificación exitosa registra el flag
	// secured. Unlocked es terminal, así que el upsert corre una sola vez
	// por sesión (y es idempotente en el store si ya estaba en true).
	if s.mode == ModeFile && s.files != nil {
		if err := s.files.MarkSecured(ctx, userID); err != nil {
			log.Printf("⚠️ [LOCK] No se pudo registrar secured para user %d: %v", userID, err)
		}
	}

	log.Printf("🔓 [LOCK] Usuario %d desbloqueó su biblioteca", userID)
	return StateUnlocked, nil
}

// Reset vuelve el lock del usuario a Locked (p.ej. al rotar el master
// password). No toca el flag secured: esa transición es one-way.
func (s *Service) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		sess.state = Transition(StateLocked, EvReset)
		sess.errorMsg = ""
	}
}

func (s *Service) session(userID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{state: StateLocked}
		s.sessions[userID] = sess
	}
	return sess
}

func lockoutKey(userID int64) string {
	return "lockout:" + strconv.FormatInt(userID, 10)
}

func (s *Service) lockedOut(userID int64) bool {
	if s.lockouts == nil {
		return false
	}
	v, found := s.lockouts.Get(lockoutKey(userID))
	if !found {
		return false
	}
	count, _ := v.(int)
	return count >= s.maxAttempts
}

// recordFailure incrementa el contador de fallos; la entrada expira sola
// con el cooldown, que también es la duración del lockout.
func (s *Service) recordFailure(userID int64) {
	if s.lockouts == nil {
		return
	}
	count := 0
	if v, found := s.lockouts.Get(lockoutKey(userID)); found {
		count, _ = v.(int)
	}
	count++
	s.lockouts.SetWithTTL(lockoutKey(userID), count, s.cooldown)
	if count >= s.maxAttempts {
		log.Printf("🚫 [LOCK] Usuario %d bloqueado por %s tras %d intentos fallidos", userID, s.cooldown, count)
	}
}

func (s *Service) clearFailures(userID int64) {
	if s.lockouts != nil {
		s.lockouts.Delete(lockoutKey(userID))
	}
}
