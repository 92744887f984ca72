package gate

import (
	"context"
	"strings"

	"github.com/yourorg/cloudlock/internal/identity"
)

// ============================================================================
// EDGE ACCESS GATE
// ============================================================================
// Decide, para cada request entrante, si se deja pasar, se redirige al login
// o se redirige al setup del master password. La decisión es efímera: nunca
// se persiste.
//
// Orden estricto del algoritmo:
//   1. Path excluido            → Allow (sin tocar sesión ni base de datos)
//   2. Sin sesión               → RedirectLogin (sin consultar la tabla password)
//   3. Sin credencial válida    → RedirectSetup (fail closed: un error del
//      store cuenta como credencial ausente)
//   4. Credencial configurada   → Allow

// Decision es el resultado del gate para un request.
type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	RedirectSetup
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "ALLOW"
	case RedirectLogin:
		return "REDIRECT_LOGIN"
	case RedirectSetup:
		return "REDIRECT_SETUP_SECONDARY"
	default:
		return "UNKNOWN"
	}
}

// Redirect targets del gate.
const (
	LoginTarget = "/auth/login"
	SetupTarget = "/security"
)

// Target retorna el path de redirect asociado a la decisión ("" para Allow).
func (d Decision) Target() string {
	switch d {
	case RedirectLogin:
		return LoginTarget
	case RedirectSetup:
		return SetupTarget
	default:
		return ""
	}
}

// CredentialSource entrega el hash del master password de un usuario.
// Retorna hash vacío cuando no hay fila o el hash está vacío/NULL.
type CredentialSource interface {
	MasterHash(ctx context.Context, userID int64) (string, error)
}

// excludedPrefixes se permiten sin ningún chequeo. Incluye explícitamente
// /auth Y /security: las revisiones anteriores del middleware divergían en
// esto y se adoptó la más defensiva (allow-list de ambos). Sin la exclusión
// de /security el gate redirige al setup... que vuelve a pasar por el gate.
var excludedPrefixes = []string{
	"/auth",
	"/security",
	"/static",
	"/ws/events",
}

// excludedExact son paths puntuales fuera del gate.
var excludedExact = []string{
	"/favicon.ico",
	"/api/health",
}

// Excluded determina si un path queda fuera del gate.
func Excluded(path string) bool {
	for _, p := range excludedExact {
		if path == p {
			return true
		}
	}
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Decide produce la decisión de acceso para un request.
// user es la sesión ya resuelta (nil si el caller es anónimo); creds se
// consulta solo cuando hay sesión y el path no está excluido.
func Decide(ctx context.Context, path string, user *identity.User, creds CredentialSource) Decision {
	if Excluded(path) {
		return Allow
	}

	if user == nil {
		// Un caller anónimo jamás debe gatillar una consulta al store
		return RedirectLogin
	}

	hash, err := creds.MasterHash(ctx, user.ID)
	if err != nil || hash == "" {
		// Fila ausente, hash vacío o error del store: fail closed
		return RedirectSetup
	}

	return Allow
}
