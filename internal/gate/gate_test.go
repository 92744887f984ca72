package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/yourorg/cloudlock/internal/identity"
)

// fakeCreds simula la tabla password y cuenta las consultas realizadas.
type fakeCreds struct {
	hash  string
	err   error
	calls int
}

func (f *fakeCreds) MasterHash(ctx context.Context, userID int64) (string, error) {
	f.calls++
	return f.hash, f.err
}

func TestExcludedPaths(t *testing.T) {
	excluded := []string{
		"/auth/login",
		"/auth/register",
		"/security",
		"/security/password",
		"/static/app.css",
		"/favicon.ico",
		"/api/health",
		"/ws/events",
	}
	for _, path := range excluded {
		if !Excluded(path) {
			t.Errorf("Expected %s to be excluded", path)
		}
	}

	gated := []string{"/", "/dashboard", "/myfiles", "/api/files", "/api/files/upload"}
	for _, path := range gated {
		if Excluded(path) {
			t.Errorf("Expected %s NOT to be excluded", path)
		}
	}
}

func TestDecideExcludedAlwaysAllows(t *testing.T) {
	// Path excluido: Allow sin importar sesión ni credencial, y sin tocar el store
	creds := &fakeCreds{err: errors.New("store down")}

	if d := Decide(context.Background(), "/auth/login", nil, creds); d != Allow {
		t.Errorf("Expected ALLOW for excluded path without session, got %s", d)
	}
	if d := Decide(context.Background(), "/security", &identity.User{ID: 1}, creds); d != Allow {
		t.Errorf("Expected ALLOW for /security with session, got %s", d)
	}
	if creds.calls != 0 {
		t.Errorf("Expected 0 store queries for excluded paths, got %d", creds.calls)
	}
}

func TestDecideNoSessionRedirectsLogin(t *testing.T) {
	creds := &fakeCreds{hash: "$2a$10$abcdefghijklmnopqrstuv"}

	d := Decide(context.Background(), "/dashboard", nil, creds)
	if d != RedirectLogin {
		t.Errorf("Expected REDIRECT_LOGIN, got %s", d)
	}
	if d.Target() != "/auth/login" {
		t.Errorf("Expected target /auth/login, got %s", d.Target())
	}

	// Un caller anónimo nunca debe gatillar una consulta keyed por user id
	if creds.calls != 0 {
		t.Errorf("Expected 0 store queries for anonymous caller, got %d", creds.calls)
	}
}

func TestDecideMissingCredentialRedirectsSetup(t *testing.T) {
	user := &identity.User{ID: 7, Username: "demo"}

	// Sin fila (hash vacío)
	creds := &fakeCreds{hash: ""}
	if d := Decide(context.Background(), "/dashboard", user, creds); d != RedirectSetup {
		t.Errorf("Expected REDIRECT_SETUP_SECONDARY for missing row, got %s", d)
	}
	if creds.calls != 1 {
		t.Errorf("Expected exactly 1 store query, got %d", creds.calls)
	}

	// Error del store: fail closed, misma decisión
	creds = &fakeCreds{err: errors.New("store unavailable")}
	if d := Decide(context.Background(), "/dashboard", user, creds); d != RedirectSetup {
		t.Errorf("Expected REDIRECT_SETUP_SECONDARY on store error, got %s", d)
	}

	if RedirectSetup.Target() != "/security" {
		t.Errorf("Expected target /security, got %s", RedirectSetup.Target())
	}
}

func TestDecideConfiguredCredentialAllows(t *testing.T) {
	user := &identity.User{ID: 7, Username: "demo"}
	creds := &fakeCreds{hash: "$2a$10$N9qo8uLOickgx2ZMRZoMye"}

	if d := Decide(context.Background(), "/dashboard", user, creds); d != Allow {
		t.Errorf("Expected ALLOW with configured credential, got %s", d)
	}
	if d := Decide(context.Background(), "/myfiles", user, creds); d != Allow {
		t.Errorf("Expected ALLOW for /myfiles, got %s", d)
	}
}
