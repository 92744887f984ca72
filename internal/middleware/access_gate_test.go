package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/cloudlock/internal/gate"
	"github.com/yourorg/cloudlock/internal/identity"
)

type stubCreds struct {
	hash  string
	calls int
}

func (s *stubCreds) MasterHash(ctx context.Context, userID int64) (string, error) {
	s.calls++
	return s.hash, nil
}

func newGateApp(provider *identity.Provider, creds gate.CredentialSource) *fiber.App {
	app := fiber.New()
	app.Use(AccessGate(provider, creds))

	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }
	app.Get("/dashboard", ok)
	app.Get("/myfiles", ok)
	app.Get("/security", ok)
	app.Get("/auth/login", ok)
	app.Get("/api/health", ok)

	return app
}

func testProvider(ttl time.Duration) *identity.Provider {
	return identity.NewProvider([]byte("test-secret-0123456789abcdef0123"), ttl)
}

func sessionRequest(t *testing.T, provider *identity.Provider, path string) *http.Request {
	t.Helper()
	token, _, err := provider.IssueToken(7, "demo", "demo@example.com")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.AddCookie(&http.Cookie{Name: identity.CookieName, Value: token})
	return req
}

func TestGateAllowsExcludedPathsWithoutQueries(t *testing.T) {
	creds := &stubCreds{}
	app := newGateApp(testProvider(time.Hour), creds)

	for _, path := range []string{"/auth/login", "/security", "/api/health"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}

	if creds.calls != 0 {
		t.Errorf("Expected 0 credential queries for excluded paths, got %d", creds.calls)
	}
}

func TestGateRedirectsAnonymousToLogin(t *testing.T) {
	creds := &stubCreds{hash: "$2a$10$hash"}
	app := newGateApp(testProvider(time.Hour), creds)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusFound {
		t.Errorf("Expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/auth/login" {
		t.Errorf("Expected redirect to /auth/login, got %s", loc)
	}
	if creds.calls != 0 {
		t.Errorf("Anonymous caller must not trigger credential queries, got %d", creds.calls)
	}
}

func TestGateRedirectsToSetupWithoutCredential(t *testing.T) {
	creds := &stubCreds{hash: ""}
	provider := testProvider(time.Hour)
	app := newGateApp(provider, creds)

	resp, err := app.Test(sessionRequest(t, provider, "/dashboard"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusFound {
		t.Errorf("Expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/security" {
		t.Errorf("Expected redirect to /security, got %s", loc)
	}
	if creds.calls != 1 {
		t.Errorf("Expected exactly 1 credential query, got %d", creds.calls)
	}
}

func TestGateAllowsConfiguredUser(t *testing.T) {
	creds := &stubCreds{hash: "$2a$10$N9qo8uLOickgx2ZMRZoMye"}
	provider := testProvider(time.Hour)
	app := newGateApp(provider, creds)

	resp, err := app.Test(sessionRequest(t, provider, "/myfiles"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestGateRefreshCookieTravelsOnRedirect(t *testing.T) {
	// Token emitido con TTL 1h pero validado por un provider con TTL 10h:
	// al token le queda menos de la mitad del TTL y debe re-firmarse,
	// incluso cuando la respuesta es un redirect.
	issuer := testProvider(time.Hour)
	server := testProvider(10 * time.Hour)

	creds := &stubCreds{hash: ""}
	app := newGateApp(server, creds)

	resp, err := app.Test(sessionRequest(t, issuer, "/dashboard"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("Expected 302, got %d", resp.StatusCode)
	}

	var refreshed bool
	for _, sc := range resp.Header.Values("Set-Cookie") {
		if strings.HasPrefix(sc, identity.CookieName+"=") {
			refreshed = true
		}
	}
	if !refreshed {
		t.Error("Expected refreshed session cookie on redirect response")
	}
}
