package identity

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ============================================================================
// IDENTITY PROVIDER - SESIONES JWT
// ============================================================================
// Resuelve la identidad del caller a partir de la cookie de sesión o del
// header Authorization. La resolución se memoiza en el contexto: GetUser se
// ejecuta a lo más una vez por request, sin importar cuántos componentes la
// consulten (gate, lock, handlers).
//
// Side effect: si al token le queda menos de la mitad de su TTL, se re-firma
// y se setea como cookie en la respuesta actual. Como la cookie se escribe
// sobre la misma respuesta, el refresh viaja también en los redirects del
// gate, nunca en una respuesta vacía aparte.

// CookieName es la cookie de sesión del cliente web.
const CookieName = "cloudlock_session"

const (
	localsResolved = "identity_resolved"
	localsUser     = "identity_user"
)

// User es la identidad mínima que expone el provider.
type User struct {
	ID       int64
	Username string
	Email    string
}

type sessionClaims struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Provider firma y valida tokens de sesión.
type Provider struct {
	secret   []byte
	tokenTTL time.Duration
}

// NewProvider crea un provider con secret y TTL explícitos.
func NewProvider(secret []byte, ttl time.Duration) *Provider {
	return &Provider{secret: secret, tokenTTL: ttl}
}

// NewProviderFromEnv crea el provider leyendo JWT_SECRET y JWT_TTL.
func NewProviderFromEnv() *Provider {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		// Verificar si estamos en producción
		if os.Getenv("ENV") == "production" || os.Getenv("ENVIRONMENT") == "production" {
			log.Fatal("❌ CRITICAL: JWT_SECRET must be set in production environment")
		}
		log.Println("⚠️ WARNING: Using default JWT secret (development only)")
		secret = "dev-secret-change-me-0123456789ab"
	}

	if len(secret) < 32 {
		log.Fatalf("❌ CRITICAL: JWT_SECRET must be at least 32 characters long (current: %d)", len(secret))
	}

	ttl := 24 * time.Hour
	if v := os.Getenv("JWT_TTL"); v != "" {
		dur, err := time.ParseDuration(v)
		if err != nil || dur <= 0 {
			log.Printf("invalid JWT_TTL=%q, using default %s", v, ttl)
		} else {
			ttl = dur
		}
	}

	return &Provider{secret: []byte(secret), tokenTTL: ttl}
}

// TokenTTL retorna el TTL configurado de los tokens.
func (p *Provider) TokenTTL() time.Duration {
	return p.tokenTTL
}

// IssueToken firma un token de sesión para el usuario.
func (p *Provider) IssueToken(userID int64, username, email string) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(p.tokenTTL)
	claims := sessionClaims{
		Username: username,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	return signed, expires, err
}

// GetUser resuelve la identidad del request. Retorna nil si no hay sesión
// válida. La primera llamada parsea el token y memoiza el resultado; las
// siguientes leen del contexto.
func (p *Provider) GetUser(c *fiber.Ctx) *User {
	if resolved, _ := c.Locals(localsResolved).(bool); resolved {
		user, _ := c.Locals(localsUser).(*User)
		return user
	}
	c.Locals(localsResolved, true)

	raw := tokenFromRequest(c)
	if raw == "" {
		return nil
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return nil
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil
	}

	user := &User{ID: userID, Username: claims.Username, Email: claims.Email}
	c.Locals(localsUser, user)

	p.maybeRefresh(c, user, claims)

	return user
}

// SetSessionCookie escribe la cookie de sesión sobre la respuesta actual.
func (p *Provider) SetSessionCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})
}

// maybeRefresh re-firma el token cuando le queda menos de la mitad del TTL.
func (p *Provider) maybeRefresh(c *fiber.Ctx, user *User, claims *sessionClaims) {
	if claims.ExpiresAt == nil {
		return
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining >= p.tokenTTL/2 {
		return
	}

	signed, expires, err := p.IssueToken(user.ID, user.Username, user.Email)
	if err != nil {
		log.Printf("⚠️ session refresh: no se pudo re-firmar token para user %d: %v", user.ID, err)
		return
	}
	p.SetSessionCookie(c, signed, expires)
}

// tokenFromRequest extrae el token crudo de la cookie o del header Bearer.
func tokenFromRequest(c *fiber.Ctx) string {
	if v := c.Cookies(CookieName); v != "" {
		return v
	}
	auth := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
