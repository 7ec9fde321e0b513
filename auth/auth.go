// Package auth carries the employee session: an HS256 token naming the
// employee, stored in an HttpOnly cookie or sent as a Bearer header.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type ctxKey string

const (
	DefaultCookieName = "session"
	employeeIDCtxKey  = ctxKey("employeeID")
)

// ErrInvalidToken is returned for malformed, expired or forged tokens.
var ErrInvalidToken = errors.New("invalid_token")

// Verifier is an optional callback validating that a session's employee
// still exists and is active.
type Verifier func(ctx context.Context, employeeID string) bool

// Claims are the session token claims.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Sessions issues and validates session tokens.
type Sessions struct {
	secret   []byte
	ttl      time.Duration
	cookie   string
	secure   bool
	verifier Verifier
	now      func() time.Time
}

// NewSessions builds a session manager. An empty cookie name uses DefaultCookieName.
func NewSessions(secret string, ttl time.Duration, cookieName string, secure bool) *Sessions {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, cookie: cookieName, secure: secure, now: time.Now}
}

// SetVerifier configures the verifier used by RequireAuth.
func (s *Sessions) SetVerifier(v Verifier) { s.verifier = v }

// Token signs a session token for the employee.
func (s *Sessions) Token(employeeID, name string) (string, error) {
	now := s.now()
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   employeeID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse validates a token and returns its claims.
func (s *Sessions) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// CreateSession sets the session cookie and returns the token.
func (s *Sessions) CreateSession(w http.ResponseWriter, employeeID, name string) (string, error) {
	token, err := s.Token(employeeID, name)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.now().Add(s.ttl),
	})
	return token, nil
}

// ClearSession deletes the session cookie.
func (s *Sessions) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: s.cookie, Value: "", Path: "/", Expires: time.Unix(0, 0), HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

// ParseSession reads the token from the Authorization header or the
// session cookie and returns the employee id.
func (s *Sessions) ParseSession(r *http.Request) (string, bool) {
	token := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	} else if c, err := r.Cookie(s.cookie); err == nil {
		token = c.Value
	}
	if token == "" {
		return "", false
	}
	claims, err := s.Parse(token)
	if err != nil {
		return "", false
	}
	return claims.Subject, true
}

// WithEmployeeID stores the employee id in context.
func WithEmployeeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, employeeIDCtxKey, id)
}

// EmployeeIDFromContext extracts the employee id.
func EmployeeIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(employeeIDCtxKey).(string)
	return id, ok && id != ""
}

// Middleware attaches the employee id to the request context if present.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := s.ParseSession(r); ok {
			r = r.WithContext(WithEmployeeID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// WantsJSON reports whether the client prefers a JSON answer.
func WantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// RequireAuth redirects to /login if not authenticated (HTML) or returns 401 JSON.
func (s *Sessions) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := EmployeeIDFromContext(r.Context())
		if ok && s.verifier != nil && !s.verifier(r.Context(), id) {
			// Session refers to a removed or disabled employee.
			s.ClearSession(w)
			ok = false
		}
		if !ok {
			if WantsJSON(r) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"error":"unauthorized"}`)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
