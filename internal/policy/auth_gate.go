// Package policy wires the permission gate to the employee table and the
// HTTP session.
package policy

import (
	"context"
	"net/http"
	"time"

	"github.com/diewo77/inspection-workshop/auth"
	"github.com/diewo77/inspection-workshop/gate"
	"github.com/diewo77/inspection-workshop/httpx"
	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/diewo77/inspection-workshop/internal/store"
)

type ctxKey string

const subjectCtxKey = ctxKey("subject")

// AuthGate resolves the session's employee and checks capabilities.
type AuthGate struct {
	CacheResolver *gate.CachedResolver
}

// NewAuthGate creates a gate over the employee table.
// cacheTTL is how long resolved employees are cached (e.g., 5*time.Minute).
func NewAuthGate(employees *store.Table[models.Employee], cacheTTL time.Duration) *AuthGate {
	return &AuthGate{CacheResolver: gate.NewCachedResolver(NewEmployeeResolver(employees), cacheTTL)}
}

// Subject returns the subject of the current request, or nil.
func (ag *AuthGate) Subject(ctx context.Context) *gate.Subject {
	if s, ok := ctx.Value(subjectCtxKey).(*gate.Subject); ok {
		return s
	}
	id, ok := auth.EmployeeIDFromContext(ctx)
	if !ok {
		return nil
	}
	s, err := ag.CacheResolver.Resolve(ctx, id)
	if err != nil {
		return nil
	}
	return s
}

// WithSubject stores a resolved subject in ctx.
func WithSubject(ctx context.Context, s *gate.Subject) context.Context {
	return context.WithValue(ctx, subjectCtxKey, s)
}

// Can reports whether the current employee holds capability.
func (ag *AuthGate) Can(ctx context.Context, capability gate.Permission) bool {
	return gate.Can(ag.Subject(ctx), capability)
}

// Verify reports whether the employee still exists and is active.
func (ag *AuthGate) Verify(ctx context.Context, id string) bool {
	s, err := ag.CacheResolver.Resolve(ctx, id)
	return err == nil && s != nil
}

// InvalidateEmployee clears the cache for one employee.
// Call this when the employee's role, permissions or status change.
func (ag *AuthGate) InvalidateEmployee(id string) {
	ag.CacheResolver.Invalidate(id)
}

// InvalidateAll clears the entire cache.
func (ag *AuthGate) InvalidateAll() {
	ag.CacheResolver.InvalidateAll()
}

// RequirePermission returns middleware that checks the capability and
// stores the resolved subject in the request context.
func (ag *AuthGate) RequirePermission(capability gate.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := ag.Subject(r.Context())
			if s == nil {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			if !gate.Can(s, capability) {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", map[string]string{"permission": string(capability)})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), s)))
		})
	}
}

// RequireSubject only requires an authenticated, active employee.
func (ag *AuthGate) RequireSubject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := ag.Subject(r.Context())
		if s == nil {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), s)))
	})
}
