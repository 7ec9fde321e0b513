package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	s := NewSessions("secret", time.Hour, "", false)
	tok, err := s.Token("emp-1", "Sara")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := s.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "emp-1" || claims.Name != "Sara" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParse_Rejects(t *testing.T) {
	s := NewSessions("secret", time.Hour, "", false)
	other := NewSessions("other", time.Hour, "", false)
	forged, _ := other.Token("emp-1", "")
	if _, err := s.Parse(forged); err == nil {
		t.Error("token signed with another secret accepted")
	}

	expired := NewSessions("secret", time.Hour, "", false)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := expired.Token("emp-1", "")
	if _, err := s.Parse(old); err == nil {
		t.Error("expired token accepted")
	}
	if _, err := s.Parse("garbage"); err == nil {
		t.Error("garbage accepted")
	}
}

func TestMiddleware_CookieAndBearer(t *testing.T) {
	s := NewSessions("secret", time.Hour, "", false)
	var got string
	h := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = EmployeeIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	if _, err := s.CreateSession(rec, "emp-1", "Sara"); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "emp-1" {
		t.Fatalf("cookie session: got %q", got)
	}

	tok, _ := s.Token("emp-2", "")
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "emp-2" {
		t.Fatalf("bearer session: got %q", got)
	}
}

func TestRequireAuth(t *testing.T) {
	s := NewSessions("secret", time.Hour, "", false)
	s.SetVerifier(func(_ context.Context, id string) bool { return id == "active" })
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := s.Middleware(s.RequireAuth(ok))

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"api without session", "/api/clients", "", http.StatusUnauthorized},
		{"page without session", "/dashboard", "", http.StatusSeeOther},
		{"disabled employee", "/api/clients", "inactive", http.StatusUnauthorized},
		{"active employee", "/api/clients", "active", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				tok, _ := s.Token(tt.token, "")
				req.Header.Set("Authorization", "Bearer "+tok)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}
