package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]int{"a": 1})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"a":1}` {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONErrorMessage(rec, http.StatusConflict, "client_has_requests", "Client has requests", nil)
	want := `{"error":"client_has_requests","message":"Client has requests"}`
	if rec.Body.String() != want {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestDecode(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	if err := Decode(req, &v); err != nil || v.Name != "x" {
		t.Fatalf("Decode = %v, %+v", err, v)
	}

	for _, body := range []string{`{"other":1}`, `{"name":"x"}{}`, `nope`} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		if err := Decode(req, &v); !errors.Is(err, ErrBadJSON) {
			t.Errorf("Decode(%s) = %v, want ErrBadJSON", body, err)
		}
	}
}
