// Package handlers exposes the workshop state over a JSON API. Every
// mutation raises a localized notification for the acting employee.
package handlers

import (
	"errors"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/diewo77/inspection-workshop/auth"
	"github.com/diewo77/inspection-workshop/gate"
	"github.com/diewo77/inspection-workshop/httpx"
	"github.com/diewo77/inspection-workshop/i18n"
	"github.com/diewo77/inspection-workshop/internal/notify"
	"github.com/diewo77/inspection-workshop/internal/policy"
	"github.com/diewo77/inspection-workshop/internal/state"
	"github.com/diewo77/inspection-workshop/internal/storage"
	"github.com/diewo77/inspection-workshop/internal/store"
	"github.com/diewo77/inspection-workshop/validation"
)

// Deps are the collaborators shared by every handler.
type Deps struct {
	State   *state.Store
	Gate    *policy.AuthGate
	Notify  *notify.Center
	Storage storage.Storage
	Logger  *log.Logger
}

func (d Deps) logf(format string, args ...any) {
	if d.Logger != nil {
		d.Logger.Printf(format, args...)
		return
	}
	log.New(os.Stderr, "[handlers] ", log.LstdFlags).Printf(format, args...)
}

// Lang returns the language of the request: ?lang=, the lang cookie, then
// the Accept-Language header.
func Lang(r *http.Request) string {
	if l := r.URL.Query().Get("lang"); l != "" {
		return i18n.Normalize(l)
	}
	if c, err := r.Cookie("lang"); err == nil && c.Value != "" {
		return i18n.Normalize(c.Value)
	}
	return i18n.DetectLanguage(r.Header.Get("Accept-Language"))
}

func (d Deps) subject(r *http.Request) *gate.Subject {
	if d.Gate == nil {
		return nil
	}
	return d.Gate.Subject(r.Context())
}

// owner is the id notifications, preferences and confirmations are keyed by.
func (d Deps) owner(r *http.Request) string {
	if s := d.subject(r); s != nil {
		return s.ID
	}
	id, _ := auth.EmployeeIDFromContext(r.Context())
	return id
}

func (d Deps) actor(r *http.Request) state.Actor {
	if s := d.subject(r); s != nil {
		return state.Actor{ID: s.ID, Name: s.Name}
	}
	return state.Actor{}
}

func (d Deps) push(r *http.Request, kind notify.Kind, code string) {
	owner := d.owner(r)
	if d.Notify == nil || owner == "" {
		return
	}
	d.Notify.Push(owner, kind, i18n.T(Lang(r), code))
}

// ok writes payload and raises a success notification for code.
func (d Deps) ok(w http.ResponseWriter, r *http.Request, status int, code string, payload any) {
	d.push(r, notify.Success, code)
	httpx.JSON(w, status, payload)
}

// fail maps err to a status and message code. fallback is used for
// unexpected errors, which are logged.
func (d Deps) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, code := http.StatusInternalServerError, fallback
	switch {
	case errors.Is(err, httpx.ErrBadJSON):
		httpx.JSONErrorMessage(w, http.StatusBadRequest, "bad_json", i18n.T(Lang(r), "bad_json"), nil)
		return
	case errors.Is(err, state.ErrNotFound), errors.Is(err, store.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, state.ErrClientHasRequests):
		status, code = http.StatusConflict, "client_has_requests"
	case errors.Is(err, state.ErrStaleWrite):
		status, code = http.StatusConflict, "stale_write"
	case errors.Is(err, state.ErrTemplateNotFound):
		status, code = http.StatusNotFound, "template_not_found"
	case errors.Is(err, notify.ErrConfirmationRequired):
		status, code = http.StatusPreconditionRequired, "confirm_required"
	case errors.Is(err, storage.ErrInvalidBucket), errors.Is(err, storage.ErrInvalidPath):
		status, code = http.StatusBadRequest, "invalid"
	default:
		d.logf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	d.push(r, notify.Error, code)
	httpx.JSONErrorMessage(w, status, code, i18n.T(Lang(r), code), nil)
}

// invalid answers 422 with the violations, translated.
func (d Deps) invalid(w http.ResponseWriter, r *http.Request, v validation.Violations) {
	lang := Lang(r)
	fields := make(map[string]string, len(v))
	for k, code := range v {
		fields[k] = i18n.T(lang, code)
	}
	httpx.JSONErrorMessage(w, http.StatusUnprocessableEntity, "invalid", i18n.T(lang, "invalid"),
		map[string]any{"fields": v, "messages": fields})
}

// confirmed burns the confirmation token of a destructive action. It
// answers 428 and returns false when the token is missing or wrong.
func (d Deps) confirmed(w http.ResponseWriter, r *http.Request, action string) bool {
	if d.Notify == nil {
		return true
	}
	if err := d.Notify.Consume(d.owner(r), action, r.URL.Query().Get("confirm")); err != nil {
		d.fail(w, r, err, "confirm_required")
		return false
	}
	return true
}

// DeleteAction names the confirmation action guarding the delete of an entity.
func DeleteAction(kind, id string) string {
	return "delete:" + kind + ":" + id
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
