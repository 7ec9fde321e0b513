package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/diewo77/inspection-workshop/gate"
	"github.com/diewo77/inspection-workshop/httpx"
	"github.com/diewo77/inspection-workshop/i18n"
	"github.com/diewo77/inspection-workshop/internal/ai"
	"github.com/diewo77/inspection-workshop/internal/nav"
	"github.com/diewo77/inspection-workshop/internal/poller"
	"github.com/diewo77/inspection-workshop/internal/prefs"
	"github.com/diewo77/inspection-workshop/internal/state"
	"github.com/diewo77/inspection-workshop/validation"
)

// SystemHandler serves the state, navigation, preference and
// notification endpoints of the signed-in employee.
type SystemHandler struct {
	Deps
	Poller    *poller.Poller
	Navigator *nav.Navigator
	PrefStore *prefs.Store
	AI        *ai.Client
}

func NewSystemHandler(d Deps, p *poller.Poller, n *nav.Navigator, ps *prefs.Store, client *ai.Client) *SystemHandler {
	return &SystemHandler{Deps: d, Poller: p, Navigator: n, PrefStore: ps, AI: client}
}

// Refresh re-fetches every collection.
func (h *SystemHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.State.Refresh(r.Context()); err != nil {
		h.fail(w, r, err, "load_failed")
		return
	}
	h.Status(w, r)
}

func (h *SystemHandler) Status(w http.ResponseWriter, r *http.Request) {
	var last *time.Time
	if t := h.State.LastRefresh(); !t.IsZero() {
		last = &t
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"loading":      h.State.IsLoading(),
		"refreshing":   h.State.IsRefreshing(),
		"last_refresh": last,
		"ai_enabled":   h.AI.Enabled(),
	})
}

func (h *SystemHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.State.Estimate())
}

// periodFromQuery reads ?from= and ?to= as days. to is inclusive.
func periodFromQuery(r *http.Request) (state.Period, validation.Violations) {
	var p state.Period
	v := validation.Violations{}
	q := r.URL.Query()
	if s := q.Get("from"); s != "" {
		t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
		if err != nil {
			v["from"] = "invalid"
		}
		p.From = t
	}
	if s := q.Get("to"); s != "" {
		t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
		if err != nil {
			v["to"] = "invalid"
		}
		p.To = t.AddDate(0, 0, 1)
	}
	return p, v
}

// Dashboard answers the figures of the period. Money figures are only
// shown to employees allowed to see them.
func (h *SystemHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	p, v := periodFromQuery(r)
	if !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	st := h.State.Stats(p)
	if !h.Gate.Can(r.Context(), gate.ViewFinancials) {
		st = st.WithoutFinancials()
	}
	httpx.JSON(w, http.StatusOK, st)
}

type navView struct {
	Page    gate.Page   `json:"page"`
	History []gate.Page `json:"history"`
}

func (h *SystemHandler) navFailed(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, gate.ErrUnauthorized):
		httpx.JSONErrorMessage(w, http.StatusUnauthorized, "unauthorized", i18n.T(Lang(r), "unauthorized"), nil)
	case errors.Is(err, gate.ErrForbidden):
		httpx.JSONErrorMessage(w, http.StatusForbidden, "forbidden", i18n.T(Lang(r), "forbidden"), nil)
	default:
		h.fail(w, r, err, "load_failed")
	}
}

// Nav resolves the page the employee lands on, falling back to the first
// allowed page when the stored one is no longer allowed.
func (h *SystemHandler) Nav(w http.ResponseWriter, r *http.Request) {
	s := h.subject(r)
	page, err := h.Navigator.Resolve(r.Context(), s)
	if err != nil {
		h.navFailed(w, r, err)
		return
	}
	hist, err := h.Navigator.Load(r.Context(), s.ID)
	if err != nil {
		h.fail(w, r, err, "load_failed")
		return
	}
	h.Poller.Watch(s.ID, page)
	httpx.JSON(w, http.StatusOK, navView{Page: page, History: hist.Pages})
}

type navInput struct {
	Page gate.Page `json:"page"`
}

// Navigate records a page visit and starts refreshing it.
func (h *SystemHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	var in navInput
	if err := httpx.Decode(r, &in); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	if !in.Page.Valid() {
		h.invalid(w, r, validation.Violations{"page": "invalid_choice"})
		return
	}
	s := h.subject(r)
	if !gate.CanOpen(s, in.Page) {
		h.navFailed(w, r, gate.ErrForbidden)
		return
	}
	hist, err := h.Navigator.Navigate(r.Context(), s.ID, in.Page)
	if err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	h.Poller.Watch(s.ID, in.Page)
	httpx.JSON(w, http.StatusOK, navView{Page: hist.Current(), History: hist.Pages})
}

// Back returns to the previous page.
func (h *SystemHandler) Back(w http.ResponseWriter, r *http.Request) {
	s := h.subject(r)
	if _, err := h.Navigator.Back(r.Context(), s.ID); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	h.Nav(w, r)
}

func (h *SystemHandler) prefsFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, prefs.ErrInvalidKey) {
		h.invalid(w, r, validation.Violations{"key": "invalid"})
		return
	}
	h.fail(w, r, err, "save_failed")
}

func (h *SystemHandler) Prefs(w http.ResponseWriter, r *http.Request) {
	all, err := h.PrefStore.All(r.Context(), h.owner(r))
	if err != nil {
		h.fail(w, r, err, "load_failed")
		return
	}
	httpx.JSON(w, http.StatusOK, all)
}

func (h *SystemHandler) GetPref(w http.ResponseWriter, r *http.Request) {
	raw, ok, err := h.PrefStore.Raw(r.Context(), h.owner(r), r.PathValue("key"))
	if err != nil {
		h.prefsFailed(w, r, err)
		return
	}
	if !ok {
		httpx.JSONErrorMessage(w, http.StatusNotFound, "not_found", "", nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// SetPref stores the raw JSON body under the key.
func (h *SystemHandler) SetPref(w http.ResponseWriter, r *http.Request) {
	var value json.RawMessage
	if err := httpx.Decode(r, &value); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	if err := h.PrefStore.Set(r.Context(), h.owner(r), r.PathValue("key"), value); err != nil {
		h.prefsFailed(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SystemHandler) DeletePref(w http.ResponseWriter, r *http.Request) {
	if err := h.PrefStore.Delete(r.Context(), h.owner(r), r.PathValue("key")); err != nil {
		h.prefsFailed(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Notifications lists the visible notifications of the employee.
func (h *SystemHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"items": h.Notify.Active(h.owner(r))})
}

func (h *SystemHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	if !h.Notify.Dismiss(h.owner(r), r.PathValue("id")) {
		httpx.JSONErrorMessage(w, http.StatusNotFound, "not_found", "", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type confirmInput struct {
	Action string `json:"action"`
}

// Confirm issues the one-time token a destructive action must carry.
func (h *SystemHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var in confirmInput
	if err := httpx.Decode(r, &in); err != nil {
		h.fail(w, r, err, "confirm_required")
		return
	}
	if in.Action == "" {
		h.invalid(w, r, validation.Violations{"action": "required"})
		return
	}
	token, exp := h.Notify.Confirm(h.owner(r), in.Action)
	httpx.JSON(w, http.StatusCreated, map[string]any{"token": token, "expires_at": exp})
}
