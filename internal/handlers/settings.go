package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/diewo77/inspection-workshop/httpx"
	"github.com/diewo77/inspection-workshop/i18n"
	"github.com/diewo77/inspection-workshop/internal/ai"
	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/diewo77/inspection-workshop/internal/notify"
	"github.com/diewo77/inspection-workshop/internal/report"
	"github.com/diewo77/inspection-workshop/validation"
)

// SettingsHandler serves /api/settings.
type SettingsHandler struct {
	Deps
	AI *ai.Client
}

func NewSettingsHandler(d Deps, client *ai.Client) *SettingsHandler {
	return &SettingsHandler{Deps: d, AI: client}
}

// checkSettings reports the values the report renderer would refuse.
func checkSettings(s models.Settings) validation.Violations {
	v := validation.Violations{}
	style := s.Report.ReportStyle
	for field, c := range map[string]string{
		"report.primary_color":       style.PrimaryColor,
		"report.text_color":          style.TextColor,
		"report.background_color":    style.BackgroundColor,
		"report.border_color":        style.BorderColor,
		"report.qr.color":            style.QR.Color,
		"report.qr.background_color": style.QR.BackgroundColor,
	} {
		if !report.IsColor(c) {
			v[field] = "invalid_color"
		}
	}
	if report.SafeFont(style.FontFamily, "") == "" {
		v["report.font_family"] = "invalid"
	}
	if s.Language != "ar" && s.Language != "en" {
		v["language"] = "invalid_choice"
	}
	for i, p := range s.PlateCharacters {
		if strings.TrimSpace(p.Ar) == "" || strings.TrimSpace(p.En) == "" {
			v[fmt.Sprintf("plate_characters.%d", i)] = "required"
		}
	}
	return v
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.State.Settings())
}

// Patch deep-merges the body into the settings.
func (h *SettingsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := httpx.Decode(r, &patch); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	preview, err := models.MergeSettings(h.State.Settings(), patch)
	if err != nil {
		h.invalid(w, r, validation.Violations{"_": "invalid"})
		return
	}
	if v := checkSettings(preview); !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	next, err := h.State.UpdateSettings(r.Context(), patch)
	if err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	h.ok(w, r, http.StatusOK, "saved", next)
}

// Replace stores the body as the whole settings document.
func (h *SettingsHandler) Replace(w http.ResponseWriter, r *http.Request) {
	next := models.DefaultSettings()
	if err := httpx.Decode(r, &next); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	if v := checkSettings(next); !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	saved, err := h.State.ReplaceSettings(r.Context(), next)
	if err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	h.ok(w, r, http.StatusOK, "saved", saved)
}

type templateInput struct {
	Name string `json:"name"`
}

// SaveTemplate stores the current report style under a name.
func (h *SettingsHandler) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	var in templateInput
	if err := httpx.Decode(r, &in); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		h.invalid(w, r, validation.Violations{"name": "required"})
		return
	}
	next, err := h.State.SaveTemplate(r.Context(), in.Name)
	if err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	h.ok(w, r, http.StatusCreated, "saved", next)
}

func (h *SettingsHandler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	next, err := h.State.ApplyTemplate(r.Context(), r.PathValue("name"))
	if err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	h.ok(w, r, http.StatusOK, "saved", next)
}

func (h *SettingsHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !h.confirmed(w, r, DeleteAction("template", name)) {
		return
	}
	next, err := h.State.DeleteTemplate(r.Context(), name)
	if err != nil {
		h.fail(w, r, err, "delete_failed")
		return
	}
	h.ok(w, r, http.StatusOK, "deleted", next)
}

// Themes lists the built-in report themes.
func (h *SettingsHandler) Themes(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"items": report.Themes})
}

func (h *SettingsHandler) applyTheme(w http.ResponseWriter, r *http.Request, th report.Theme) {
	cur := h.State.Settings()
	style := th.Apply(cur.Report.ReportStyle)
	next, err := h.State.UpdateSettings(r.Context(), map[string]any{"report": map[string]any{
		"primary_color":    style.PrimaryColor,
		"text_color":       style.TextColor,
		"background_color": style.BackgroundColor,
		"border_color":     style.BorderColor,
		"font_family":      style.FontFamily,
	}})
	if err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	h.ok(w, r, http.StatusOK, "saved", next)
}

// ApplyTheme copies a built-in theme onto the report style.
func (h *SettingsHandler) ApplyTheme(w http.ResponseWriter, r *http.Request) {
	th, ok := report.ThemeByName(r.PathValue("name"))
	if !ok {
		httpx.JSONErrorMessage(w, http.StatusNotFound, "not_found", "", nil)
		return
	}
	h.applyTheme(w, r, th)
}

type suggestInput struct {
	Description string `json:"description"`
	Apply       bool   `json:"apply"`
}

// SuggestTheme asks the AI for a theme and optionally applies it.
func (h *SettingsHandler) SuggestTheme(w http.ResponseWriter, r *http.Request) {
	var in suggestInput
	if err := httpx.Decode(r, &in); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	if strings.TrimSpace(in.Description) == "" {
		h.invalid(w, r, validation.Violations{"description": "required"})
		return
	}
	th, err := h.AI.SuggestTheme(r.Context(), in.Description)
	if err != nil {
		h.aiFailed(w, r, err)
		return
	}
	if in.Apply {
		h.applyTheme(w, r, th)
		return
	}
	httpx.JSON(w, http.StatusOK, th)
}

// aiFailed reports an AI error with its classified message.
func (d Deps) aiFailed(w http.ResponseWriter, r *http.Request, err error) {
	code := ai.Classify(err)
	status := http.StatusBadGateway
	switch code {
	case ai.CodeInvalidKey:
		status = http.StatusServiceUnavailable
	case ai.CodeClient:
		status = http.StatusBadRequest
	}
	d.logf("ai: %v", err)
	d.push(r, notify.Error, code)
	httpx.JSONErrorMessage(w, status, code, i18n.T(Lang(r), code), nil)
}
