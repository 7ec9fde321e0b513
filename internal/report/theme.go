package report

import (
	"regexp"
	"strings"

	"github.com/diewo77/inspection-workshop/internal/models"
)

// Theme is a named preset of report colors and typography.
type Theme struct {
	Name            string `json:"name"`
	PrimaryColor    string `json:"primary_color"`
	TextColor       string `json:"text_color"`
	BackgroundColor string `json:"background_color"`
	BorderColor     string `json:"border_color"`
	FontFamily      string `json:"font_family"`
}

// Themes are the built-in presets.
var Themes = []Theme{
	{Name: "classic", PrimaryColor: "#1e3a8a", TextColor: "#111827", BackgroundColor: "#ffffff", BorderColor: "#e5e7eb", FontFamily: "Tajawal, sans-serif"},
	{Name: "emerald", PrimaryColor: "#047857", TextColor: "#064e3b", BackgroundColor: "#f0fdf4", BorderColor: "#a7f3d0", FontFamily: "Cairo, sans-serif"},
	{Name: "crimson", PrimaryColor: "#b91c1c", TextColor: "#1f2937", BackgroundColor: "#fffafa", BorderColor: "#fecaca", FontFamily: "Tajawal, sans-serif"},
	{Name: "slate", PrimaryColor: "#334155", TextColor: "#0f172a", BackgroundColor: "#f8fafc", BorderColor: "#cbd5e1", FontFamily: "Noto Kufi Arabic, sans-serif"},
	{Name: "gold", PrimaryColor: "#a16207", TextColor: "#292524", BackgroundColor: "#fffbeb", BorderColor: "#fde68a", FontFamily: "Amiri, serif"},
}

// ThemeByName returns the preset called name.
func ThemeByName(name string) (Theme, bool) {
	for _, t := range Themes {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Theme{}, false
}

// Apply copies the theme onto style. Invalid colors and fonts are skipped.
func (t Theme) Apply(style models.ReportStyle) models.ReportStyle {
	set := func(dst *string, v string) {
		if IsColor(v) {
			*dst = v
		}
	}
	set(&style.PrimaryColor, t.PrimaryColor)
	set(&style.TextColor, t.TextColor)
	set(&style.BackgroundColor, t.BackgroundColor)
	set(&style.BorderColor, t.BorderColor)
	if f := SafeFont(t.FontFamily, ""); f != "" {
		style.FontFamily = f
	}
	return style
}

var (
	colorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	fontRe  = regexp.MustCompile(`^[\p{L}\p{N} ,-]+$`)
)

// IsColor reports whether c is a #rgb or #rrggbb color.
func IsColor(c string) bool { return colorRe.MatchString(c) }

// SafeColor returns c when it is a hex color, fallback otherwise.
func SafeColor(c, fallback string) string {
	if IsColor(c) {
		return c
	}
	return fallback
}

// SafeFont returns a font-family list stripped of anything that could
// escape a CSS declaration, or fallback.
func SafeFont(f, fallback string) string {
	f = strings.TrimSpace(f)
	if f == "" || len(f) > 120 || !fontRe.MatchString(f) {
		return fallback
	}
	return f
}

// clamp bounds v to [lo, hi]. Negative values, and zero when lo is above
// zero, mean unset and take fallback.
func clamp(v, lo, hi, fallback int) int {
	if v < 0 || (v == 0 && lo > 0) {
		return fallback
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sanitize returns style with every value safe to inline into CSS, falling
// back to the defaults.
func sanitize(style models.ReportStyle) models.ReportStyle {
	def := models.DefaultSettings().Report.ReportStyle
	style.PrimaryColor = SafeColor(style.PrimaryColor, def.PrimaryColor)
	style.TextColor = SafeColor(style.TextColor, def.TextColor)
	style.BackgroundColor = SafeColor(style.BackgroundColor, def.BackgroundColor)
	style.BorderColor = SafeColor(style.BorderColor, def.BorderColor)
	style.FontFamily = SafeFont(style.FontFamily, def.FontFamily)
	style.FontSize = clamp(style.FontSize, 8, 24, def.FontSize)
	style.HeaderFontSize = clamp(style.HeaderFontSize, 10, 40, def.HeaderFontSize)
	style.CardPadding = clamp(style.CardPadding, 0, 48, def.CardPadding)
	style.CardRadius = clamp(style.CardRadius, 0, 32, def.CardRadius)
	style.CardColumns = clamp(style.CardColumns, 1, 4, def.CardColumns)
	style.QR.Size = clamp(style.QR.Size, 48, 256, def.QR.Size)
	style.QR.Color = SafeColor(style.QR.Color, def.QR.Color)
	style.QR.BackgroundColor = SafeColor(style.QR.BackgroundColor, def.QR.BackgroundColor)
	if style.QR.Position != "left" {
		style.QR.Position = "right"
	}
	return style
}
