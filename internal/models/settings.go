package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// SettingsID is the primary key of the single settings row.
const SettingsID = "global"

// AppSettings is the singleton settings row. Data holds a JSON encoded Settings.
type AppSettings struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	Data      datatypes.JSON `json:"data"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// PlateCharacterPair maps one Arabic plate letter to its English counterpart.
type PlateCharacterPair struct {
	Ar string `json:"ar"`
	En string `json:"en"`
}

// QRStyle configures the verification QR code printed on reports.
type QRStyle struct {
	Enabled         bool   `json:"enabled"`
	Size            int    `json:"size"`
	Color           string `json:"color"`
	BackgroundColor string `json:"background_color"`
	Position        string `json:"position"`
}

// HeaderField is a custom label/value pair shown in the report header.
type HeaderField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ReportStyle is the part of the report settings that a saved template captures.
type ReportStyle struct {
	PrimaryColor    string        `json:"primary_color"`
	TextColor       string        `json:"text_color"`
	BackgroundColor string        `json:"background_color"`
	BorderColor     string        `json:"border_color"`
	FontFamily      string        `json:"font_family"`
	FontSize        int           `json:"font_size"`
	HeaderFontSize  int           `json:"header_font_size"`
	CardPadding     int           `json:"card_padding"`
	CardRadius      int           `json:"card_radius"`
	CardColumns     int           `json:"card_columns"`
	QR              QRStyle       `json:"qr"`
	Disclaimer      string        `json:"disclaimer"`
	ShowPrice       bool          `json:"show_price"`
	CustomFields    []HeaderField `json:"custom_fields"`
}

// ReportTemplate is a named, saved ReportStyle.
type ReportTemplate struct {
	Name  string      `json:"name"`
	Style ReportStyle `json:"style"`
}

// ReportSettings is the visual configuration applied when rendering reports.
type ReportSettings struct {
	ReportStyle
	StampURL  string           `json:"stamp_url"`
	Templates []ReportTemplate `json:"templates"`
}

// Settings is the decoded content of the settings row.
type Settings struct {
	AppName         string               `json:"app_name"`
	LogoURL         string               `json:"logo_url"`
	Theme           string               `json:"theme"`
	Language        string               `json:"language"`
	PlateCharacters []PlateCharacterPair `json:"plate_characters"`
	Report          ReportSettings       `json:"report"`
}

// DefaultPlateCharacters is the default Arabic to English plate letter table.
func DefaultPlateCharacters() []PlateCharacterPair {
	return []PlateCharacterPair{
		{Ar: "أ", En: "A"},
		{Ar: "ب", En: "B"},
		{Ar: "ج", En: "J"},
		{Ar: "د", En: "D"},
		{Ar: "ر", En: "R"},
		{Ar: "س", En: "S"},
		{Ar: "ص", En: "X"},
		{Ar: "ط", En: "T"},
		{Ar: "ع", En: "E"},
		{Ar: "ق", En: "G"},
		{Ar: "ك", En: "K"},
		{Ar: "ل", En: "L"},
		{Ar: "م", En: "Z"},
		{Ar: "ن", En: "N"},
		{Ar: "ه", En: "H"},
		{Ar: "و", En: "U"},
		{Ar: "ى", En: "V"},
	}
}

// DefaultSettings returns the settings used when the stored row is empty.
func DefaultSettings() Settings {
	return Settings{
		AppName:         "Inspection Workshop",
		Theme:           "light",
		Language:        "ar",
		PlateCharacters: DefaultPlateCharacters(),
		Report: ReportSettings{
			ReportStyle: ReportStyle{
				PrimaryColor:    "#1e3a8a",
				TextColor:       "#111827",
				BackgroundColor: "#ffffff",
				BorderColor:     "#e5e7eb",
				FontFamily:      "Tajawal, sans-serif",
				FontSize:        12,
				HeaderFontSize:  18,
				CardPadding:     12,
				CardRadius:      8,
				CardColumns:     2,
				QR: QRStyle{
					Enabled:         true,
					Size:            96,
					Color:           "#000000",
					BackgroundColor: "#ffffff",
					Position:        "right",
				},
				ShowPrice: true,
			},
		},
	}
}

// LoadSettings decodes a stored settings document over the defaults, so that
// fields missing from the stored row keep their default value.
func LoadSettings(raw []byte) (Settings, error) {
	s := DefaultSettings()
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "{}" {
		return s, nil
	}
	var patch map[string]any
	if err := json.Unmarshal(raw, &patch); err != nil {
		return s, fmt.Errorf("decode settings: %w", err)
	}
	return MergeSettings(s, patch)
}

// MergeSettings deep-merges patch over base. Nested objects are merged key by
// key; any other value (including arrays) replaces the previous one.
func MergeSettings(base Settings, patch map[string]any) (Settings, error) {
	raw, err := json.Marshal(base)
	if err != nil {
		return base, err
	}
	var current map[string]any
	if err := json.Unmarshal(raw, &current); err != nil {
		return base, err
	}
	merged, err := json.Marshal(DeepMerge(current, patch))
	if err != nil {
		return base, err
	}
	var out Settings
	if err := json.Unmarshal(merged, &out); err != nil {
		return base, fmt.Errorf("merge settings: %w", err)
	}
	return out, nil
}

// DeepMerge returns dst with src merged into it recursively. dst is modified.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		sv, srcIsMap := v.(map[string]any)
		dv, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[k] = DeepMerge(dv, sv)
			continue
		}
		dst[k] = v
	}
	return dst
}

// Encode serialises s for storage in the settings row.
func (s Settings) Encode() (datatypes.JSON, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// Template returns the saved report template with the given name.
func (r ReportSettings) Template(name string) (ReportTemplate, bool) {
	for _, t := range r.Templates {
		if t.Name == name {
			return t, true
		}
	}
	return ReportTemplate{}, false
}
