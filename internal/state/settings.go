package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/diewo77/inspection-workshop/internal/models"
)

// ErrTemplateNotFound is returned when applying an unknown report template.
var ErrTemplateNotFound = errors.New("template_not_found")

// Settings returns the current settings.
func (s *Store) Settings() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.settings
	out.PlateCharacters = slices.Clone(out.PlateCharacters)
	out.Report.CustomFields = slices.Clone(out.Report.CustomFields)
	out.Report.Templates = slices.Clone(out.Report.Templates)
	return out
}

// UpdateSettings deep-merges patch over the current settings, applies the
// result locally, then persists it. The local value is rolled back when the
// write fails.
func (s *Store) UpdateSettings(ctx context.Context, patch map[string]any) (models.Settings, error) {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	prev := s.Settings()
	next, err := models.MergeSettings(prev, patch)
	if err != nil {
		return prev, err
	}
	s.setSettings(next)
	if err := s.persistSettings(ctx, next); err != nil {
		s.setSettings(prev)
		s.logger.Printf("settings write failed, rolled back: %v", err)
		return prev, err
	}
	return next, nil
}

// ReplaceSettings persists next as a whole, with the same rollback rule.
func (s *Store) ReplaceSettings(ctx context.Context, next models.Settings) (models.Settings, error) {
	raw, err := json.Marshal(next)
	if err != nil {
		return s.Settings(), err
	}
	var patch map[string]any
	if err := json.Unmarshal(raw, &patch); err != nil {
		return s.Settings(), err
	}
	return s.UpdateSettings(ctx, patch)
}

// SaveTemplate stores the current report style under name, replacing a
// template with the same name.
func (s *Store) SaveTemplate(ctx context.Context, name string) (models.Settings, error) {
	cur := s.Settings()
	tpl := models.ReportTemplate{Name: name, Style: cur.Report.ReportStyle}
	tpl.Style.CustomFields = slices.Clone(tpl.Style.CustomFields)
	templates := slices.DeleteFunc(cur.Report.Templates, func(t models.ReportTemplate) bool { return t.Name == name })
	templates = append(templates, tpl)
	return s.UpdateSettings(ctx, map[string]any{"report": map[string]any{"templates": toJSONValue(templates)}})
}

// ApplyTemplate copies a saved template's style into the report settings.
func (s *Store) ApplyTemplate(ctx context.Context, name string) (models.Settings, error) {
	cur := s.Settings()
	tpl, ok := cur.Report.Template(name)
	if !ok {
		return cur, ErrTemplateNotFound
	}
	style, ok := toJSONValue(tpl.Style).(map[string]any)
	if !ok {
		return cur, fmt.Errorf("encode template %q", name)
	}
	return s.UpdateSettings(ctx, map[string]any{"report": style})
}

// DeleteTemplate removes a saved template.
func (s *Store) DeleteTemplate(ctx context.Context, name string) (models.Settings, error) {
	cur := s.Settings()
	if _, ok := cur.Report.Template(name); !ok {
		return cur, ErrTemplateNotFound
	}
	templates := slices.DeleteFunc(cur.Report.Templates, func(t models.ReportTemplate) bool { return t.Name == name })
	return s.UpdateSettings(ctx, map[string]any{"report": map[string]any{"templates": toJSONValue(templates)}})
}

func (s *Store) setSettings(v models.Settings) {
	s.mu.Lock()
	s.settings = v
	s.mu.Unlock()
}

func (s *Store) persistSettings(ctx context.Context, v models.Settings) error {
	data, err := v.Encode()
	if err != nil {
		return err
	}
	row := models.AppSettings{ID: models.SettingsID, Data: data}
	return s.client.Settings.Upsert(ctx, &row)
}

// toJSONValue converts v to the generic form produced by encoding/json, so it
// can take part in a deep merge.
func toJSONValue(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
