package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/inspection-workshop/internal/report"
)

// ErrInvalidTheme is returned when the suggested theme has unusable values.
var ErrInvalidTheme = errors.New("ai: invalid theme suggestion")

var themeSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"name":             map[string]any{"type": "STRING"},
		"primary_color":    map[string]any{"type": "STRING", "description": "hex color #rrggbb"},
		"text_color":       map[string]any{"type": "STRING", "description": "hex color #rrggbb"},
		"background_color": map[string]any{"type": "STRING", "description": "hex color #rrggbb"},
		"border_color":     map[string]any{"type": "STRING", "description": "hex color #rrggbb"},
		"font_family":      map[string]any{"type": "STRING", "description": "CSS font-family list supporting Arabic"},
	},
	"required": []string{"name", "primary_color", "text_color", "background_color", "border_color", "font_family"},
}

// SuggestTheme asks the model for a report theme matching description.
func (c *Client) SuggestTheme(ctx context.Context, description string) (report.Theme, error) {
	if !c.Enabled() {
		return report.Theme{}, ErrMissingKey
	}
	prompt := "Design a color and typography theme for a printed vehicle inspection report. " +
		"The text must stay readable on the background. Request: " + strings.TrimSpace(description)
	text, err := c.generate(ctx, []part{textPart(prompt)}, &generationConfig{
		ResponseMimeType: "application/json",
		ResponseSchema:   themeSchema,
	})
	if err != nil {
		return report.Theme{}, err
	}
	var th report.Theme
	if err := json.Unmarshal([]byte(text), &th); err != nil {
		return report.Theme{}, fmt.Errorf("decode theme: %w", err)
	}
	for _, col := range []string{th.PrimaryColor, th.TextColor, th.BackgroundColor, th.BorderColor} {
		if !report.IsColor(col) {
			return report.Theme{}, fmt.Errorf("%w: color %q", ErrInvalidTheme, col)
		}
	}
	th.FontFamily = report.SafeFont(th.FontFamily, "")
	return th, nil
}
