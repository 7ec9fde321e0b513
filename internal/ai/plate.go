package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrNoPlate is returned when the answer carries no plate.
var ErrNoPlate = errors.New("ai: no plate in response")

// PlateResult is the plate read from a photo.
type PlateResult struct {
	Letters string `json:"letters"`
	Numbers string `json:"numbers"`
	Raw     string `json:"raw"`
}

var (
	lettersRe = regexp.MustCompile(`(?im)^[ \t]*LETTERS:[ \t]*(.*)$`)
	numbersRe = regexp.MustCompile(`(?i)NUMBERS:[ \t]*([0-9٠-٩]+)`)
)

// minPlateWidth is the width small crops are upscaled to before recognition.
const minPlateWidth = 800

// PreprocessPlate prepares a plate photo for recognition: optional crop,
// grayscale, upscale of small crops, contrast and sharpening. The result is
// a JPEG.
func PreprocessPlate(data []byte, crop image.Rectangle) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if !crop.Empty() {
		img = imaging.Crop(img, crop)
	}
	gray := imaging.Grayscale(img)
	if w := gray.Bounds().Dx(); w > 0 && w < minPlateWidth {
		gray = imaging.Resize(gray, minPlateWidth, 0, imaging.Lanczos)
	}
	gray = imaging.AdjustContrast(gray, 30)
	gray = imaging.Sharpen(gray, 1)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func platePrompt(lang string) string {
	script := "Arabic letters exactly as printed"
	if lang == "en" {
		script = "the English (Latin) letters exactly as printed"
	}
	return strings.Join([]string{
		"This image shows a vehicle license plate.",
		"Read the plate and answer with exactly two lines and nothing else:",
		"LETTERS: " + script + ", separated by single spaces",
		"NUMBERS: the digits only, without spaces",
		"If there is no readable plate answer LETTERS: and NUMBERS: with empty values.",
	}, "\n")
}

// ParsePlateAnswer extracts the plate from a LETTERS/NUMBERS answer.
func ParsePlateAnswer(text string) (PlateResult, error) {
	res := PlateResult{Raw: text}
	if m := lettersRe.FindStringSubmatch(text); m != nil {
		res.Letters = strings.Join(strings.Fields(m[1]), " ")
	}
	if m := numbersRe.FindStringSubmatch(text); m != nil {
		res.Numbers = asciiDigits(m[1])
	}
	if res.Letters == "" && res.Numbers == "" {
		return res, ErrNoPlate
	}
	return res, nil
}

func asciiDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '٠' && r <= '٩' {
			return '0' + (r - '٠')
		}
		return r
	}, s)
}

// ExtractPlate reads the plate in a photo. lang selects the alphabet of the
// returned letters ("ar" or "en").
func (c *Client) ExtractPlate(ctx context.Context, data []byte, crop image.Rectangle, lang string) (PlateResult, error) {
	if !c.Enabled() {
		return PlateResult{}, ErrMissingKey
	}
	prepared, err := PreprocessPlate(data, crop)
	if err != nil {
		return PlateResult{}, err
	}
	zero := 0.0
	text, err := c.generate(ctx,
		[]part{textPart(platePrompt(lang)), imagePart("image/jpeg", prepared)},
		&generationConfig{Temperature: &zero},
	)
	if err != nil {
		return PlateResult{}, err
	}
	return ParsePlateAnswer(text)
}
