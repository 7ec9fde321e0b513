package handlers

import (
	"errors"
	"image"
	"io"
	"net/http"
	"strconv"

	"github.com/diewo77/inspection-workshop/httpx"
	"github.com/diewo77/inspection-workshop/i18n"
	"github.com/diewo77/inspection-workshop/internal/ai"
	"github.com/diewo77/inspection-workshop/internal/notify"
	"github.com/diewo77/inspection-workshop/internal/report"
	"github.com/diewo77/inspection-workshop/validation"
)

// AIHandler serves the assisted entry endpoints.
type AIHandler struct {
	Deps
	AI *ai.Client
}

func NewAIHandler(d Deps, client *ai.Client) *AIHandler {
	return &AIHandler{Deps: d, AI: client}
}

type plateView struct {
	Letters   string `json:"letters"`
	LettersAr string `json:"letters_ar"`
	LettersEn string `json:"letters_en"`
	Numbers   string `json:"numbers"`
	Plate     string `json:"plate"`
	Raw       string `json:"raw"`
}

// cropFromForm reads the optional x, y, w and h fields. A missing or
// empty rectangle means the whole photo.
func cropFromForm(r *http.Request) (image.Rectangle, bool) {
	vals := make([]int, 0, 4)
	for _, k := range []string{"x", "y", "w", "h"} {
		s := r.FormValue(k)
		if s == "" {
			return image.Rectangle{}, true
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || n < 0 {
			return image.Rectangle{}, false
		}
		vals = append(vals, int(n))
	}
	return image.Rect(vals[0], vals[1], vals[0]+vals[2], vals[1]+vals[3]), true
}

// Plate handles POST /api/ai/plate: a multipart "image" and an optional crop.
// The letters are returned in both alphabets.
func (h *AIHandler) Plate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		h.invalid(w, r, validation.Violations{"image": "required"})
		return
	}
	f, _, err := r.FormFile("image")
	if err != nil {
		h.invalid(w, r, validation.Violations{"image": "required"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		h.fail(w, r, err, "upload_failed")
		return
	}
	crop, ok := cropFromForm(r)
	if !ok {
		h.invalid(w, r, validation.Violations{"crop": "invalid"})
		return
	}

	table := h.State.Settings().PlateCharacters
	res, err := h.AI.ExtractPlate(r.Context(), data, crop, "ar")
	if errors.Is(err, ai.ErrNoPlate) {
		h.push(r, notify.Warning, "ai_no_plate")
		httpx.JSONErrorMessage(w, http.StatusUnprocessableEntity, "ai_no_plate", i18n.T(Lang(r), "ai_no_plate"), nil)
		return
	}
	if err != nil {
		h.aiFailed(w, r, err)
		return
	}
	out := plateView{
		LettersAr: res.Letters,
		LettersEn: report.Transliterate(res.Letters, table),
		Numbers:   res.Numbers,
		Raw:       res.Raw,
	}
	out.Letters = out.LettersAr
	if i18n.Normalize(r.FormValue("lang")) == "en" {
		out.Letters = out.LettersEn
	}
	out.Plate = report.FormatPlate(out.LettersAr, out.Numbers)
	httpx.JSON(w, http.StatusOK, out)
}
