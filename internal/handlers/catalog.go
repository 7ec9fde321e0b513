package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/diewo77/inspection-workshop/httpx"
	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/diewo77/inspection-workshop/internal/report"
	"github.com/diewo77/inspection-workshop/internal/state"
	"github.com/diewo77/inspection-workshop/validation"
)

// CatalogHandler serves the vehicle and inspection catalogs.
type CatalogHandler struct {
	Deps
	Makes           resource[models.CarMake, *models.CarMake]
	Models          resource[models.CarModel, *models.CarModel]
	InspectionTypes resource[models.InspectionType, *models.InspectionType]
	Categories      resource[models.CustomFindingCategory, *models.CustomFindingCategory]
	Findings        resource[models.PredefinedFinding, *models.PredefinedFinding]
}

func NewCatalogHandler(d Deps) *CatalogHandler {
	s := d.State
	h := &CatalogHandler{Deps: d}
	h.Makes = resource[models.CarMake, *models.CarMake]{
		Deps: d, kind: "make",
		all: s.Makes, get: s.Make, add: s.AddMake, update: s.UpdateMake, remove: s.DeleteMake,
		match: func(m models.CarMake, q string) bool { return contains(m.NameEn, q) || contains(m.NameAr, q) },
	}
	h.Models = resource[models.CarModel, *models.CarModel]{
		Deps: d, kind: "model",
		all: s.Models, get: s.Model, add: s.AddModel, update: s.UpdateModel, remove: s.DeleteModel,
		match: func(m models.CarModel, q string) bool { return m.MakeID == q || contains(m.NameEn, q) || contains(m.NameAr, q) },
		check: func(m *models.CarModel, v validation.Violations) {
			if _, ok := s.Make(m.MakeID); m.MakeID != "" && !ok {
				v["make_id"] = "invalid_choice"
			}
		},
	}
	h.InspectionTypes = resource[models.InspectionType, *models.InspectionType]{
		Deps: d, kind: "inspection_type",
		all: s.InspectionTypes, get: s.InspectionType, add: s.AddInspectionType,
		update: s.UpdateInspectionType, remove: s.DeleteInspectionType,
		check: func(t *models.InspectionType, v validation.Violations) {
			for _, id := range t.FindingCategoryIDs {
				if _, ok := s.Category(id); !ok {
					v["finding_category_ids"] = "invalid_choice"
				}
			}
		},
	}
	h.Categories = resource[models.CustomFindingCategory, *models.CustomFindingCategory]{
		Deps: d, kind: "category",
		all: s.Categories, get: s.Category, add: s.AddCategory, update: s.UpdateCategory, remove: s.DeleteCategory,
	}
	h.Findings = resource[models.PredefinedFinding, *models.PredefinedFinding]{
		Deps: d, kind: "finding",
		all: s.Findings, get: s.Finding, add: s.AddFinding, update: s.UpdateFinding, remove: s.DeleteFinding,
		match: func(f models.PredefinedFinding, q string) bool { return f.CategoryID == q || contains(f.Name, q) },
		check: func(f *models.PredefinedFinding, v validation.Violations) {
			if _, ok := s.Category(f.CategoryID); f.CategoryID != "" && !ok {
				v["category_id"] = "invalid_choice"
			}
		},
	}
	return h
}

// carInput describes a car by ids or by names. Names missing from the
// catalog are added to it.
type carInput struct {
	ID          string `json:"id"`
	ClientID    string `json:"client_id"`
	MakeID      string `json:"make_id"`
	ModelID     string `json:"model_id"`
	MakeEn      string `json:"make_en"`
	MakeAr      string `json:"make_ar"`
	ModelEn     string `json:"model_en"`
	ModelAr     string `json:"model_ar"`
	Year        int    `json:"year"`
	PlateNumber string `json:"plate_number"`
	Chassis     string `json:"chassis"`
}

// resolveCar turns in into a car, creating the make and model when given
// by name. base is the car being edited, if any.
func resolveCar(ctx context.Context, s *state.Store, in carInput, base models.Car) (models.Car, validation.Violations, error) {
	v := validation.Violations{}
	car := base
	if in.ClientID != "" {
		car.ClientID = in.ClientID
	}
	if in.Year != 0 {
		car.Year = in.Year
	}
	switch {
	case strings.TrimSpace(in.Chassis) != "":
		car.PlateNumber = models.ChassisMarker + strings.TrimSpace(in.Chassis)
	case in.PlateNumber != "":
		car.PlateNumber = strings.Join(strings.Fields(in.PlateNumber), " ")
	}

	switch {
	case in.MakeID != "":
		if _, ok := s.Make(in.MakeID); !ok {
			v["make_id"] = "invalid_choice"
		}
		car.MakeID = in.MakeID
	case strings.TrimSpace(in.MakeEn) != "":
		mk, err := s.FindOrCreateMake(ctx, in.MakeEn, in.MakeAr)
		if err != nil {
			return car, v, err
		}
		car.MakeID = mk.ID
	}
	switch {
	case in.ModelID != "":
		md, ok := s.Model(in.ModelID)
		if !ok || (car.MakeID != "" && md.MakeID != car.MakeID) {
			v["model_id"] = "invalid_choice"
		}
		car.ModelID = in.ModelID
	case strings.TrimSpace(in.ModelEn) != "":
		if car.MakeID == "" {
			v["make_id"] = "required"
			break
		}
		md, err := s.FindOrCreateModel(ctx, car.MakeID, in.ModelEn, in.ModelAr)
		if err != nil {
			return car, v, err
		}
		car.ModelID = md.ID
	}
	return car, v.Merge(validation.Struct(&car)), nil
}

// carView is a car with its display names and parsed plate.
type carView struct {
	models.Car
	Make  string       `json:"make"`
	Model string       `json:"model"`
	Plate report.Plate `json:"plate"`
}

func (h *CatalogHandler) carView(c models.Car, lang string) carView {
	cv := carView{Car: c, Plate: report.ParsePlate(c.PlateNumber, h.State.Settings().PlateCharacters)}
	if mk, ok := h.State.Make(c.MakeID); ok {
		cv.Make = models.DisplayName(lang, mk.NameAr, mk.NameEn)
	}
	if md, ok := h.State.Model(c.ModelID); ok {
		cv.Model = models.DisplayName(lang, md.NameAr, md.NameEn)
	}
	return cv
}

func (h *CatalogHandler) ListCars(w http.ResponseWriter, r *http.Request) {
	lang := Lang(r)
	q := r.URL.Query()
	out := []carView{}
	for _, c := range h.State.Cars() {
		if id := q.Get("client_id"); id != "" && c.ClientID != id {
			continue
		}
		cv := h.carView(c, lang)
		if s := q.Get("q"); s != "" && !contains(c.PlateNumber, s) && !contains(cv.Plate.LettersEn+" "+cv.Plate.Numbers, s) &&
			!contains(cv.Make, s) && !contains(cv.Model, s) {
			continue
		}
		out = append(out, cv)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out, "total": len(out)})
}

func (h *CatalogHandler) GetCar(w http.ResponseWriter, r *http.Request) {
	c, ok := h.State.Car(r.PathValue("id"))
	if !ok {
		httpx.JSONErrorMessage(w, http.StatusNotFound, "not_found", "", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, h.carView(c, Lang(r)))
}

func (h *CatalogHandler) CreateCar(w http.ResponseWriter, r *http.Request) {
	var in carInput
	if err := httpx.Decode(r, &in); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	car, v, err := resolveCar(r.Context(), h.State, in, models.Car{})
	if err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	if !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	if err := h.State.AddCar(r.Context(), &car); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	h.ok(w, r, http.StatusCreated, "created", h.carView(car, Lang(r)))
}

func (h *CatalogHandler) UpdateCar(w http.ResponseWriter, r *http.Request) {
	base, ok := h.State.Car(r.PathValue("id"))
	if !ok {
		httpx.JSONErrorMessage(w, http.StatusNotFound, "not_found", "", nil)
		return
	}
	var in carInput
	if err := httpx.Decode(r, &in); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	car, v, err := resolveCar(r.Context(), h.State, in, base)
	if err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	if !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	if err := h.State.UpdateCar(r.Context(), &car); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	h.ok(w, r, http.StatusOK, "saved", h.carView(car, Lang(r)))
}

func (h *CatalogHandler) DeleteCar(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.State.Car(id); !ok {
		httpx.JSONErrorMessage(w, http.StatusNotFound, "not_found", "", nil)
		return
	}
	if !h.confirmed(w, r, DeleteAction("car", id)) {
		return
	}
	if err := h.State.DeleteCar(r.Context(), id); err != nil {
		h.fail(w, r, err, "delete_failed")
		return
	}
	h.ok(w, r, http.StatusOK, "deleted", map[string]string{"id": id})
}

type nameInput struct {
	MakeID string `json:"make_id"`
	NameEn string `json:"name_en"`
	NameAr string `json:"name_ar"`
}

// FindOrCreateMake returns the make named name_en, adding it when missing.
func (h *CatalogHandler) FindOrCreateMake(w http.ResponseWriter, r *http.Request) {
	var in nameInput
	if err := httpx.Decode(r, &in); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	v := validation.Violations{}
	validation.Required("name_en", in.NameEn, v)
	if !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	mk, err := h.State.FindOrCreateMake(r.Context(), in.NameEn, in.NameAr)
	if err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	httpx.JSON(w, http.StatusOK, mk)
}

// FindOrCreateModel returns the model of make_id named name_en, adding it when missing.
func (h *CatalogHandler) FindOrCreateModel(w http.ResponseWriter, r *http.Request) {
	var in nameInput
	if err := httpx.Decode(r, &in); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	v := validation.Violations{}
	validation.Required("name_en", in.NameEn, v)
	if _, ok := h.State.Make(in.MakeID); !ok {
		v["make_id"] = "invalid_choice"
	}
	if !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	md, err := h.State.FindOrCreateModel(r.Context(), in.MakeID, in.NameEn, in.NameAr)
	if err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	httpx.JSON(w, http.StatusOK, md)
}
