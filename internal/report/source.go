package report

import (
	"errors"

	"github.com/diewo77/inspection-workshop/internal/models"
)

// ErrRequestNotFound is returned by Assemble for an unknown request.
var ErrRequestNotFound = errors.New("not_found")

// Source resolves the records a report refers to. *state.Store satisfies it.
type Source interface {
	Request(id string) (models.InspectionRequest, bool)
	ClientByID(id string) (models.Client, bool)
	Car(id string) (models.Car, bool)
	Make(id string) (models.CarMake, bool)
	Model(id string) (models.CarModel, bool)
	InspectionType(id string) (models.InspectionType, bool)
	Categories() []models.CustomFindingCategory
	Findings() []models.PredefinedFinding
	Settings() models.Settings
}

func ptr[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}

// Assemble gathers the Input of the report of request id.
func Assemble(src Source, id, lang, verifyURL string) (Input, error) {
	req, ok := src.Request(id)
	if !ok {
		return Input{}, ErrRequestNotFound
	}
	in := Input{
		Request:        req,
		Client:         ptr(src.ClientByID(req.ClientID)),
		Car:            ptr(src.Car(req.CarID)),
		InspectionType: ptr(src.InspectionType(req.InspectionTypeID)),
		Categories:     src.Categories(),
		Findings:       src.Findings(),
		Settings:       src.Settings(),
		Lang:           lang,
		VerifyURL:      verifyURL,
	}
	if in.Car != nil {
		in.Make = ptr(src.Make(in.Car.MakeID))
		in.Model = ptr(src.Model(in.Car.ModelID))
	}
	return in, nil
}
