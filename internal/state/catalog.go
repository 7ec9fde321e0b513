package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/diewo77/inspection-workshop/internal/models"
)

func (s *Store) AddCar(ctx context.Context, c *models.Car) error {
	return insert(ctx, s, s.client.Cars, &s.cars, c)
}

func (s *Store) UpdateCar(ctx context.Context, c *models.Car) error {
	return update(ctx, s, s.client.Cars, &s.cars, c)
}

func (s *Store) DeleteCar(ctx context.Context, id string) error {
	return remove(ctx, s, s.client.Cars, &s.cars, id)
}

func (s *Store) AddMake(ctx context.Context, m *models.CarMake) error {
	return insert(ctx, s, s.client.Makes, &s.makes, m)
}

func (s *Store) UpdateMake(ctx context.Context, m *models.CarMake) error {
	return update(ctx, s, s.client.Makes, &s.makes, m)
}

// DeleteMake deletes every model of the make, then the make itself.
func (s *Store) DeleteMake(ctx context.Context, id string) error {
	if _, err := s.client.Models.DeleteWhere(ctx, "make_id", id); err != nil {
		return fmt.Errorf("delete models of make %s: %w", id, err)
	}
	s.mu.Lock()
	s.carModels = deleteWhere(s.carModels, func(m models.CarModel) bool { return m.MakeID == id })
	s.mu.Unlock()
	return remove(ctx, s, s.client.Makes, &s.makes, id)
}

// FindOrCreateMake returns the make whose English name matches nameEn
// (case-insensitively) or inserts a new one.
func (s *Store) FindOrCreateMake(ctx context.Context, nameEn, nameAr string) (models.CarMake, error) {
	nameEn = strings.TrimSpace(nameEn)
	s.mu.RLock()
	for _, m := range s.makes {
		if strings.EqualFold(m.NameEn, nameEn) {
			s.mu.RUnlock()
			return m, nil
		}
	}
	s.mu.RUnlock()
	m := models.CarMake{NameEn: nameEn, NameAr: strings.TrimSpace(nameAr)}
	if err := s.AddMake(ctx, &m); err != nil {
		return m, err
	}
	return m, nil
}

func (s *Store) AddModel(ctx context.Context, m *models.CarModel) error {
	return insert(ctx, s, s.client.Models, &s.carModels, m)
}

func (s *Store) UpdateModel(ctx context.Context, m *models.CarModel) error {
	return update(ctx, s, s.client.Models, &s.carModels, m)
}

func (s *Store) DeleteModel(ctx context.Context, id string) error {
	return remove(ctx, s, s.client.Models, &s.carModels, id)
}

// FindOrCreateModel returns the model of makeID whose English name matches
// nameEn (case-insensitively) or inserts a new one.
func (s *Store) FindOrCreateModel(ctx context.Context, makeID, nameEn, nameAr string) (models.CarModel, error) {
	nameEn = strings.TrimSpace(nameEn)
	s.mu.RLock()
	for _, m := range s.carModels {
		if m.MakeID == makeID && strings.EqualFold(m.NameEn, nameEn) {
			s.mu.RUnlock()
			return m, nil
		}
	}
	s.mu.RUnlock()
	m := models.CarModel{MakeID: makeID, NameEn: nameEn, NameAr: strings.TrimSpace(nameAr)}
	if err := s.AddModel(ctx, &m); err != nil {
		return m, err
	}
	return m, nil
}

func (s *Store) AddInspectionType(ctx context.Context, t *models.InspectionType) error {
	return insert(ctx, s, s.client.InspectionTypes, &s.inspectionTypes, t)
}

func (s *Store) UpdateInspectionType(ctx context.Context, t *models.InspectionType) error {
	return update(ctx, s, s.client.InspectionTypes, &s.inspectionTypes, t)
}

func (s *Store) DeleteInspectionType(ctx context.Context, id string) error {
	return remove(ctx, s, s.client.InspectionTypes, &s.inspectionTypes, id)
}

func (s *Store) AddCategory(ctx context.Context, c *models.CustomFindingCategory) error {
	return insert(ctx, s, s.client.Categories, &s.categories, c)
}

func (s *Store) UpdateCategory(ctx context.Context, c *models.CustomFindingCategory) error {
	return update(ctx, s, s.client.Categories, &s.categories, c)
}

// DeleteCategory deletes the predefined findings of the category (and their
// reference images), then the category itself.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	var urls []string
	for _, f := range s.Findings() {
		if f.CategoryID == id {
			urls = append(urls, f.ImageURLs()...)
		}
	}
	s.removeImages(ctx, urls)
	if _, err := s.client.Findings.DeleteWhere(ctx, "category_id", id); err != nil {
		return fmt.Errorf("delete findings of category %s: %w", id, err)
	}
	s.mu.Lock()
	s.findings = deleteWhere(s.findings, func(f models.PredefinedFinding) bool { return f.CategoryID == id })
	s.mu.Unlock()
	return remove(ctx, s, s.client.Categories, &s.categories, id)
}

func (s *Store) AddFinding(ctx context.Context, f *models.PredefinedFinding) error {
	return insert(ctx, s, s.client.Findings, &s.findings, f)
}

func (s *Store) UpdateFinding(ctx context.Context, f *models.PredefinedFinding) error {
	return update(ctx, s, s.client.Findings, &s.findings, f)
}

func (s *Store) DeleteFinding(ctx context.Context, id string) error {
	if f, ok := lookup(s, &s.findings, id); ok {
		s.removeImages(ctx, f.ImageURLs())
	}
	return remove(ctx, s, s.client.Findings, &s.findings, id)
}

func deleteWhere[T any](list []T, match func(T) bool) []T {
	out := list[:0:0]
	for _, x := range list {
		if !match(x) {
			out = append(out, x)
		}
	}
	return out
}
