package db

import (
	"errors"
	"fmt"

	"github.com/diewo77/inspection-workshop/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// defaultCategories is the initial finding catalog, in report order.
var defaultCategories = []struct {
	Name     string
	Findings []string
}{
	{"Exterior", []string{"Front bumper", "Rear bumper", "Hood", "Roof", "Doors", "Paint"}},
	{"Interior", []string{"Seats", "Dashboard", "Air conditioning", "Electrics"}},
	{"Engine", []string{"Engine condition", "Oil leaks", "Cooling system", "Belts"}},
	{"Chassis", []string{"Chassis", "Suspension", "Brakes", "Tyres"}},
}

var defaultOptions = []string{"Good", "Repainted", "Replaced", "Damaged"}

// Seed inserts the default settings row and, on an empty catalog, the
// default finding categories, their findings and a full inspection type.
// It is idempotent.
func Seed(db *gorm.DB) error {
	if err := seedSettings(db); err != nil {
		return err
	}
	return seedCatalog(db)
}

func seedSettings(db *gorm.DB) error {
	var row models.AppSettings
	err := db.Where("id = ?", models.SettingsID).First(&row).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	data, err := models.DefaultSettings().Encode()
	if err != nil {
		return err
	}
	return db.Create(&models.AppSettings{ID: models.SettingsID, Data: data}).Error
}

func seedCatalog(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.CustomFindingCategory{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var ids []string
		for _, c := range defaultCategories {
			cat := models.CustomFindingCategory{Name: c.Name}
			if err := tx.Create(&cat).Error; err != nil {
				return fmt.Errorf("seed category %s: %w", c.Name, err)
			}
			ids = append(ids, cat.ID)
			for _, name := range c.Findings {
				f := models.PredefinedFinding{
					Name:       name,
					CategoryID: cat.ID,
					Options:    datatypes.JSONSlice[string](defaultOptions),
				}
				if err := tx.Create(&f).Error; err != nil {
					return fmt.Errorf("seed finding %s: %w", name, err)
				}
			}
		}
		full := models.InspectionType{Name: "Full inspection", Price: 0, FindingCategoryIDs: ids}
		return tx.Create(&full).Error
	})
}
