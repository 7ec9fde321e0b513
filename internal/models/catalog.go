package models

import (
	"strings"

	"gorm.io/datatypes"
)

// ChassisMarker prefixes a plate number that actually holds a chassis (VIN) number.
const ChassisMarker = "CHASSIS:"

// Car is a customer vehicle.
type Car struct {
	Base
	MakeID      string `gorm:"size:36;index" json:"make_id"`
	ModelID     string `gorm:"size:36;index" json:"model_id"`
	Year        int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	PlateNumber string `gorm:"size:100;index" json:"plate_number"`
	ClientID    string `gorm:"size:36;index" json:"client_id,omitempty"`
}

// IsChassis reports whether the plate field holds a chassis number.
func (c Car) IsChassis() bool {
	return strings.HasPrefix(c.PlateNumber, ChassisMarker)
}

// ChassisNumber returns the chassis number without its marker.
func (c Car) ChassisNumber() string {
	return strings.TrimSpace(strings.TrimPrefix(c.PlateNumber, ChassisMarker))
}

// CarMake is a bilingual manufacturer name.
type CarMake struct {
	Base
	NameAr string `gorm:"size:255" json:"name_ar"`
	NameEn string `gorm:"size:255;index" json:"name_en" validate:"required"`
}

// CarModel is a bilingual model name owned by a make.
type CarModel struct {
	Base
	MakeID string `gorm:"size:36;index;not null" json:"make_id" validate:"required"`
	NameAr string `gorm:"size:255" json:"name_ar"`
	NameEn string `gorm:"size:255;index" json:"name_en" validate:"required"`
}

// DisplayName picks the name matching lang, falling back to the other language.
func DisplayName(lang, ar, en string) string {
	if lang == "en" {
		if en != "" {
			return en
		}
		return ar
	}
	if ar != "" {
		return ar
	}
	return en
}

// InspectionType is a priced inspection package listing, in report order,
// the finding categories it covers.
type InspectionType struct {
	Base
	Name               string                      `gorm:"size:255;not null" json:"name" validate:"required"`
	Price              float64                     `gorm:"not null;default:0" json:"price" validate:"gte=0"`
	FindingCategoryIDs datatypes.JSONSlice[string] `json:"finding_category_ids"`
}

// CustomFindingCategory groups predefined findings.
type CustomFindingCategory struct {
	Base
	Name string `gorm:"size:255;not null" json:"name" validate:"required"`
}

// PredefinedFinding is an inspectable attribute with its allowed values.
type PredefinedFinding struct {
	Base
	Name              string                      `gorm:"size:255;not null" json:"name" validate:"required"`
	CategoryID        string                      `gorm:"size:36;index;not null" json:"category_id" validate:"required"`
	Options           datatypes.JSONSlice[string] `json:"options"`
	ReferenceImageURL string                      `gorm:"size:1000" json:"reference_image_url,omitempty"`
}

// ImageURLs returns the stored images owned by the finding.
func (f PredefinedFinding) ImageURLs() []string {
	if f.ReferenceImageURL == "" {
		return nil
	}
	return []string{f.ReferenceImageURL}
}
