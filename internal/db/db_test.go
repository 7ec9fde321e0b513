package db

import (
	"fmt"
	"testing"

	"github.com/diewo77/inspection-workshop/internal/config"
	"github.com/diewo77/inspection-workshop/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	d, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := Migrate(d); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestSeedIdempotent(t *testing.T) {
	d := openTestDB(t)
	if err := Seed(d); err != nil {
		t.Fatal(err)
	}
	if err := Seed(d); err != nil {
		t.Fatal(err)
	}
	var settings, categories, types int64
	d.Model(&models.AppSettings{}).Count(&settings)
	d.Model(&models.CustomFindingCategory{}).Count(&categories)
	d.Model(&models.InspectionType{}).Count(&types)
	if settings != 1 {
		t.Fatalf("expected 1 settings row got %d", settings)
	}
	if categories != int64(len(defaultCategories)) {
		t.Fatalf("expected %d categories got %d", len(defaultCategories), categories)
	}
	if types != 1 {
		t.Fatalf("expected 1 inspection type got %d", types)
	}

	var full models.InspectionType
	if err := d.First(&full).Error; err != nil {
		t.Fatal(err)
	}
	if len(full.FindingCategoryIDs) != len(defaultCategories) {
		t.Fatalf("inspection type lists %d categories", len(full.FindingCategoryIDs))
	}
}

func TestSeedKeepsExistingSettings(t *testing.T) {
	d := openTestDB(t)
	custom := models.DefaultSettings()
	custom.AppName = "Garage"
	data, _ := custom.Encode()
	if err := d.Create(&models.AppSettings{ID: models.SettingsID, Data: data}).Error; err != nil {
		t.Fatal(err)
	}
	if err := Seed(d); err != nil {
		t.Fatal(err)
	}
	var row models.AppSettings
	d.First(&row, "id = ?", models.SettingsID)
	s, err := models.LoadSettings(row.Data)
	if err != nil {
		t.Fatal(err)
	}
	if s.AppName != "Garage" {
		t.Fatalf("seed overwrote settings: %q", s.AppName)
	}
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{"postgres", "mysql", "sqlite", ""} {
		if _, err := Dialector(config.DatabaseConfig{Driver: driver, Path: "x.db"}); err != nil {
			t.Errorf("%q: %v", driver, err)
		}
	}
	if _, err := Dialector(config.DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected up and down migrations, got %d files", len(entries))
	}
}
