package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/inspection-workshop/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Tables lists every persisted model, in creation order.
func Tables() []any {
	return []any{
		&models.Client{},
		&models.CarMake{},
		&models.CarModel{},
		&models.Car{},
		&models.CustomFindingCategory{},
		&models.PredefinedFinding{},
		&models.InspectionType{},
		&models.Broker{},
		&models.Employee{},
		&models.InspectionRequest{},
		&models.Expense{},
		&models.AppSettings{},
		&models.ClientState{},
	}
}

// Migrate applies the schema with gorm AutoMigrate.
func Migrate(db *gorm.DB) error {
	for _, m := range Tables() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	for _, table := range []string{"requests", "clients", "app_settings"} {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// MigrateSQL runs the embedded SQL migrations against a PostgreSQL database URL.
func MigrateSQL(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
