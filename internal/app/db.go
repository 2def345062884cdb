package app

import (
	"fmt"

	"changestore/internal/config"
	"changestore/internal/database"
	"changestore/internal/database/migrations"
)

// MigrateDatabase brings the configured database to the latest schema and
// returns the resulting status.
func MigrateDatabase(cfg *config.Config) (migrations.Status, error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.StoreID)
	if err != nil {
		return migrations.Status{}, fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return migrations.Status{}, err
	}
	return db.MigrationStatus()
}

// DatabaseStatus reports the schema version of the configured database
// without changing it.
func DatabaseStatus(cfg *config.Config) (migrations.Status, error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.StoreID)
	if err != nil {
		return migrations.Status{}, fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	return db.MigrationStatus()
}
