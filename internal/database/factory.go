package database

import (
	"fmt"
	"os"
	"path/filepath"

	"changestore/internal/config"
)

// NewDatabaseFromConfig creates a database based on the database config type.
// SQLite databases are stored as <data_dir>/<storeID>.db and left at whatever
// schema version they have; callers check or run migrations. Memory databases
// start empty and are migrated on open.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, storeID string) (*SQLiteDatabase, error) {
	var path string
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		path = filepath.Join(cfg.DataDir, storeID+".db")
	case "memory":
		path = ":memory:"
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}

	db, err := NewSQLiteDatabase(path)
	if err != nil {
		return nil, err
	}
	if cfg.Type != "memory" {
		return db, nil
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
