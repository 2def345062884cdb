package testutil

import (
	"database/sql"
	"testing"

	"changestore/internal/database"
)

// NewTestDatabase creates a new in-memory SQLite database with schema applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()
	db, _ := newTestDatabase(t)
	return db
}

// newTestDatabase also returns the raw connection so tests can tamper with
// rows the store API never lets them touch.
func newTestDatabase(t *testing.T) (*database.SQLiteDatabase, *sql.DB) {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if _, err := sqlDB.Exec(database.Schema); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	db := database.NewSQLiteDatabaseFromDB(sqlDB)

	t.Cleanup(func() {
		db.Close()
	})

	return db, sqlDB
}
