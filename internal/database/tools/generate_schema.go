// Command generate_schema applies every migration to an in-memory database and
// writes the resulting schema to internal/database/sqlc/schema.sql, where sqlc
// and the test helpers read it.
package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"changestore/internal/database"
	"changestore/internal/database/migrations"
)

const header = `-- This file is auto-generated from migration files.
-- DO NOT EDIT MANUALLY. Run 'go generate ./internal/database' to regenerate.
-- Source: internal/database/migrations/files/*.sql

`

func main() {
	if err := run(filepath.Join("internal", "database", "sqlc", "schema.sql")); err != nil {
		fmt.Fprintf(os.Stderr, "generate_schema: %v\n", err)
		os.Exit(1)
	}
}

func run(outPath string) error {
	db, err := database.OpenConnection(":memory:")
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		return err
	}

	statements, err := schemaStatements(db)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString(header)
	for _, stmt := range statements {
		sb.WriteString(stmt)
		sb.WriteString(";\n\n")
	}

	if err := os.WriteFile(outPath, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	fmt.Printf("generated %s (%d statements)\n", outPath, len(statements))
	return nil
}

// schemaStatements returns the CREATE statements for tables, then indexes,
// each group sorted by name. SQLite internals and the migration bookkeeping
// table are left out.
func schemaStatements(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT sql
		FROM sqlite_master
		WHERE type IN ('table', 'index')
		  AND sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%'
		  AND tbl_name != 'schema_migrations'
		ORDER BY CASE type WHEN 'table' THEN 1 ELSE 2 END, name
	`)
	if err != nil {
		return nil, fmt.Errorf("reading sqlite_master: %w", err)
	}
	defer rows.Close()

	var statements []string
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return nil, fmt.Errorf("scanning schema row: %w", err)
		}
		statements = append(statements, stmt)
	}
	return statements, rows.Err()
}
