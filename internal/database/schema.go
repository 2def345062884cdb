package database

import _ "embed"

// Schema is the full schema produced by the migrations, used to set up
// throwaway databases in tests and tools.
//
//go:embed sqlc/schema.sql
var Schema string
