package app

import (
	"time"

	"github.com/google/uuid"
)

// Operation tracks one CLI invocation. Its ID tags every log line written
// during the invocation.
type Operation struct {
	ID           string
	Name         string
	StartVersion uint64
}

// NewOperation creates an operation that started at the given store version.
func NewOperation(name string, startVersion uint64) *Operation {
	return &Operation{
		ID:           time.Now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8],
		Name:         name,
		StartVersion: startVersion,
	}
}

// Mutated reports whether the store moved past the version the operation
// started at.
func (op *Operation) Mutated(current uint64) bool {
	return current > op.StartVersion
}
