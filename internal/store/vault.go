package store

import (
	"context"
	"io"
)

// Vault provides an interface for snapshot payload storage backends.
// Payloads are addressed by snapshot id. All operations stream through
// io.Reader/io.Writer.
type Vault interface {
	// PutContent stores content under key.
	// The operation is idempotent: storing the same key multiple times is safe.
	// size is the number of bytes that will be read from r.
	PutContent(ctx context.Context, key string, r io.Reader, size int64) error

	// GetContent retrieves content by key and writes it to w.
	// Returns an error wrapping ErrNotFound if the key is absent.
	GetContent(ctx context.Context, key string, w io.Writer) error

	// HasContent reports whether content is stored under key.
	HasContent(ctx context.Context, key string) (bool, error)

	// DeleteContent removes content by key. Deleting a missing key is not an error.
	DeleteContent(ctx context.Context, key string) error

	// PutMetadata stores a named metadata item for a store.
	// version is stored alongside the metadata for consistency checks.
	// Known names: "db" (SQLite database backup).
	PutMetadata(ctx context.Context, storeID string, name string, r io.Reader, size int64, version uint64) error

	// GetMetadata retrieves a named metadata item for a store and writes it to w.
	GetMetadata(ctx context.Context, storeID string, name string, w io.Writer) error

	// GetMetadataVersion returns the metadata version for a named item.
	// Returns 0 if no metadata has been stored for this store/name.
	GetMetadataVersion(ctx context.Context, storeID string, name string) (uint64, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}
