package testutil

import (
	"context"
	"database/sql"
	"testing"

	"changestore/internal/codec"
	"changestore/internal/database"
	"changestore/internal/store"
	"changestore/internal/vault"
)

// TestStore bundles a Store with the parts tests poke at directly.
type TestStore struct {
	*store.Store
	DB    *database.SQLiteDatabase
	SQL   *sql.DB
	Vault *vault.MemoryVault
	Clock *StubClock
}

// StoreOption adjusts how NewTestStore builds a store.
type StoreOption func(*storeSettings)

type storeSettings struct {
	opts        store.Options
	verifyDedup bool
	compress    bool
	encrypt     bool
	wrapVault   func(store.Vault) store.Vault
}

// WithOptions sets the store options.
func WithOptions(opts store.Options) StoreOption {
	return func(s *storeSettings) { s.opts = opts }
}

// WithVerifyDedup makes deduplication compare payload bytes.
func WithVerifyDedup() StoreOption {
	return func(s *storeSettings) { s.verifyDedup = true }
}

// WithCompression stores payloads zstd-compressed.
func WithCompression() StoreOption {
	return func(s *storeSettings) { s.compress = true }
}

// WithEncryption encrypts payloads with the test encryptor. The store is
// unlocked from the start.
func WithEncryption() StoreOption {
	return func(s *storeSettings) { s.encrypt = true }
}

// WithVaultWrapper routes the store's vault calls through wrap. The TestStore
// Vault field still holds the underlying memory vault.
func WithVaultWrapper(wrap func(store.Vault) store.Vault) StoreOption {
	return func(s *storeSettings) { s.wrapVault = wrap }
}

// NewTestStore opens a Store over an in-memory database and vault with a
// stub clock and sequential ids.
func NewTestStore(t *testing.T, options ...StoreOption) *TestStore {
	t.Helper()

	var settings storeSettings
	for _, o := range options {
		o(&settings)
	}

	db, sqlDB := newTestDatabase(t)
	v := NewTestVault()
	clock := FixedClock()

	var enc store.Encryptor
	if settings.encrypt {
		enc = NewTestEncryptor()
	}
	c, err := codec.New(settings.compress, enc)
	if err != nil {
		t.Fatalf("codec.New() error = %v", err)
	}
	t.Cleanup(c.Close)
	if enc != nil {
		dc, err := enc.Unlock("")
		if err != nil {
			t.Fatalf("Unlock() error = %v", err)
		}
		c.Unlock(dc)
	}

	var sv store.Vault = v
	if settings.wrapVault != nil {
		sv = settings.wrapVault(v)
	}

	snapshots := store.NewSnapshotStore(db, sv, c, clock, settings.verifyDedup)
	s, err := store.Open(context.Background(), db, snapshots, store.NewNopLogger(), clock, NewStubIDGenerator(), settings.opts)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}

	return &TestStore{Store: s, DB: db, SQL: sqlDB, Vault: v, Clock: clock}
}
