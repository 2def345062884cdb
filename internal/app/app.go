package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"changestore/internal/codec"
	"changestore/internal/config"
	"changestore/internal/database"
	"changestore/internal/encryption"
	"changestore/internal/metrics"
	"changestore/internal/store"
	"changestore/internal/vault"
)

// App is the application layer between the CLI and the Store.
// It constructs all dependencies from config, exposes operations that accept
// file paths instead of ids, and manages the DB lifecycle on Close.
type App struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	vault     store.Vault
	encryptor store.Encryptor
	codec     *codec.Codec
	metrics   *metrics.Metrics
	store     *store.Store
	op        *Operation
	logger    store.Logger
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Write", "Confirm").
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.StoreID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date (run chs db migrate): %w", err)
	}

	// Check local DB version against the last backup in the vault.
	remoteVersion, err := v.GetMetadataVersion(ctx, cfg.StoreID, "db")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("checking remote metadata version: %w", err)
	}

	localVersion, err := db.Version(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("checking local metadata version: %w", err)
	}

	if remoteVersion > localVersion {
		db.Close()
		return nil, fmt.Errorf("local database is behind remote (local=%d, remote=%d): restore from vault or re-initialize", localVersion, remoteVersion)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	c, err := codec.New(cfg.Snapshots.Compression != "none", enc)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating codec: %w", err)
	}

	op := NewOperation(operation, localVersion)
	slogger, logFile, err := newLogger(cfg.LogDir, op.ID)
	if err != nil {
		c.Close()
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	m := metrics.New()
	snapshots := store.NewSnapshotStore(db, v, c, store.RealClock{}, cfg.Snapshots.VerifyDedup)
	s, err := store.Open(ctx, db, snapshots, logger, store.RealClock{}, store.UUIDGenerator{}, store.Options{
		DefaultBranch:   cfg.DefaultBranch,
		MaxWriteRetries: cfg.Writes.MaxRetries,
		Recorder:        m,
	})
	if err != nil {
		logFile.Close()
		c.Close()
		db.Close()
		return nil, fmt.Errorf("opening store: %w", err)
	}

	return &App{
		cfg:       cfg,
		db:        db,
		vault:     v,
		encryptor: enc,
		codec:     c,
		metrics:   m,
		store:     s,
		op:        op,
		logger:    logger,
		logFile:   logFile,
	}, nil
}

// Store returns the underlying store.
func (a *App) Store() *store.Store {
	return a.store
}

// Config returns the config the app was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Unlock makes encrypted snapshots readable for the rest of the session.
// It is a no-op when encryption is off.
func (a *App) Unlock() error {
	if a.encryptor == nil {
		return nil
	}
	passphrase, err := ReadPassphrase(a.cfg.Encryption, "Passphrase: ")
	if err != nil {
		return err
	}
	dc, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking encryption key: %w", err)
	}
	a.codec.Unlock(dc)
	return nil
}

// OpenFile returns the file at path, creating it if needed.
func (a *App) OpenFile(ctx context.Context, path string) (*store.File, error) {
	return a.store.OpenOrCreateFile(ctx, path)
}

// Write stores content as the current value of an entity of the file at path.
func (a *App) Write(ctx context.Context, path, entityID, changeType, branch string, content []byte) (*store.Change, error) {
	file, err := a.store.OpenOrCreateFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return a.store.Write(ctx, store.WriteRequest{
		FileID:   file.ID,
		EntityID: entityID,
		Type:     changeType,
		Content:  content,
		Branch:   branch,
	})
}

// Read returns the current value of an entity of the file at path, or nil if
// the entity has no changes in the branch.
func (a *App) Read(ctx context.Context, path, entityID, branch string) (*store.Entry, error) {
	file, err := a.store.FileByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	return a.store.Read(ctx, file.ID, entityID, branch)
}

// History returns the changes of an entity of the file at path, newest first.
func (a *App) History(ctx context.Context, path, entityID, branch string) ([]*store.Change, error) {
	file, err := a.store.FileByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	return a.store.History(ctx, file.ID, entityID, branch)
}

// Unconfirmed returns the leaves of the file at path that carry no confirmed
// label.
func (a *App) Unconfirmed(ctx context.Context, path, branch string) ([]*store.Change, error) {
	file, err := a.store.FileByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	return a.store.UnconfirmedChanges(ctx, file.ID, branch)
}

// Stats returns store counts and refreshes the row gauges.
func (a *App) Stats(ctx context.Context) (*store.Stats, error) {
	stats, err := a.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	a.metrics.ObserveStats(stats)
	return stats, nil
}

// WriteMetrics writes the metrics gathered during this session in the
// Prometheus text format.
func (a *App) WriteMetrics(w io.Writer) error {
	return a.metrics.WriteText(w)
}

// Backup copies the database into the vault as metadata "db", tagged with the
// current store version. Returns the version written.
func (a *App) Backup(ctx context.Context) (uint64, error) {
	tmpFile, err := os.CreateTemp("", "chs-db-backup-*.db")
	if err != nil {
		return 0, fmt.Errorf("creating temp file for db backup: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	version := a.store.CurrentVersion()
	if err := a.db.BackupTo(ctx, tmpPath); err != nil {
		return 0, err
	}
	if err := a.uploadMetadata(ctx, tmpPath, version); err != nil {
		return 0, err
	}

	a.logger.Info("database backed up", "version", version)
	return version, nil
}

// Close finalizes the operation and closes all resources.
// When the operation changed the store, the database is backed up to the vault
// before it is closed.
func (a *App) Close() error {
	var firstErr error

	if a.op.Mutated(a.store.CurrentVersion()) {
		if _, err := a.Backup(context.Background()); err != nil {
			firstErr = err
		}
	}

	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	a.codec.Close()

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// uploadMetadata opens the temp DB file and uploads it to the vault as metadata.
func (a *App) uploadMetadata(ctx context.Context, path string, version uint64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening db backup for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat db backup: %w", err)
	}

	if err := a.vault.PutMetadata(ctx, a.cfg.StoreID, "db", f, info.Size(), version); err != nil {
		return fmt.Errorf("uploading metadata to vault: %w", err)
	}

	return nil
}
