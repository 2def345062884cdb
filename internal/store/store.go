package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultBranchName is the branch created when a store is opened.
	DefaultBranchName = "main"

	// DefaultMaxWriteRetries bounds how often a write that lost a leaf race is
	// retried before ErrConcurrentMutation reaches the caller.
	DefaultMaxWriteRetries = 3
)

// Options tune a Store. Zero values select the defaults.
type Options struct {
	DefaultBranch   string
	MaxWriteRetries int
	Recorder        Recorder
}

// Store is the orchestration layer over the change log, the branch index, the
// snapshot store and the change-set tables. It owns the reactive version
// counter for the process.
type Store struct {
	database  Database
	snapshots *SnapshotStore
	notifier  *Notifier
	locks     *entityLocks
	logger    Logger

	// gc is held shared from snapshot preparation through commit and
	// exclusively by GarbageCollect, so a collected snapshot is never
	// referenced by a commit that checked it before the collection.
	gc sync.RWMutex

	clock     Clock
	idgen     IDGenerator
	recorder  Recorder

	defaultBranch string
	maxRetries    int
}

// Open creates a Store over an already migrated database. It seeds the version
// counter from the persisted value and makes sure the default branch exists.
func Open(ctx context.Context, database Database, snapshots *SnapshotStore, logger Logger, clock Clock, idgen IDGenerator, opts Options) (*Store, error) {
	if opts.DefaultBranch == "" {
		opts.DefaultBranch = DefaultBranchName
	}
	if opts.MaxWriteRetries <= 0 {
		opts.MaxWriteRetries = DefaultMaxWriteRetries
	}
	if opts.Recorder == nil {
		opts.Recorder = NopRecorder{}
	}

	version, err := database.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading store version: %w", err)
	}

	s := &Store{
		database:      database,
		snapshots:     snapshots,
		notifier:      NewNotifier(version),
		locks:         newEntityLocks(),
		logger:        logger,
		clock:         clock,
		idgen:         idgen,
		recorder:      opts.Recorder,
		defaultBranch: opts.DefaultBranch,
		maxRetries:    opts.MaxWriteRetries,
	}

	if _, err := s.EnsureBranch(ctx, s.defaultBranch); err != nil {
		return nil, fmt.Errorf("creating default branch: %w", err)
	}
	return s, nil
}

// DefaultBranch returns the name of the branch created on open.
func (s *Store) DefaultBranch() string {
	return s.defaultBranch
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.database.Close()
}

// publish makes a committed mutation visible to version pollers. A zero version
// means the mutation changed nothing.
func (s *Store) publish(version uint64, kind string) {
	if version == 0 {
		return
	}
	s.notifier.Publish(version)
	s.recorder.Mutation(kind)
}

func (s *Store) observe(name string, start time.Time) {
	s.recorder.Query(name, time.Since(start))
}

// OpenOrCreateFile returns the file at path, creating it if needed.
func (s *Store) OpenOrCreateFile(ctx context.Context, path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty file path", ErrInvalidArgument)
	}

	existing, err := s.database.FindFileByPath(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("finding file: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	file, version, err := s.database.CreateFile(ctx, &File{
		ID:        s.idgen.New(),
		Path:      path,
		Metadata:  map[string]string{},
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	s.publish(version, "file")

	if version != 0 {
		s.logger.Info("file created", "path", path, "file_id", file.ID)
	}
	return file, nil
}

// File returns a file by id.
func (s *Store) File(ctx context.Context, id string) (*File, error) {
	file, err := s.database.FindFileByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding file: %w", err)
	}
	if file == nil {
		return nil, fmt.Errorf("%w: file %s", ErrNotFound, id)
	}
	return file, nil
}

// FileByPath returns a file by path without creating it.
func (s *Store) FileByPath(ctx context.Context, path string) (*File, error) {
	file, err := s.database.FindFileByPath(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("finding file: %w", err)
	}
	if file == nil {
		return nil, fmt.Errorf("%w: file %q", ErrNotFound, path)
	}
	return file, nil
}

// ListFiles returns every file ordered by path.
func (s *Store) ListFiles(ctx context.Context) ([]*File, error) {
	files, err := s.database.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return files, nil
}

// SetFileMetadata sets one metadata key on a file.
func (s *Store) SetFileMetadata(ctx context.Context, fileID, key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: empty metadata key", ErrInvalidArgument)
	}
	if _, err := s.File(ctx, fileID); err != nil {
		return err
	}

	version, err := s.database.SetFileMetadata(ctx, fileID, key, value)
	if err != nil {
		return fmt.Errorf("setting file metadata: %w", err)
	}
	s.publish(version, "file_metadata")
	return nil
}

// WriteFileContent replaces the raw content of a file. The bytes are stored as
// a snapshot and deduplicated like entity content.
func (s *Store) WriteFileContent(ctx context.Context, fileID string, content []byte) (*Snapshot, error) {
	if _, err := s.File(ctx, fileID); err != nil {
		return nil, err
	}

	s.gc.RLock()
	defer s.gc.RUnlock()

	snap, _, err := s.snapshots.prepare(ctx, content)
	if err != nil {
		return nil, err
	}

	version, err := s.database.SetFileContent(ctx, fileID, snap)
	if err != nil {
		return nil, fmt.Errorf("setting file content: %w", err)
	}
	s.publish(version, "file_content")
	return snap, nil
}

// ReadFileContent returns the raw content of a file, or nil if none was ever
// written.
func (s *Store) ReadFileContent(ctx context.Context, fileID string) ([]byte, error) {
	file, err := s.File(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.ContentID == "" {
		return nil, nil
	}
	return s.snapshots.Get(ctx, file.ContentID)
}

// WriteRequest describes one entity write.
type WriteRequest struct {
	FileID   string
	EntityID string
	Type     string
	Content  []byte
	Branch   string // branch name; empty selects the default branch
}

// Write stores content as the new current value of an entity in a branch.
//
// The snapshot is deduplicated and uploaded first. The change append, the leaf
// pointer update and the version bump then commit in one transaction. A write
// that loses the leaf race to another process is retried against the new leaf.
func (s *Store) Write(ctx context.Context, req WriteRequest) (*Change, error) {
	return s.write(ctx, req, "")
}

func (s *Store) write(ctx context.Context, req WriteRequest, changeSetID string) (*Change, error) {
	if req.EntityID == "" {
		return nil, fmt.Errorf("%w: empty entity id", ErrInvalidArgument)
	}

	branch, err := s.branch(ctx, req.Branch)
	if err != nil {
		return nil, err
	}
	if _, err := s.File(ctx, req.FileID); err != nil {
		return nil, err
	}

	s.gc.RLock()
	defer s.gc.RUnlock()

	snap, dedup, err := s.snapshots.prepare(ctx, req.Content)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(entityKey{branchID: branch.ID, fileID: req.FileID, entityID: req.EntityID})
	defer unlock()

	for attempt := 0; ; attempt++ {
		leaf, err := s.database.FindLeaf(ctx, branch.ID, req.FileID, req.EntityID)
		if err != nil {
			return nil, fmt.Errorf("finding leaf: %w", err)
		}
		var expected int64
		if leaf != nil {
			expected = leaf.ID
		}

		change, version, err := s.database.CommitChange(ctx, CommitChangeParams{
			FileID:         req.FileID,
			EntityID:       req.EntityID,
			Type:           req.Type,
			BranchID:       branch.ID,
			Snapshot:       snap,
			SnapshotStored: dedup,
			ExpectedLeafID: expected,
			ChangeSetID:    changeSetID,
			Now:            s.clock.Now(),
		})
		if errors.Is(err, ErrConcurrentMutation) && attempt < s.maxRetries {
			s.logger.Warn("leaf moved during write, retrying",
				"branch", branch.Name, "entity_id", req.EntityID, "attempt", attempt+1)
			s.recorder.WriteRetried()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("committing change: %w", err)
		}

		s.publish(version, "write")
		s.recorder.WriteCommitted(dedup)
		s.logger.Debug("change committed",
			"change_id", change.ID, "branch", branch.Name, "entity_id", req.EntityID, "snapshot_id", snap.ID)
		return change, nil
	}
}

// Read returns the current value of an entity in a branch, or nil if the entity
// has no changes there.
func (s *Store) Read(ctx context.Context, fileID, entityID, branchName string) (*Entry, error) {
	defer s.observe("read", time.Now())

	branch, err := s.branch(ctx, branchName)
	if err != nil {
		return nil, err
	}

	leaf, err := s.database.FindLeaf(ctx, branch.ID, fileID, entityID)
	if err != nil {
		return nil, fmt.Errorf("finding leaf: %w", err)
	}
	if leaf == nil {
		return nil, nil
	}

	content, err := s.snapshots.Get(ctx, leaf.SnapshotID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: change %d references missing snapshot %s", ErrInvariantViolation, leaf.ID, leaf.SnapshotID)
		}
		return nil, err
	}
	return &Entry{Change: leaf, Content: content}, nil
}

// PutSnapshot stores content in the snapshot store without appending a change.
func (s *Store) PutSnapshot(ctx context.Context, content []byte) (*Snapshot, error) {
	s.gc.RLock()
	defer s.gc.RUnlock()

	snap, version, err := s.snapshots.Put(ctx, content)
	if err != nil {
		return nil, err
	}
	s.publish(version, "snapshot")
	return snap, nil
}

// Snapshot returns the content of a snapshot.
func (s *Store) Snapshot(ctx context.Context, id string) ([]byte, error) {
	return s.snapshots.Get(ctx, id)
}

// SnapshotCount returns the number of stored snapshots.
func (s *Store) SnapshotCount(ctx context.Context) (int64, error) {
	return s.snapshots.Count(ctx)
}

// CurrentVersion returns the store version. Consumers compare it with the value
// they last saw and re-run their queries when it moved. It never blocks.
func (s *Store) CurrentVersion() uint64 {
	return s.notifier.Version()
}

// Wait blocks until the version exceeds since.
func (s *Store) Wait(ctx context.Context, since uint64) (uint64, error) {
	return s.notifier.Wait(ctx, since)
}

// Subscribe delivers new versions until ctx is done.
func (s *Store) Subscribe(ctx context.Context) <-chan uint64 {
	return s.notifier.Subscribe(ctx)
}

// Refresh picks up mutations committed by other processes sharing the
// database. Returns the version after the refresh.
func (s *Store) Refresh(ctx context.Context) (uint64, error) {
	version, err := s.database.Version(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading store version: %w", err)
	}
	if s.notifier.Publish(version) {
		s.logger.Debug("store version refreshed", "version", version)
	}
	return s.notifier.Version(), nil
}
