package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"changestore/internal/database/migrations"
	"changestore/internal/database/sqlc"
	"changestore/internal/store"
)

// SQLiteDatabase implements the store.Database interface using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    path,
	}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
	}
}

// OpenConnection opens and configures a SQLite database connection.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
//
// Write transactions begin IMMEDIATE so that two writers serialize on the
// database lock instead of failing on lock upgrade.
func OpenConnection(path string) (*sql.DB, error) {
	dsn := path + "?_foreign_keys=1&_txlock=immediate"
	if path != ":memory:" {
		dsn = "file:" + path + "?_foreign_keys=1&_txlock=immediate&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func toTime(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC()
}

func fromTime(t time.Time) int64 {
	return t.UnixNano()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// withTx runs fn in a transaction and commits it if fn succeeds.
func (s *SQLiteDatabase) withTx(ctx context.Context, fn func(q *sqlc.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(s.queries.WithTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// mutate runs fn in a transaction and bumps the store version in the same
// transaction when fn reports a change. Returns the new version, or 0.
func (s *SQLiteDatabase) mutate(ctx context.Context, fn func(q *sqlc.Queries) (bool, error)) (uint64, error) {
	var version uint64
	err := s.withTx(ctx, func(q *sqlc.Queries) error {
		changed, err := fn(q)
		if err != nil || !changed {
			return err
		}
		version, err = bumpVersion(ctx, q)
		return err
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

func bumpVersion(ctx context.Context, q *sqlc.Queries) (uint64, error) {
	v, err := q.BumpVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("bumping store version: %w", err)
	}
	return uint64(v), nil
}

// File operations

func (s *SQLiteDatabase) toFile(ctx context.Context, q *sqlc.Queries, row sqlc.File) (*store.File, error) {
	rows, err := q.ListFileMetadata(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("listing file metadata: %w", err)
	}
	metadata := make(map[string]string, len(rows))
	for _, m := range rows {
		metadata[m.Key] = m.Value
	}

	return &store.File{
		ID:        row.ID,
		Path:      row.Path,
		Metadata:  metadata,
		ContentID: row.ContentID.String,
		CreatedAt: toTime(row.CreatedAt),
	}, nil
}

func (s *SQLiteDatabase) FindFileByID(ctx context.Context, id string) (*store.File, error) {
	row, err := s.queries.GetFileByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding file by id: %w", err)
	}
	return s.toFile(ctx, s.queries, row)
}

func (s *SQLiteDatabase) FindFileByPath(ctx context.Context, path string) (*store.File, error) {
	row, err := s.queries.GetFileByPath(ctx, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding file by path: %w", err)
	}
	return s.toFile(ctx, s.queries, row)
}

func (s *SQLiteDatabase) ListFiles(ctx context.Context) ([]*store.File, error) {
	rows, err := s.queries.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	files := make([]*store.File, 0, len(rows))
	for _, row := range rows {
		file, err := s.toFile(ctx, s.queries, row)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

func (s *SQLiteDatabase) CreateFile(ctx context.Context, file *store.File) (*store.File, uint64, error) {
	var result *store.File
	version, err := s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		row, err := q.InsertFile(ctx, sqlc.InsertFileParams{
			ID:        file.ID,
			Path:      file.Path,
			ContentID: sql.NullString{String: file.ContentID, Valid: file.ContentID != ""},
			CreatedAt: fromTime(file.CreatedAt),
		})
		if errors.Is(err, sql.ErrNoRows) {
			// Another writer created the path first.
			existing, err := q.GetFileByPath(ctx, file.Path)
			if err != nil {
				return false, fmt.Errorf("finding existing file: %w", err)
			}
			result, err = s.toFile(ctx, q, existing)
			return false, err
		}
		if err != nil {
			return false, fmt.Errorf("inserting file: %w", err)
		}

		for key, value := range file.Metadata {
			if _, err := q.UpsertFileMetadata(ctx, sqlc.UpsertFileMetadataParams{
				FileID: row.ID,
				Key:    key,
				Value:  value,
			}); err != nil {
				return false, fmt.Errorf("inserting file metadata: %w", err)
			}
		}

		result, err = s.toFile(ctx, q, row)
		return err == nil, err
	})
	if err != nil {
		return nil, 0, err
	}
	return result, version, nil
}

func (s *SQLiteDatabase) SetFileMetadata(ctx context.Context, fileID, key, value string) (uint64, error) {
	return s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		n, err := q.UpsertFileMetadata(ctx, sqlc.UpsertFileMetadataParams{
			FileID: fileID,
			Key:    key,
			Value:  value,
		})
		if err != nil {
			return false, fmt.Errorf("setting file metadata: %w", err)
		}
		return n > 0, nil
	})
}

func (s *SQLiteDatabase) SetFileContent(ctx context.Context, fileID string, snapshot *store.Snapshot) (uint64, error) {
	if snapshot == nil {
		return 0, fmt.Errorf("%w: file content without snapshot", store.ErrInvariantViolation)
	}

	return s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		inserted, err := insertSnapshot(ctx, q, snapshot)
		if err != nil {
			return false, err
		}

		updated, err := q.UpdateFileContent(ctx, sqlc.UpdateFileContentParams{
			ContentID: sql.NullString{String: snapshot.ID, Valid: true},
			ID:        fileID,
		})
		if err != nil {
			return false, fmt.Errorf("updating file content: %w", err)
		}
		return inserted || updated > 0, nil
	})
}

// Branch operations

func toBranch(row sqlc.Branch) *store.Branch {
	return &store.Branch{
		ID:        row.ID,
		Name:      row.Name,
		CreatedAt: toTime(row.CreatedAt),
	}
}

func (s *SQLiteDatabase) FindBranchByID(ctx context.Context, id string) (*store.Branch, error) {
	row, err := s.queries.GetBranchByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding branch by id: %w", err)
	}
	return toBranch(row), nil
}

func (s *SQLiteDatabase) FindBranchByName(ctx context.Context, name string) (*store.Branch, error) {
	row, err := s.queries.GetBranchByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding branch by name: %w", err)
	}
	return toBranch(row), nil
}

func (s *SQLiteDatabase) ListBranches(ctx context.Context) ([]*store.Branch, error) {
	rows, err := s.queries.ListBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}

	branches := make([]*store.Branch, len(rows))
	for i, row := range rows {
		branches[i] = toBranch(row)
	}
	return branches, nil
}

func (s *SQLiteDatabase) CreateBranch(ctx context.Context, branch *store.Branch) (uint64, error) {
	return s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		err := q.InsertBranch(ctx, sqlc.InsertBranchParams{
			ID:        branch.ID,
			Name:      branch.Name,
			CreatedAt: fromTime(branch.CreatedAt),
		})
		if err != nil {
			if isUniqueViolation(err) {
				return false, fmt.Errorf("%w: branch %q", store.ErrAlreadyExists, branch.Name)
			}
			return false, fmt.Errorf("inserting branch: %w", err)
		}
		return true, nil
	})
}

func (s *SQLiteDatabase) DeleteBranch(ctx context.Context, branchID string) (uint64, error) {
	return s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		if err := q.DeleteBranchLeaves(ctx, branchID); err != nil {
			return false, fmt.Errorf("deleting branch leaves: %w", err)
		}
		n, err := q.DeleteBranch(ctx, branchID)
		if err != nil {
			return false, fmt.Errorf("deleting branch: %w", err)
		}
		return n > 0, nil
	})
}

// Snapshot operations

func toSnapshot(row sqlc.Snapshot) *store.Snapshot {
	return &store.Snapshot{
		ID:        row.ID,
		Size:      row.Size,
		Encoding:  row.Encoding,
		CreatedAt: toTime(row.CreatedAt),
	}
}

// insertSnapshot records a snapshot row unless one with its id exists.
// Reports whether a row was inserted.
func insertSnapshot(ctx context.Context, q *sqlc.Queries, snapshot *store.Snapshot) (bool, error) {
	n, err := q.InsertSnapshot(ctx, sqlc.InsertSnapshotParams{
		ID:        snapshot.ID,
		Size:      snapshot.Size,
		Encoding:  snapshot.Encoding,
		CreatedAt: fromTime(snapshot.CreatedAt),
	})
	if err != nil {
		return false, fmt.Errorf("inserting snapshot: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteDatabase) FindSnapshot(ctx context.Context, id string) (*store.Snapshot, error) {
	row, err := s.queries.GetSnapshot(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding snapshot: %w", err)
	}
	return toSnapshot(row), nil
}

func (s *SQLiteDatabase) InsertSnapshot(ctx context.Context, snapshot *store.Snapshot) (uint64, error) {
	return s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		return insertSnapshot(ctx, q, snapshot)
	})
}

func (s *SQLiteDatabase) CountSnapshots(ctx context.Context) (int64, error) {
	n, err := s.queries.CountSnapshots(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting snapshots: %w", err)
	}
	return n, nil
}

func (s *SQLiteDatabase) DeleteUnreferencedSnapshots(ctx context.Context) ([]string, uint64, error) {
	var ids []string
	version, err := s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		var err error
		ids, err = q.ListUnreferencedSnapshotIDs(ctx)
		if err != nil {
			return false, fmt.Errorf("listing unreferenced snapshots: %w", err)
		}
		for _, id := range ids {
			if err := q.DeleteSnapshot(ctx, id); err != nil {
				return false, fmt.Errorf("deleting snapshot %s: %w", id, err)
			}
		}
		return len(ids) > 0, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return ids, version, nil
}

// Change log and branch index

func toChange(row sqlc.Change) *store.Change {
	return &store.Change{
		ID:         row.ID,
		FileID:     row.FileID,
		EntityID:   row.EntityID,
		Type:       row.Type,
		SnapshotID: row.SnapshotID,
		BranchID:   row.BranchID,
		CreatedAt:  toTime(row.CreatedAt),
	}
}

func toChanges(rows []sqlc.Change) []*store.Change {
	changes := make([]*store.Change, len(rows))
	for i, row := range rows {
		changes[i] = toChange(row)
	}
	return changes
}

// CommitChange appends a change and moves the branch leaf in one transaction.
//
// The leaf read inside the transaction must match params.ExpectedLeafID,
// otherwise another writer got there first and ErrConcurrentMutation is
// returned. created_at is assigned strictly after every existing change so the
// new change is always the newest in its branch.
func (s *SQLiteDatabase) CommitChange(ctx context.Context, params store.CommitChangeParams) (*store.Change, uint64, error) {
	if params.Snapshot == nil {
		return nil, 0, fmt.Errorf("%w: change without snapshot", store.ErrInvariantViolation)
	}

	var change *store.Change
	version, err := s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		inserted, err := insertSnapshot(ctx, q, params.Snapshot)
		if err != nil {
			return false, err
		}
		if inserted && params.SnapshotStored {
			return false, fmt.Errorf("%w: snapshot %s was removed before the change committed",
				store.ErrInvariantViolation, params.Snapshot.ID)
		}

		leafID, err := q.GetLeafChangeID(ctx, sqlc.GetLeafChangeIDParams{
			BranchID: params.BranchID,
			FileID:   params.FileID,
			EntityID: params.EntityID,
		})
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("reading leaf: %w", err)
		}
		if leafID != params.ExpectedLeafID {
			return false, fmt.Errorf("%w: leaf of %s/%s is %d, expected %d",
				store.ErrConcurrentMutation, params.FileID, params.EntityID, leafID, params.ExpectedLeafID)
		}

		maxCreatedAt, err := q.GetMaxChangeCreatedAt(ctx)
		if err != nil {
			return false, fmt.Errorf("reading latest change time: %w", err)
		}
		createdAt := fromTime(params.Now)
		if createdAt <= maxCreatedAt {
			createdAt = maxCreatedAt + 1
		}

		row, err := q.InsertChange(ctx, sqlc.InsertChangeParams{
			FileID:     params.FileID,
			EntityID:   params.EntityID,
			Type:       params.Type,
			SnapshotID: params.Snapshot.ID,
			BranchID:   params.BranchID,
			CreatedAt:  createdAt,
		})
		if err != nil {
			return false, fmt.Errorf("inserting change: %w", err)
		}
		change = toChange(row)

		if leafID != 0 {
			current, err := q.GetChange(ctx, leafID)
			if err != nil {
				return false, fmt.Errorf("reading current leaf: %w", err)
			}
			if !change.NewerThan(toChange(current)) {
				return false, fmt.Errorf("%w: change %d would move leaf %d backward",
					store.ErrInvariantViolation, change.ID, leafID)
			}
		}

		if err := q.UpsertLeaf(ctx, sqlc.UpsertLeafParams{
			BranchID: params.BranchID,
			FileID:   params.FileID,
			EntityID: params.EntityID,
			ChangeID: change.ID,
		}); err != nil {
			return false, fmt.Errorf("updating leaf: %w", err)
		}

		if params.ChangeSetID != "" {
			if _, err := q.InsertChangeSetElement(ctx, sqlc.InsertChangeSetElementParams{
				ChangeSetID: params.ChangeSetID,
				ChangeID:    change.ID,
			}); err != nil {
				return false, fmt.Errorf("adding change to change set: %w", err)
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return change, version, nil
}

func (s *SQLiteDatabase) FindChange(ctx context.Context, id int64) (*store.Change, error) {
	row, err := s.queries.GetChange(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding change: %w", err)
	}
	return toChange(row), nil
}

func (s *SQLiteDatabase) ListChangesForEntity(ctx context.Context, fileID, entityID, branchID string) ([]*store.Change, error) {
	rows, err := s.queries.ListChangesForEntity(ctx, sqlc.ListChangesForEntityParams{
		FileID:   fileID,
		EntityID: entityID,
		BranchID: branchID,
	})
	if err != nil {
		return nil, fmt.Errorf("listing changes for entity: %w", err)
	}
	return toChanges(rows), nil
}

func (s *SQLiteDatabase) ListChangesForBranch(ctx context.Context, branchID string) ([]*store.Change, error) {
	rows, err := s.queries.ListChangesForBranch(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("listing changes for branch: %w", err)
	}
	return toChanges(rows), nil
}

func (s *SQLiteDatabase) FindLeaf(ctx context.Context, branchID, fileID, entityID string) (*store.Change, error) {
	row, err := s.queries.GetLeaf(ctx, sqlc.GetLeafParams{
		BranchID: branchID,
		FileID:   fileID,
		EntityID: entityID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding leaf: %w", err)
	}
	return toChange(row), nil
}

func (s *SQLiteDatabase) ListLeafPointers(ctx context.Context) ([]store.LeafPointer, error) {
	return listLeafPointers(ctx, s.queries)
}

func listLeafPointers(ctx context.Context, q *sqlc.Queries) ([]store.LeafPointer, error) {
	rows, err := q.ListLeaves(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing leaves: %w", err)
	}

	pointers := make([]store.LeafPointer, len(rows))
	for i, row := range rows {
		pointers[i] = store.LeafPointer{
			BranchID: row.BranchID,
			FileID:   row.FileID,
			EntityID: row.EntityID,
			ChangeID: row.ChangeID,
		}
	}
	return pointers, nil
}

// ReplaceLeaves recomputes the branch index from the change log. The version
// is bumped only if the index actually changed.
func (s *SQLiteDatabase) ReplaceLeaves(ctx context.Context) (int64, uint64, error) {
	var count int64
	version, err := s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		before, err := listLeafPointers(ctx, q)
		if err != nil {
			return false, err
		}

		if err := q.DeleteAllLeaves(ctx); err != nil {
			return false, fmt.Errorf("clearing leaves: %w", err)
		}
		count, err = q.RebuildLeaves(ctx)
		if err != nil {
			return false, fmt.Errorf("rebuilding leaves: %w", err)
		}

		after, err := listLeafPointers(ctx, q)
		if err != nil {
			return false, err
		}
		return !samePointers(before, after), nil
	})
	if err != nil {
		return 0, 0, err
	}
	return count, version, nil
}

// samePointers compares two pointer lists in ListLeaves order.
func samePointers(a, b []store.LeafPointer) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Change sets and labels

func toChangeSet(row sqlc.ChangeSet) *store.ChangeSet {
	return &store.ChangeSet{
		ID:        row.ID,
		Name:      row.Name,
		CreatedAt: toTime(row.CreatedAt),
	}
}

func toLabel(row sqlc.Label) *store.Label {
	return &store.Label{ID: row.ID, Name: row.Name}
}

func toLabels(rows []sqlc.Label) []*store.Label {
	labels := make([]*store.Label, len(rows))
	for i, row := range rows {
		labels[i] = toLabel(row)
	}
	return labels
}

func (s *SQLiteDatabase) FindChangeSet(ctx context.Context, id string) (*store.ChangeSet, error) {
	row, err := s.queries.GetChangeSet(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding change set: %w", err)
	}
	return toChangeSet(row), nil
}

func (s *SQLiteDatabase) CreateChangeSet(ctx context.Context, set *store.ChangeSet) (uint64, error) {
	return s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		if err := insertChangeSet(ctx, q, set); err != nil {
			return false, err
		}
		return true, nil
	})
}

func insertChangeSet(ctx context.Context, q *sqlc.Queries, set *store.ChangeSet) error {
	err := q.InsertChangeSet(ctx, sqlc.InsertChangeSetParams{
		ID:        set.ID,
		Name:      set.Name,
		CreatedAt: fromTime(set.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("inserting change set: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) AddChangeSetElement(ctx context.Context, setID string, changeID int64) (uint64, error) {
	return s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		n, err := q.InsertChangeSetElement(ctx, sqlc.InsertChangeSetElementParams{
			ChangeSetID: setID,
			ChangeID:    changeID,
		})
		if err != nil {
			return false, fmt.Errorf("adding change set element: %w", err)
		}
		return n > 0, nil
	})
}

func (s *SQLiteDatabase) RemoveChangeSetElement(ctx context.Context, setID string, changeID int64) (uint64, error) {
	return s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		n, err := q.DeleteChangeSetElement(ctx, sqlc.DeleteChangeSetElementParams{
			ChangeSetID: setID,
			ChangeID:    changeID,
		})
		if err != nil {
			return false, fmt.Errorf("removing change set element: %w", err)
		}
		return n > 0, nil
	})
}

func (s *SQLiteDatabase) ListChangeSetElements(ctx context.Context, setID string) ([]*store.Change, error) {
	rows, err := s.queries.ListChangeSetElements(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("listing change set elements: %w", err)
	}
	return toChanges(rows), nil
}

func (s *SQLiteDatabase) ListChangeSetsForChange(ctx context.Context, changeID int64) ([]*store.ChangeSet, error) {
	rows, err := s.queries.ListChangeSetsForChange(ctx, changeID)
	if err != nil {
		return nil, fmt.Errorf("listing change sets for change: %w", err)
	}

	sets := make([]*store.ChangeSet, len(rows))
	for i, row := range rows {
		sets[i] = toChangeSet(row)
	}
	return sets, nil
}

func (s *SQLiteDatabase) FindLabelByName(ctx context.Context, name string) (*store.Label, error) {
	row, err := s.queries.GetLabelByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding label: %w", err)
	}
	return toLabel(row), nil
}

func (s *SQLiteDatabase) ListLabels(ctx context.Context) ([]*store.Label, error) {
	rows, err := s.queries.ListLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing labels: %w", err)
	}
	return toLabels(rows), nil
}

func (s *SQLiteDatabase) CreateLabel(ctx context.Context, label *store.Label) (uint64, error) {
	return s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		if err := insertLabel(ctx, q, label); err != nil {
			return false, err
		}
		return true, nil
	})
}

func insertLabel(ctx context.Context, q *sqlc.Queries, label *store.Label) error {
	err := q.InsertLabel(ctx, sqlc.InsertLabelParams{ID: label.ID, Name: label.Name})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: label %q", store.ErrAlreadyExists, label.Name)
		}
		return fmt.Errorf("inserting label: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) AttachLabel(ctx context.Context, setID, labelID string) (uint64, error) {
	return s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		n, err := q.InsertChangeSetLabel(ctx, sqlc.InsertChangeSetLabelParams{
			ChangeSetID: setID,
			LabelID:     labelID,
		})
		if err != nil {
			return false, fmt.Errorf("attaching label: %w", err)
		}
		return n > 0, nil
	})
}

func (s *SQLiteDatabase) DetachLabel(ctx context.Context, setID, labelID string) (uint64, error) {
	return s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		n, err := q.DeleteChangeSetLabel(ctx, sqlc.DeleteChangeSetLabelParams{
			ChangeSetID: setID,
			LabelID:     labelID,
		})
		if err != nil {
			return false, fmt.Errorf("detaching label: %w", err)
		}
		return n > 0, nil
	})
}

func (s *SQLiteDatabase) ListChangeSetLabels(ctx context.Context, setID string) ([]*store.Label, error) {
	rows, err := s.queries.ListChangeSetLabels(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("listing change set labels: %w", err)
	}
	return toLabels(rows), nil
}

func (s *SQLiteDatabase) ChangeHasLabel(ctx context.Context, changeID int64, labelName string) (bool, error) {
	return changeHasLabel(ctx, s.queries, changeID, labelName)
}

func changeHasLabel(ctx context.Context, q *sqlc.Queries, changeID int64, labelName string) (bool, error) {
	has, err := q.ChangeHasLabel(ctx, sqlc.ChangeHasLabelParams{ChangeID: changeID, Name: labelName})
	if err != nil {
		return false, fmt.Errorf("checking change label: %w", err)
	}
	return has != 0, nil
}

// ConfirmChange attaches the label to the oldest change set whose only element
// is the change, creating the label and that change set as needed.
func (s *SQLiteDatabase) ConfirmChange(ctx context.Context, params store.ConfirmParams) (uint64, error) {
	return s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		confirmed, err := changeHasLabel(ctx, q, params.ChangeID, params.Label.Name)
		if err != nil || confirmed {
			return false, err
		}

		label, err := q.GetLabelByName(ctx, params.Label.Name)
		if errors.Is(err, sql.ErrNoRows) {
			if err := insertLabel(ctx, q, params.Label); err != nil {
				return false, err
			}
			label = sqlc.Label{ID: params.Label.ID, Name: params.Label.Name}
		} else if err != nil {
			return false, fmt.Errorf("finding label: %w", err)
		}

		setID, err := q.FindSoleChangeSetForChange(ctx, params.ChangeID)
		if errors.Is(err, sql.ErrNoRows) {
			if err := insertChangeSet(ctx, q, params.ChangeSet); err != nil {
				return false, err
			}
			if _, err := q.InsertChangeSetElement(ctx, sqlc.InsertChangeSetElementParams{
				ChangeSetID: params.ChangeSet.ID,
				ChangeID:    params.ChangeID,
			}); err != nil {
				return false, fmt.Errorf("adding change set element: %w", err)
			}
			setID = params.ChangeSet.ID
		} else if err != nil {
			return false, fmt.Errorf("finding change set: %w", err)
		}

		if _, err := q.InsertChangeSetLabel(ctx, sqlc.InsertChangeSetLabelParams{
			ChangeSetID: setID,
			LabelID:     label.ID,
		}); err != nil {
			return false, fmt.Errorf("attaching label: %w", err)
		}
		return true, nil
	})
}

func (s *SQLiteDatabase) UnconfirmChange(ctx context.Context, changeID int64, labelName string) (uint64, error) {
	return s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		label, err := q.GetLabelByName(ctx, labelName)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("finding label: %w", err)
		}

		detached, err := q.DeleteLabelFromSoleChangeSets(ctx, sqlc.DeleteLabelFromSoleChangeSetsParams{
			LabelID:  label.ID,
			ChangeID: changeID,
		})
		if err != nil {
			return false, fmt.Errorf("detaching label: %w", err)
		}

		// Sets shared with other changes keep the label for them.
		removed, err := q.DeleteChangeFromLabelledSets(ctx, sqlc.DeleteChangeFromLabelledSetsParams{
			ChangeID: changeID,
			LabelID:  label.ID,
		})
		if err != nil {
			return false, fmt.Errorf("removing change from labelled sets: %w", err)
		}
		return detached+removed > 0, nil
	})
}

// Discussions

func toDiscussion(row sqlc.Discussion) *store.Discussion {
	return &store.Discussion{
		ID:          row.ID,
		ChangeSetID: row.ChangeSetID,
		CreatedAt:   toTime(row.CreatedAt),
	}
}

func toComment(row sqlc.Comment) *store.Comment {
	return &store.Comment{
		ID:           row.ID,
		DiscussionID: row.DiscussionID,
		Body:         row.Body,
		CreatedAt:    toTime(row.CreatedAt),
	}
}

func (s *SQLiteDatabase) FindDiscussion(ctx context.Context, id string) (*store.Discussion, error) {
	row, err := s.queries.GetDiscussion(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding discussion: %w", err)
	}
	return toDiscussion(row), nil
}

func (s *SQLiteDatabase) CreateDiscussion(ctx context.Context, discussion *store.Discussion) (uint64, error) {
	return s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		err := q.InsertDiscussion(ctx, sqlc.InsertDiscussionParams{
			ID:          discussion.ID,
			ChangeSetID: discussion.ChangeSetID,
			CreatedAt:   fromTime(discussion.CreatedAt),
		})
		if err != nil {
			return false, fmt.Errorf("inserting discussion: %w", err)
		}
		return true, nil
	})
}

func (s *SQLiteDatabase) ListDiscussions(ctx context.Context, setID string) ([]*store.Discussion, error) {
	rows, err := s.queries.ListDiscussions(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("listing discussions: %w", err)
	}

	discussions := make([]*store.Discussion, len(rows))
	for i, row := range rows {
		discussions[i] = toDiscussion(row)
	}
	return discussions, nil
}

func (s *SQLiteDatabase) InsertComment(ctx context.Context, comment *store.Comment) (*store.Comment, uint64, error) {
	var result *store.Comment
	version, err := s.mutate(ctx, func(q *sqlc.Queries) (bool, error) {
		last, err := q.GetMaxCommentCreatedAt(ctx, comment.DiscussionID)
		if err != nil {
			return false, fmt.Errorf("reading latest comment time: %w", err)
		}
		createdAt := fromTime(comment.CreatedAt)
		if createdAt <= last {
			createdAt = last + 1
		}

		row, err := q.InsertComment(ctx, sqlc.InsertCommentParams{
			ID:           comment.ID,
			DiscussionID: comment.DiscussionID,
			Body:         comment.Body,
			CreatedAt:    createdAt,
		})
		if err != nil {
			return false, fmt.Errorf("inserting comment: %w", err)
		}
		result = toComment(row)
		return true, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return result, version, nil
}

func (s *SQLiteDatabase) ListComments(ctx context.Context, discussionID string) ([]*store.Comment, error) {
	rows, err := s.queries.ListComments(ctx, discussionID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}

	comments := make([]*store.Comment, len(rows))
	for i, row := range rows {
		comments[i] = toComment(row)
	}
	return comments, nil
}

// Store metadata

func (s *SQLiteDatabase) Version(ctx context.Context) (uint64, error) {
	v, err := s.queries.GetVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading store version: %w", err)
	}
	return uint64(v), nil
}

func (s *SQLiteDatabase) Stats(ctx context.Context) (*store.Stats, error) {
	row, err := s.queries.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	version, err := s.Version(ctx)
	if err != nil {
		return nil, err
	}

	return &store.Stats{
		Files:      row.Files,
		Branches:   row.Branches,
		Changes:    row.Changes,
		Snapshots:  row.Snapshots,
		ChangeSets: row.ChangeSets,
		Version:    version,
	}, nil
}

// Path returns the database file path, or "" for in-memory databases.
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Migrate brings the schema up to date.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrationStatus reports the applied schema version against the latest one.
func (s *SQLiteDatabase) MigrationStatus() (migrations.Status, error) {
	return migrations.ReadStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(ctx context.Context, destPath string) error {
	_, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements store.Database interface
var _ store.Database = (*SQLiteDatabase)(nil)
