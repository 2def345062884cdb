package store

import (
	"context"
	"time"
)

// CommitChangeParams describes one append to the change log.
//
// The database stores Snapshot if no row with its ID exists, appends the change,
// moves the branch leaf for (FileID, EntityID) from ExpectedLeafID to the new
// change, optionally adds the change to ChangeSetID, and bumps the store version.
// All of it happens in one transaction. A missing row for a SnapshotStored
// snapshot means its payload may be gone, and the commit fails with
// ErrInvariantViolation.
type CommitChangeParams struct {
	FileID         string
	EntityID       string
	Type           string
	BranchID       string
	Snapshot       *Snapshot
	SnapshotStored bool  // the snapshot row already existed when its payload was checked
	ExpectedLeafID int64 // 0 when the entity has no leaf in the branch yet
	ChangeSetID    string
	Now            time.Time
}

// ConfirmParams describes a label attachment that confirms a single change.
// Label and ChangeSet carry pre-generated ids used only if the database has to
// create them.
type ConfirmParams struct {
	ChangeID  int64
	Label     *Label
	ChangeSet *ChangeSet
}

// Database provides an interface for metadata storage operations.
//
// Lookups return (nil, nil) when the row does not exist. Mutations run in their
// own transaction and return the store version they committed, or 0 when they
// changed nothing.
type Database interface {
	// File operations

	FindFileByID(ctx context.Context, id string) (*File, error)
	FindFileByPath(ctx context.Context, path string) (*File, error)
	ListFiles(ctx context.Context) ([]*File, error)

	// CreateFile inserts the file unless one with the same path exists, in which
	// case the existing row is returned and no version is committed.
	CreateFile(ctx context.Context, file *File) (*File, uint64, error)
	SetFileMetadata(ctx context.Context, fileID, key, value string) (uint64, error)
	SetFileContent(ctx context.Context, fileID string, snapshot *Snapshot) (uint64, error)

	// Branch operations

	FindBranchByID(ctx context.Context, id string) (*Branch, error)
	FindBranchByName(ctx context.Context, name string) (*Branch, error)
	ListBranches(ctx context.Context) ([]*Branch, error)
	CreateBranch(ctx context.Context, branch *Branch) (uint64, error)

	// DeleteBranch removes the branch and its leaf index rows. Its changes stay
	// in the log.
	DeleteBranch(ctx context.Context, branchID string) (uint64, error)

	// Snapshot operations

	FindSnapshot(ctx context.Context, id string) (*Snapshot, error)
	InsertSnapshot(ctx context.Context, snapshot *Snapshot) (uint64, error)
	CountSnapshots(ctx context.Context) (int64, error)

	// DeleteUnreferencedSnapshots removes snapshot rows that no change and no
	// file references and returns their ids.
	DeleteUnreferencedSnapshots(ctx context.Context) ([]string, uint64, error)

	// Change log and branch index

	CommitChange(ctx context.Context, params CommitChangeParams) (*Change, uint64, error)
	FindChange(ctx context.Context, id int64) (*Change, error)

	// ListChangesForEntity returns changes newest first.
	ListChangesForEntity(ctx context.Context, fileID, entityID, branchID string) ([]*Change, error)
	FindLeaf(ctx context.Context, branchID, fileID, entityID string) (*Change, error)
	QueryChanges(ctx context.Context, query ChangeQuery) ([]*Change, error)

	// ReplaceLeaves rebuilds the whole branch index from the change log.
	ReplaceLeaves(ctx context.Context) (int64, uint64, error)

	// ListLeafPointers returns every stored leaf pointer for verification.
	ListLeafPointers(ctx context.Context) ([]LeafPointer, error)

	// ListChangesForBranch returns every change in a branch, oldest first.
	ListChangesForBranch(ctx context.Context, branchID string) ([]*Change, error)

	// Change sets and labels

	FindChangeSet(ctx context.Context, id string) (*ChangeSet, error)
	CreateChangeSet(ctx context.Context, set *ChangeSet) (uint64, error)
	AddChangeSetElement(ctx context.Context, setID string, changeID int64) (uint64, error)
	RemoveChangeSetElement(ctx context.Context, setID string, changeID int64) (uint64, error)
	ListChangeSetElements(ctx context.Context, setID string) ([]*Change, error)
	ListChangeSetsForChange(ctx context.Context, changeID int64) ([]*ChangeSet, error)

	FindLabelByName(ctx context.Context, name string) (*Label, error)
	ListLabels(ctx context.Context) ([]*Label, error)
	CreateLabel(ctx context.Context, label *Label) (uint64, error)
	AttachLabel(ctx context.Context, setID, labelID string) (uint64, error)
	DetachLabel(ctx context.Context, setID, labelID string) (uint64, error)
	ListChangeSetLabels(ctx context.Context, setID string) ([]*Label, error)
	ChangeHasLabel(ctx context.Context, changeID int64, labelName string) (bool, error)

	// ConfirmChange attaches params.Label to a change set holding only the change,
	// creating the label and the set when needed.
	ConfirmChange(ctx context.Context, params ConfirmParams) (uint64, error)

	// UnconfirmChange makes the named label stop applying to the change. Sets
	// holding only the change lose the label; the change leaves labelled sets it
	// shares with other changes.
	UnconfirmChange(ctx context.Context, changeID int64, labelName string) (uint64, error)

	// Discussions

	FindDiscussion(ctx context.Context, id string) (*Discussion, error)
	CreateDiscussion(ctx context.Context, discussion *Discussion) (uint64, error)
	ListDiscussions(ctx context.Context, setID string) ([]*Discussion, error)

	// InsertComment assigns a created_at strictly after the discussion's last
	// comment and at or after comment.CreatedAt.
	InsertComment(ctx context.Context, comment *Comment) (*Comment, uint64, error)
	ListComments(ctx context.Context, discussionID string) ([]*Comment, error)

	// Store metadata

	Version(ctx context.Context) (uint64, error)
	Stats(ctx context.Context) (*Stats, error)

	// Close closes the database connection.
	Close() error
}

// LeafPointer is one row of the branch index.
type LeafPointer struct {
	BranchID string
	FileID   string
	EntityID string
	ChangeID int64
}
