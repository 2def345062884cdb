package store

import "time"

// File is a container of raw content (a CSV blob, a localization bundle) whose
// entities are versioned through changes.
type File struct {
	ID        string // UUID, immutable
	Path      string
	Metadata  map[string]string
	ContentID string // snapshot holding the raw bytes; empty when never set
	CreatedAt time.Time
}

// Snapshot is an immutable, deduplicated content payload.
// The ID is the hex BLAKE3-256 digest of the plaintext.
type Snapshot struct {
	ID        string
	Size      int64
	Encoding  string // how the payload is stored in the vault, see codec
	CreatedAt time.Time
}

// Change is one atomic mutation of one entity's state within one branch.
type Change struct {
	ID         int64
	FileID     string
	EntityID   string
	Type       string
	SnapshotID string
	BranchID   string
	CreatedAt  time.Time
}

// NewerThan reports whether c sorts after other in the per-branch total order:
// created_at first, change id as tie-break.
func (c *Change) NewerThan(other *Change) bool {
	if other == nil {
		return true
	}
	if !c.CreatedAt.Equal(other.CreatedAt) {
		return c.CreatedAt.After(other.CreatedAt)
	}
	return c.ID > other.ID
}

// Branch is a named, isolated lineage of changes.
type Branch struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// ChangeSet groups changes into a unit that labels and discussions attach to.
type ChangeSet struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Label is a named tag attached to change sets.
type Label struct {
	ID   string
	Name string
}

// Discussion is a comment thread anchored to a change set.
type Discussion struct {
	ID          string
	ChangeSetID string
	CreatedAt   time.Time
}

// Comment is an immutable message within a discussion.
type Comment struct {
	ID           string
	DiscussionID string
	Body         string
	CreatedAt    time.Time
}

// Entry is the current value of an entity in a branch: its leaf change and the
// snapshot content that change references.
type Entry struct {
	Change  *Change
	Content []byte
}

// Stats summarises the size of a store.
type Stats struct {
	Files      int64
	Branches   int64
	Changes    int64
	Snapshots  int64
	ChangeSets int64
	Version    uint64
}
