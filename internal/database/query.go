package database

import (
	"context"
	"fmt"
	"strings"

	"changestore/internal/store"
)

const changeColumns = "c.id, c.file_id, c.entity_id, c.type, c.snapshot_id, c.branch_id, c.created_at"

// compileChangeQuery turns a change query into SQL over the changes table.
// Each predicate becomes one condition; IsLeaf joins the branch index and
// HasLabel the change set label tables.
func compileChangeQuery(q store.ChangeQuery) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("SELECT " + changeColumns + " FROM changes c WHERE c.file_id = ?")
	args := []any{q.FileID}

	if q.EntityID != "" {
		sb.WriteString(" AND c.entity_id = ?")
		args = append(args, q.EntityID)
	}

	for _, p := range q.Where {
		cond, pargs, err := compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" AND ")
		sb.WriteString(cond)
		args = append(args, pargs...)
	}

	sb.WriteString(" ORDER BY c.created_at DESC, c.id DESC")
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	return sb.String(), args, nil
}

func compilePredicate(p store.Predicate) (string, []any, error) {
	switch p := p.(type) {
	case store.InBranch:
		return "c.branch_id = ?", []any{p.BranchID}, nil
	case store.IsLeaf:
		return `EXISTS (SELECT 1 FROM branch_leaves bl
			WHERE bl.branch_id = ? AND bl.file_id = c.file_id
			AND bl.entity_id = c.entity_id AND bl.change_id = c.id)`, []any{p.BranchID}, nil
	case store.HasLabel:
		return `EXISTS (SELECT 1 FROM change_set_elements e
			JOIN change_set_labels sl ON sl.change_set_id = e.change_set_id
			JOIN labels l ON l.id = sl.label_id
			WHERE e.change_id = c.id AND l.name = ?)`, []any{p.Name}, nil
	case store.Not:
		cond, args, err := compilePredicate(p.P)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + cond + ")", args, nil
	default:
		return "", nil, fmt.Errorf("%w: unsupported predicate %T", store.ErrInvalidArgument, p)
	}
}

// QueryChanges runs a compiled change query.
func (s *SQLiteDatabase) QueryChanges(ctx context.Context, q store.ChangeQuery) ([]*store.Change, error) {
	query, args, err := compileChangeQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying changes: %w", err)
	}
	defer rows.Close()

	changes := []*store.Change{}
	for rows.Next() {
		var (
			c         store.Change
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.FileID, &c.EntityID, &c.Type, &c.SnapshotID, &c.BranchID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning change: %w", err)
		}
		c.CreatedAt = toTime(createdAt)
		changes = append(changes, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating changes: %w", err)
	}
	return changes, nil
}
