package store_test

import (
	"context"
	"errors"
	"testing"

	"changestore/internal/store"
	"changestore/internal/testutil"
)

func TestStore_Changes(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	file := openFile(t, s, "strings.csv")
	if _, err := s.CreateBranch(ctx, "feature"); err != nil {
		t.Fatalf("CreateBranch() error = %v", err)
	}

	write(t, s, file.ID, "row:1", "a", "main")
	row1 := write(t, s, file.ID, "row:1", "b", "main")
	row2 := write(t, s, file.ID, "row:2", "c", "main")
	write(t, s, file.ID, "row:1", "f", "feature")

	main, _ := s.Branch(ctx, "main")

	t.Run("compiled query agrees with per-change predicates", func(t *testing.T) {
		where := []store.Predicate{
			store.InBranch{BranchID: main.ID},
			store.IsLeaf{BranchID: main.ID},
		}
		got, err := s.Changes(ctx, store.ChangeQuery{FileID: file.ID, Where: where})
		if err != nil {
			t.Fatalf("Changes() error = %v", err)
		}
		if len(got) != 2 || got[0].ID != row2.ID || got[1].ID != row1.ID {
			t.Fatalf("Changes() = %v, want [%d %d]", got, row2.ID, row1.ID)
		}

		all, _ := s.Changes(ctx, store.ChangeQuery{FileID: file.ID})
		for _, c := range all {
			want := true
			for _, p := range where {
				ok, err := s.Matches(ctx, p, c)
				if err != nil {
					t.Fatalf("Matches() error = %v", err)
				}
				want = want && ok
			}
			inResult := c.ID == row1.ID || c.ID == row2.ID
			if want != inResult {
				t.Errorf("change %d: Matches() = %v, in query result = %v", c.ID, want, inResult)
			}
		}
	})

	t.Run("negated label", func(t *testing.T) {
		if err := s.Confirm(ctx, row2.ID); err != nil {
			t.Fatalf("Confirm() error = %v", err)
		}
		got, err := s.Changes(ctx, store.ChangeQuery{
			FileID: file.ID,
			Where: []store.Predicate{
				store.IsLeaf{BranchID: main.ID},
				store.Not{P: store.HasLabel{Name: store.ConfirmedLabel}},
			},
		})
		if err != nil {
			t.Fatalf("Changes() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != row1.ID {
			t.Errorf("Changes() = %v, want [%d]", got, row1.ID)
		}
	})

	t.Run("invalid queries", func(t *testing.T) {
		tests := []struct {
			name  string
			query store.ChangeQuery
		}{
			{"missing file", store.ChangeQuery{}},
			{"empty branch", store.ChangeQuery{FileID: file.ID, Where: []store.Predicate{store.InBranch{}}}},
			{"empty label", store.ChangeQuery{FileID: file.ID, Where: []store.Predicate{store.HasLabel{}}}},
			{"empty not", store.ChangeQuery{FileID: file.ID, Where: []store.Predicate{store.Not{}}}},
			{"nil predicate", store.ChangeQuery{FileID: file.ID, Where: []store.Predicate{nil}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := s.Changes(ctx, tt.query); !errors.Is(err, store.ErrInvalidArgument) {
					t.Errorf("Changes() error = %v, want ErrInvalidArgument", err)
				}
			})
		}
	})
}

func TestLeafOf(t *testing.T) {
	base := testutil.FixedClock().Now()
	a := &store.Change{ID: 1, CreatedAt: base}
	b := &store.Change{ID: 2, CreatedAt: base}
	c := &store.Change{ID: 3, CreatedAt: base.Add(-1)}

	tests := []struct {
		name    string
		changes []*store.Change
		want    *store.Change
	}{
		{"empty", nil, nil},
		{"tie broken by id", []*store.Change{b, a}, b},
		{"time wins over id", []*store.Change{c, a}, a},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := store.LeafOf(tt.changes); got != tt.want {
				t.Errorf("LeafOf() = %v, want %v", got, tt.want)
			}
		})
	}
}
