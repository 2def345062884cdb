package diff

import (
	"strings"
	"testing"
)

func TestCompare(t *testing.T) {
	t.Run("identical content has no changes", func(t *testing.T) {
		r := Compare([]byte("a\nb\n"), []byte("a\nb\n"), "from", "to")
		if r.Changed() {
			t.Errorf("expected no changes, got %+v", r)
		}
		if r.Unified() != "" {
			t.Errorf("expected empty unified diff, got %q", r.Unified())
		}
	})

	t.Run("replaced line", func(t *testing.T) {
		r := Compare([]byte("a\nb\nc\n"), []byte("a\nx\nc\n"), "change 1", "change 2")
		if r.Added != 1 || r.Removed != 1 {
			t.Fatalf("expected 1 added and 1 removed, got %d/%d", r.Added, r.Removed)
		}

		u := r.Unified()
		for _, want := range []string{"--- change 1\n", "+++ change 2\n", " a\n", "-b\n", "+x\n", " c\n"} {
			if !strings.Contains(u, want) {
				t.Errorf("unified diff missing %q:\n%s", want, u)
			}
		}
	})

	t.Run("line numbers", func(t *testing.T) {
		r := Compare([]byte("a\n"), []byte("a\nb\n"), "", "")
		if len(r.Lines) != 2 {
			t.Fatalf("expected 2 lines, got %d", len(r.Lines))
		}
		if r.Lines[0].Op != OpContext || r.Lines[0].Old != 1 || r.Lines[0].New != 1 {
			t.Errorf("unexpected first line %+v", r.Lines[0])
		}
		if r.Lines[1].Op != OpAdded || r.Lines[1].New != 2 || r.Lines[1].Old != 0 {
			t.Errorf("unexpected second line %+v", r.Lines[1])
		}
	})

	t.Run("from empty", func(t *testing.T) {
		r := Compare(nil, []byte("one\ntwo"), "", "")
		if r.Added != 2 || r.Removed != 0 {
			t.Errorf("expected 2 added, got %d added %d removed", r.Added, r.Removed)
		}
	})
}
