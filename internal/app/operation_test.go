package app

import (
	"strings"
	"testing"
)

func TestNewOperation(t *testing.T) {
	a := NewOperation("Write", 7)
	b := NewOperation("Write", 7)

	if a.Name != "Write" {
		t.Errorf("Name = %q, want %q", a.Name, "Write")
	}
	if a.StartVersion != 7 {
		t.Errorf("StartVersion = %d, want 7", a.StartVersion)
	}
	if a.ID == b.ID {
		t.Errorf("two operations share ID %q", a.ID)
	}
	if strings.ContainsAny(a.ID, " \t\n") {
		t.Errorf("ID %q contains whitespace", a.ID)
	}
}

func TestOperation_Mutated(t *testing.T) {
	tests := []struct {
		name    string
		current uint64
		want    bool
	}{
		{name: "unchanged", current: 5, want: false},
		{name: "moved", current: 6, want: true},
		{name: "behind start", current: 4, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := &Operation{StartVersion: 5}
			if got := op.Mutated(tt.current); got != tt.want {
				t.Errorf("Mutated(%d) = %v, want %v", tt.current, got, tt.want)
			}
		})
	}
}
