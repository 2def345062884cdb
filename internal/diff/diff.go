// Package diff produces line diffs between two versions of an entity.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Op is the kind of a diff line.
type Op string

const (
	OpContext Op = "context"
	OpAdded   Op = "added"
	OpRemoved Op = "removed"
)

// Line is one line of a diff. Old and New are 1-based line numbers in the
// respective version, 0 when the line does not exist there.
type Line struct {
	Op      Op
	Old     int
	New     int
	Content string
}

// Result is a line diff between two contents.
type Result struct {
	FromLabel string
	ToLabel   string
	Lines     []Line
	Added     int
	Removed   int
}

// Changed reports whether the contents differ.
func (r *Result) Changed() bool {
	return r.Added > 0 || r.Removed > 0
}

// Compare diffs two contents line by line.
func Compare(from, to []byte, fromLabel, toLabel string) *Result {
	r := &Result{FromLabel: fromLabel, ToLabel: toLabel}
	if string(from) == string(to) {
		return r
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(from), string(to))
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)
	diffs = dmp.DiffCleanupSemantic(diffs)

	oldLine, newLine := 1, 1
	for _, d := range diffs {
		for _, content := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				r.Lines = append(r.Lines, Line{Op: OpContext, Old: oldLine, New: newLine, Content: content})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				r.Lines = append(r.Lines, Line{Op: OpRemoved, Old: oldLine, Content: content})
				oldLine++
				r.Removed++
			case diffmatchpatch.DiffInsert:
				r.Lines = append(r.Lines, Line{Op: OpAdded, New: newLine, Content: content})
				newLine++
				r.Added++
			}
		}
	}
	return r
}

// splitLines splits text on newlines, dropping the empty element after a
// trailing newline.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Unified renders the diff in unified format without hunk headers.
func (r *Result) Unified() string {
	if !r.Changed() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("--- " + r.FromLabel + "\n")
	sb.WriteString("+++ " + r.ToLabel + "\n")
	for _, l := range r.Lines {
		switch l.Op {
		case OpContext:
			sb.WriteByte(' ')
		case OpRemoved:
			sb.WriteByte('-')
		case OpAdded:
			sb.WriteByte('+')
		}
		sb.WriteString(l.Content)
		sb.WriteByte('\n')
	}
	return sb.String()
}
