package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCHSHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "change committed",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tchange committed\n",
		},
		{
			name:    "debug level",
			opID:    "op-456",
			level:   slog.LevelDebug,
			message: "store version refreshed",
			want:    "2024-06-15T14:30:45Z\tDEBUG\top-456\tstore version refreshed\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "file created",
			attrs:   []slog.Attr{slog.String("path", "strings.csv"), slog.Int("size", 42)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\tfile created\tpath=strings.csv\tsize=42\n",
		},
		{
			name:    "values with whitespace are quoted",
			opID:    "op-1",
			level:   slog.LevelWarn,
			message: "comment rejected",
			attrs:   []slog.Attr{slog.String("body", "two\twords"), slog.String("empty", "")},
			want:    "2024-06-15T14:30:45Z\tWARN\top-1\tcomment rejected\tbody=\"two\\twords\"\tempty=\"\"\n",
		},
		{
			name:    "group attrs are flattened",
			opID:    "op-2",
			level:   slog.LevelInfo,
			message: "stats",
			attrs:   []slog.Attr{slog.Group("rows", slog.Int("files", 1), slog.Int("changes", 3))},
			want:    "2024-06-15T14:30:45Z\tINFO\top-2\tstats\trows.files=1\trows.changes=3\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := newCHSHandler(&buf, slog.LevelDebug, tt.opID)

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestCHSHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := newCHSHandler(&buf, slog.LevelDebug, "op-1")

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "vault")}).(*chsHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "upload", 0)
	r.AddAttrs(slog.String("key", "abc"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "component=vault") {
		t.Errorf("expected pre-set attr component=vault, got: %q", got)
	}
	if !strings.Contains(got, "key=abc") {
		t.Errorf("expected record attr key=abc, got: %q", got)
	}
	if len(h.attrs) != 0 {
		t.Errorf("original handler attrs modified: got %d, want 0", len(h.attrs))
	}
}

func TestCHSHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newCHSHandler(&buf, slog.LevelDebug, "op-1")).WithGroup("store").With("id", "s1")

	logger.Info("opened", "branch", "main")

	got := buf.String()
	for _, want := range []string{"\tstore.id=s1", "\tstore.branch=main"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}
}

func TestCHSHandler_Enabled(t *testing.T) {
	h := newCHSHandler(&bytes.Buffer{}, slog.LevelWarn, "op-1")

	tests := []struct {
		level slog.Level
		want  bool
	}{
		{slog.LevelDebug, false},
		{slog.LevelInfo, false},
		{slog.LevelWarn, true},
		{slog.LevelError, true},
	}
	for _, tt := range tests {
		if got := h.Enabled(context.Background(), tt.level); got != tt.want {
			t.Errorf("Enabled(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestFanoutHandler(t *testing.T) {
	var all, warn bytes.Buffer
	logger := slog.New(fanoutHandler{
		newCHSHandler(&all, slog.LevelDebug, "op-1"),
		newCHSHandler(&warn, slog.LevelWarn, "op-1"),
	})

	logger.Debug("detail")
	logger.Warn("careful")

	if n := strings.Count(all.String(), "\n"); n != 2 {
		t.Errorf("debug sink got %d lines, want 2", n)
	}
	if got := warn.String(); strings.Contains(got, "detail") || !strings.Contains(got, "careful") {
		t.Errorf("warn sink = %q, want only the warning", got)
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	logger, f, err := newLogger(dir, "test-op")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	logger.Debug("written to file only")

	data, err := os.ReadFile(filepath.Join(dir, "chs.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "\ttest-op\twritten to file only") {
		t.Errorf("log file = %q, want the debug line", data)
	}
}
