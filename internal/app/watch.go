package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch calls fn with each new store version committed by this or any other
// process sharing the database, until ctx is done.
//
// Writes to the database file and its WAL wake the watcher. interval bounds how
// long a missed event can delay a refresh.
func (a *App) Watch(ctx context.Context, interval time.Duration, fn func(version uint64)) error {
	dbPath := a.db.Path()
	if dbPath == ":memory:" {
		return fmt.Errorf("watch requires a sqlite database")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(dbPath)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(dbPath), err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	base := filepath.Base(dbPath)
	last := a.store.CurrentVersion()
	refresh := func() {
		v, err := a.store.Refresh(ctx)
		if err != nil {
			a.logger.Warn("refreshing store version failed", "error", err)
			return
		}
		if v > last {
			last = v
			fn(v)
		}
	}

	a.logger.Debug("watching store", "path", dbPath, "version", last)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// <store>.db, <store>.db-wal and <store>.db-shm
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			refresh()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("store watcher error", "error", err)

		case <-ticker.C:
			refresh()

		case <-ctx.Done():
			return nil
		}
	}
}
