// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 150 * time.Millisecond

// dbWatcher reports commits made to the database file by other processes.
// Events on the file and its -wal/-shm companions are debounced, then
// PRAGMA data_version tells external commits apart from our own writes.
type dbWatcher struct {
	db       *DB
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func()

	mu          sync.Mutex
	pendingAt   time.Time
	lastVersion int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newDBWatcher(db *DB, debounce time.Duration, onChange func()) (*dbWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(db.path)); err != nil {
		fw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &dbWatcher{
		db:       db,
		watcher:  fw,
		debounce: debounce,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
	}
	w.lastVersion, _ = db.dataVersion(ctx)

	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()
	return w, nil
}

func (w *dbWatcher) processEvents() {
	defer w.wg.Done()
	base := filepath.Base(w.db.path)
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.mu.Lock()
			w.pendingAt = time.Now()
			w.mu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("STORAGE_WATCH_ERROR | err=%v", err)
		}
	}
}

func (w *dbWatcher) processPending() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.debounce / 3)
	defer ticker.Stop()
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			due := !w.pendingAt.IsZero() && time.Since(w.pendingAt) >= w.debounce
			if due {
				w.pendingAt = time.Time{}
			}
			w.mu.Unlock()
			if due && w.changed() {
				w.onChange()
			}
		}
	}
}

func (w *dbWatcher) changed() bool {
	v, err := w.db.dataVersion(w.ctx)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if v == w.lastVersion {
		return false
	}
	w.lastVersion = v
	return true
}

func (w *dbWatcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
