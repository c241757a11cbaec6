package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/gitjournal/internal/checksum"
	"github.com/starford/gitjournal/internal/journal"
	"github.com/starford/gitjournal/internal/storage"
)

const reconcileDelay = 200 * time.Millisecond

type watcher struct {
	fsw    *fsnotify.Watcher
	db     JournalIndex
	store  storage.Provider
	loc    *journal.Locator
	logger *slog.Logger
	cb     EventCallback

	reconcile *time.Timer
}

// Watch keeps the index in step with the journals directory until ctx is
// cancelled, calling cb (if non-nil) after each index change.
//
// Branch folders created at runtime join the watch list. Folder moves and
// renames are settled by a debounced full pass over the directory.
func Watch(ctx context.Context, db JournalIndex, store storage.Provider, loc *journal.Locator, logger *slog.Logger, cb EventCallback) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	dir := filepath.Join(store.Root(), filepath.FromSlash(loc.Dir()))
	if err := addTree(fsw, dir); err != nil {
		return err
	}

	w := &watcher{
		fsw:       fsw,
		db:        db,
		store:     store,
		loc:       loc,
		logger:    logger,
		cb:        cb,
		reconcile: time.NewTimer(reconcileDelay),
	}
	w.reconcile.Stop()
	defer w.reconcile.Stop()

	logger.Info("watcher: started", slog.String("dir", dir))
	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case <-w.reconcile.C:
			if _, err := syncDir(db, store, loc, logger, cb); err != nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

func (w *watcher) scheduleReconcile() {
	w.reconcile.Reset(reconcileDelay)
}

func (w *watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := addTree(w.fsw, ev.Name); err != nil {
				w.logger.Warn("watcher: add dir failed", slog.String("path", ev.Name), slog.String("error", err.Error()))
			}
			// A folder moved in may already hold a journal.
			w.scheduleReconcile()
			return
		}
	}

	rel, err := filepath.Rel(w.store.Root(), ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if !w.loc.IsJournal(rel) {
		return
	}

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		w.index(rel)
	case ev.Has(fsnotify.Remove):
		w.remove(rel)
	case ev.Has(fsnotify.Rename):
		// Atomic writes rename a temp file over the journal, which reports
		// Create on the target. Rename on the journal itself means it left.
		w.remove(rel)
		w.scheduleReconcile()
	}
}

func (w *watcher) index(rel string) {
	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	prev, _ := w.db.GetChecksum(rel)
	if prev == checksum.Sum(data) {
		// Already indexed by the write that caused this event.
		return
	}
	if err := IndexFile(w.db, rel, data); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	kind := changeKind(prev != "")
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	emit(w.cb, kind, rel)
}

func (w *watcher) remove(rel string) {
	if err := w.db.DeleteJournal(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: deleted", slog.String("path", rel))
	emit(w.cb, ChangeDeleted, rel)
}

// addTree adds root and all its subdirectories to the watcher.
func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
