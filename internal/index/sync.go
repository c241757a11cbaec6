package index

import (
	"log/slog"
	"strings"

	"github.com/starford/gitjournal/internal/journal"
	"github.com/starford/gitjournal/internal/parser"
	"github.com/starford/gitjournal/internal/storage"
)

// Change kinds reported to an EventCallback.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// EventCallback is called after an index change driven by the files on
// disk. kind is ChangeCreated, ChangeUpdated or ChangeDeleted.
type EventCallback func(kind string, path string)

// SyncStats counts what one pass over the journals directory changed.
type SyncStats struct {
	Indexed int
	Removed int
	Skipped int // unreadable, or not matching the section schema
}

// Sync brings the index in line with the journals on disk: new or changed
// journals are upserted and rows without a file are removed. Journals that
// do not match the section schema are skipped with a warning.
func Sync(db JournalIndex, store storage.Provider, loc *journal.Locator, logger *slog.Logger) error {
	stats, err := syncDir(db, store, loc, logger, nil)
	if err != nil {
		return err
	}
	logger.Info("index synced",
		slog.Int("indexed", stats.Indexed),
		slog.Int("removed", stats.Removed),
		slog.Int("skipped", stats.Skipped))
	return nil
}

func syncDir(db JournalIndex, store storage.Provider, loc *journal.Locator, logger *slog.Logger, cb EventCallback) (SyncStats, error) {
	var stats SyncStats

	files, err := store.List(loc.Dir())
	if err != nil {
		return stats, err
	}
	indexed, err := db.AllChecksums()
	if err != nil {
		return stats, err
	}

	onDisk := make(map[string]bool, len(files))
	for _, f := range files {
		if !loc.IsJournal(f.Path) {
			continue
		}
		onDisk[f.Path] = true

		prev, known := indexed[f.Path]
		if known && prev == f.Checksum {
			continue
		}
		data, err := store.Read(f.Path)
		if err == nil {
			err = IndexFile(db, f.Path, data)
		}
		if err != nil {
			stats.Skipped++
			logger.Warn("index: skipped journal", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		stats.Indexed++
		emit(cb, changeKind(known), f.Path)
	}

	for p := range indexed {
		if onDisk[p] {
			continue
		}
		if err := db.DeleteJournal(p); err != nil {
			logger.Warn("index: remove stale failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
		emit(cb, ChangeDeleted, p)
	}

	return stats, nil
}

func changeKind(known bool) string {
	if known {
		return ChangeUpdated
	}
	return ChangeCreated
}

func emit(cb EventCallback, kind, path string) {
	if cb != nil {
		cb(kind, path)
	}
}

// IndexFile parses a journal and upserts it into the index.
func IndexFile(db JournalIndex, path string, data []byte) error {
	meta, doc, err := journal.Describe(path, data)
	if err != nil {
		return err
	}
	return db.UpsertJournal(*meta, searchableText(doc))
}

// searchableText is every section body except the generated Who/When
// fields, which would make every journal match the same names and dates.
func searchableText(doc *parser.Document) string {
	var b strings.Builder
	for _, s := range doc.Sections {
		if s.Kind.Ownership() != parser.AutomationOwned {
			b.WriteString(s.Body)
		}
	}
	return b.String()
}
