// Package testutil provides shared test helpers for setting up repositories,
// journal services and databases.
package testutil

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/gitjournal/internal/index"
	"github.com/starford/gitjournal/internal/journal"
	"github.com/starford/gitjournal/internal/journalservice"
	"github.com/starford/gitjournal/internal/models"
	"github.com/starford/gitjournal/internal/storage"
)

// Now is the fixed clock of BranchContext.
var Now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// JournalPath is where the journal of BranchContext lives.
const JournalPath = "branches/2026-03-14_feature-login/git-journal.md"

// QuietLogger only reports errors.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestRepo creates a temporary repository root with a storage provider.
func TestRepo(t *testing.T) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// BranchContext returns the context of branch "feature/login" at Now.
func BranchContext(root string) models.BranchContext {
	return models.BranchContext{
		RepoRoot: root,
		Branch:   "feature/login",
		Name:     "feature-login",
		Author:   "Ada",
		Head:     "abc1234",
		Now:      Now,
	}
}

// Resolver returns a fixed BranchContext, or Err when set.
type Resolver struct {
	BC  models.BranchContext
	Err error
}

// Resolve implements journalservice.Resolver.
func (r *Resolver) Resolve(context.Context) (*models.BranchContext, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	bc := r.BC
	return &bc, nil
}

// Env is a journal service over a temporary repository.
type Env struct {
	Root     string
	Store    *storage.FS
	Resolver *Resolver
	Journals *journal.Service
	DB       *index.DB
	Service  *journalservice.Service
}

// NewEnv wires a journal service with the default layout. db may be nil;
// extra options are appended after the index and logger.
func NewEnv(t *testing.T, db *index.DB, opts ...journalservice.Option) *Env {
	t.Helper()
	root, store := TestRepo(t)
	journals, err := journal.NewService(store, journal.Options{Logger: QuietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	resolver := &Resolver{BC: BranchContext(root)}
	all := []journalservice.Option{journalservice.WithLogger(QuietLogger())}
	if db != nil {
		all = append(all, journalservice.WithIndex(db))
	}
	all = append(all, opts...)
	return &Env{
		Root:     root,
		Store:    store,
		Resolver: resolver,
		Journals: journals,
		DB:       db,
		Service:  journalservice.NewService(resolver, journals, store, all...),
	}
}
