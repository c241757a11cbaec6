package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/starford/gitjournal/internal/gitctx"
	"github.com/starford/gitjournal/internal/index"
	"github.com/starford/gitjournal/internal/journal"
	"github.com/starford/gitjournal/internal/journalservice"
	"github.com/starford/gitjournal/internal/storage"
)

// Env holds the components shared by every command, wired for one
// working copy.
type Env struct {
	Config   *Config
	Logger   *slog.Logger
	RepoRoot string
	Version  string
	Store    *storage.FS
	Journals *journal.Service
	Service  *journalservice.Service
	// DB is nil unless the index was requested.
	DB *index.DB
}

// NewLogger returns the JSON logger used by all commands.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Open discovers the repository and wires storage, the journal flows and,
// if requested, the index. It fails with apperr.ErrNoRepository outside a
// working copy.
func Open(ctx context.Context, opts ...Option) (*Env, error) {
	app := &application{repoDir: ".", version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.Default()
	}

	git := gitctx.NewGit(cfg.Git.Binary, app.repoDir)
	root, err := git.RepoRoot(ctx)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	var tmpl string
	if p := cfg.Journal.TemplatePath(root); p != "" {
		if tmpl, err = journal.LoadTemplate(p); err != nil {
			return nil, err
		}
	}

	journals, err := journal.NewService(store, journal.Options{
		Dir:      cfg.Journal.Dir,
		FileName: cfg.Journal.FileName,
		Template: tmpl,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init journal: %w", err)
	}

	resolver := gitctx.NewResolver(git,
		gitctx.WithDetachedBranch(cfg.Journal.DetachedBranch),
		gitctx.WithLogger(logger))

	env := &Env{
		Config:   cfg,
		Logger:   logger,
		RepoRoot: root,
		Version:  app.version,
		Store:    store,
		Journals: journals,
	}

	svcOpts := []journalservice.Option{journalservice.WithLogger(logger)}
	if app.withIndex {
		dbPath, err := cfg.SQLite.DatabasePath(root)
		if err != nil {
			return nil, fmt.Errorf("index path: %w", err)
		}
		db, err := index.Open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		if err := index.Sync(db, store, journals.Locator(), logger); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
		env.DB = db
		svcOpts = append(svcOpts, journalservice.WithIndex(db))
	}
	if app.onChange != nil {
		svcOpts = append(svcOpts, journalservice.WithChangeFunc(app.onChange))
	}

	env.Service = journalservice.NewService(resolver, journals, store, svcOpts...)

	logger.Debug("environment ready",
		slog.String("repo_root", root),
		slog.String("journal_dir", cfg.Journal.Dir),
		slog.Bool("index", env.DB != nil))

	return env, nil
}

// Close releases the index.
func (e *Env) Close() error {
	if e.DB != nil {
		return e.DB.Close()
	}
	return nil
}
