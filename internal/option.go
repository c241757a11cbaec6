package internal

import (
	"log/slog"

	"github.com/starford/gitjournal/internal/journalservice"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	repoDir   string
	logger    *slog.Logger
	withIndex bool
	onChange  journalservice.ChangeFunc
	version   string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithRepoDir sets the directory inside the working copy to operate on.
// It defaults to the current directory.
func WithRepoDir(dir string) Option {
	return func(a *application) {
		a.repoDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}

// WithIndex opens and synchronizes the SQLite journal index.
func WithIndex() Option {
	return func(a *application) {
		a.withIndex = true
	}
}

// WithChangeFunc registers a callback for journal writes.
func WithChangeFunc(fn journalservice.ChangeFunc) Option {
	return func(a *application) {
		a.onChange = fn
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}
