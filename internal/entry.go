// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/gitjournal/internal/api"
	"github.com/starford/gitjournal/internal/index"
	"github.com/starford/gitjournal/internal/mcpserver"
	"github.com/starford/gitjournal/internal/sse"
)

// Run serves the HTTP API, the SSE stream and the journal watcher for one
// repository until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	opts = append(opts, WithIndex(), WithChangeFunc(broker.PublishJournalEvent))
	env, err := Open(ctx, opts...)
	if err != nil {
		return err
	}
	defer env.Close()

	cfg := env.Config
	logger := env.Logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("repo_root", env.RepoRoot),
		slog.String("journal_dir", cfg.Journal.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()),
		slog.Bool("auth", cfg.Auth.AuthEnabled()))

	// The watcher needs the journals directory to exist.
	journalDir := filepath.Join(env.RepoRoot, filepath.FromSlash(env.Journals.Locator().Dir()))
	if err := os.MkdirAll(journalDir, 0o755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHandler(env, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gCtx)
	defer stopWatch()

	g.Go(func() error {
		if err := index.Watch(watchCtx, env.DB, env.Store, env.Journals.Locator(), logger, broker.PublishJournalEvent); err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		stopWatch()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Closing the broker ends open SSE streams so Shutdown can finish.
		broker.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// newHandler mounts the health probes, the API and the MCP endpoint. Readiness requires a
// resolvable branch context and a reachable index.
func newHandler(env *Env, events http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health probes are unauthenticated.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok", "")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		bc, err := env.Service.Context(req.Context())
		if err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable", "")
			return
		}
		if env.DB != nil {
			if err := env.DB.Ping(req.Context()); err != nil {
				writeStatus(w, http.StatusServiceUnavailable, "unavailable", bc.Branch)
				return
			}
		}
		writeStatus(w, http.StatusOK, "ok", bc.Branch)
	})

	auth := env.Config.Auth
	r.Mount("/api", api.NewRouter(env.Service, auth.AuthEnabled(), auth.Token, events))
	r.Group(func(r chi.Router) {
		r.Use(api.AuthMiddleware(auth.AuthEnabled(), auth.Token))
		r.Mount("/mcp", mcpserver.New(env.Service, env.Version).HTTPHandler())
	})
	return r
}

type healthStatus struct {
	Status string `json:"status"`
	Branch string `json:"branch,omitempty"`
}

func writeStatus(w http.ResponseWriter, code int, status, branch string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(healthStatus{Status: status, Branch: branch})
}
