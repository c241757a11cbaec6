// Package gitctx resolves the ambient repository state (branch, HEAD,
// author, date) into an immutable models.BranchContext.
package gitctx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/gitjournal/internal/models"
)

// DefaultDetachedBranch names the journal used when HEAD is not on a branch.
const DefaultDetachedBranch = "detached"

// Resolver turns a Source into a BranchContext.
type Resolver struct {
	src      Source
	detached string
	now      func() time.Time
	logger   *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithDetachedBranch sets the sentinel branch name for a detached HEAD.
func WithDetachedBranch(name string) ResolverOption {
	return func(r *Resolver) {
		if name != "" {
			r.detached = name
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver reading from src.
func NewResolver(src Source, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		src:      src,
		detached: DefaultDetachedBranch,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve reads the repository state once. It fails only when no
// repository is discoverable (apperr.ErrNoRepository) or git itself cannot
// be run; a detached HEAD, an unborn branch or a missing author are not
// errors.
func (r *Resolver) Resolve(ctx context.Context) (*models.BranchContext, error) {
	root, err := r.src.RepoRoot(ctx)
	if err != nil {
		return nil, err
	}

	branch, err := r.src.Branch(ctx)
	if err != nil {
		return nil, fmt.Errorf("gitctx: branch: %w", err)
	}
	if branch == "" {
		r.logger.Debug("detached HEAD, using sentinel branch", slog.String("branch", r.detached))
		branch = r.detached
	}

	head, err := r.src.Head(ctx)
	if err != nil {
		return nil, fmt.Errorf("gitctx: head: %w", err)
	}

	author, err := r.src.Author(ctx)
	if err != nil {
		return nil, fmt.Errorf("gitctx: author: %w", err)
	}

	status := ""
	if porcelain, err := r.src.Status(ctx); err != nil {
		r.logger.Warn("git status failed", slog.String("error", err.Error()))
	} else {
		status = SummarizeStatus(porcelain)
	}

	name := Normalize(branch)
	if name == "" {
		name = Normalize(r.detached)
	}

	return &models.BranchContext{
		RepoRoot: root,
		Branch:   branch,
		Name:     name,
		Author:   author,
		Head:     head,
		Now:      r.now(),
		Status:   status,
	}, nil
}
