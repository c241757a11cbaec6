package gitctx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/starford/gitjournal/internal/apperr"
)

// Source supplies the raw repository state the resolver normalizes.
type Source interface {
	// RepoRoot returns the top-level directory of the working copy, or an
	// error wrapping apperr.ErrNoRepository.
	RepoRoot(ctx context.Context) (string, error)
	// Branch returns the checked-out branch, or "" on a detached HEAD.
	Branch(ctx context.Context) (string, error)
	// Head returns the short commit id, or "" when there is no commit yet.
	Head(ctx context.Context) (string, error)
	// Author returns the configured user.name, or "" when unset.
	Author(ctx context.Context) (string, error)
	// Status returns `git status --porcelain` output.
	Status(ctx context.Context) (string, error)
}

// Git reads repository state by running the git binary.
type Git struct {
	binary string
	dir    string
}

var _ Source = (*Git)(nil)

// NewGit creates a Git source running binary (default "git") in dir.
func NewGit(binary, dir string) *Git {
	if binary == "" {
		binary = "git"
	}
	return &Git{binary: binary, dir: dir}
}

// RepoRoot returns the repository top-level directory.
func (g *Git) RepoRoot(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("gitctx: %w: %w", apperr.ErrNoRepository, err)
	}
	root := strings.TrimSpace(out)
	if root == "" {
		return "", fmt.Errorf("gitctx: %w: empty toplevel", apperr.ErrNoRepository)
	}
	return root, nil
}

// Branch returns the short symbolic name of HEAD. A detached HEAD is not
// an error; it yields "".
func (g *Git) Branch(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Head returns the abbreviated HEAD commit id, or "" on an unborn branch.
func (g *Git) Head(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--short", "HEAD")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Author returns user.name; git exits 1 when it is unset.
func (g *Git) Author(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "config", "user.name")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Status returns the porcelain working-tree status.
func (g *Git) Status(ctx context.Context) (string, error) {
	return g.run(ctx, "status", "--porcelain")
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.binary, args...)
	cmd.Dir = g.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s failed: %w (stderr: %s)",
			strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
