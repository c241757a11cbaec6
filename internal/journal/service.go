// Package journal maintains one journal per branch: it locates the journal,
// creates it from a template on first use and afterwards refreshes only the
// automation-owned fields and appends to the detailed log.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/gitjournal/internal/apperr"
	"github.com/starford/gitjournal/internal/checksum"
	"github.com/starford/gitjournal/internal/models"
	"github.com/starford/gitjournal/internal/parser"
	"github.com/starford/gitjournal/internal/storage"
)

// Outcome is the definite result of Ensure or Update.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeExists  Outcome = "exists" // no-op
	OutcomeUpdated Outcome = "updated"
	OutcomePreview Outcome = "preview" // computed, not written
)

// Result describes the journal after an operation.
type Result struct {
	Outcome  Outcome   `json:"outcome"`
	Location *Location `json:"location"`
	Content  []byte    `json:"-"`
	Previous []byte    `json:"-"` // prior content, set by Preview
	Checksum string    `json:"checksum"`
}

// Service runs the ensure and update flows against a storage provider.
type Service struct {
	store        storage.Provider
	locator      *Locator
	materializer *Materializer
	logger       *slog.Logger
}

// Options configures a Service.
type Options struct {
	Dir      string // journals directory relative to the store root
	FileName string
	Template string // template text; empty selects the built-in one
	Logger   *slog.Logger
}

// NewService creates a journal service on top of store.
func NewService(store storage.Provider, opts Options) (*Service, error) {
	m, err := NewMaterializer(store, opts.Template)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:        store,
		locator:      NewLocator(store, opts.Dir, opts.FileName),
		materializer: m,
		logger:       logger,
	}, nil
}

// Locator exposes the service's locator.
func (s *Service) Locator() *Locator {
	return s.locator
}

// Locate resolves the journal location for bc without touching the disk.
func (s *Service) Locate(_ context.Context, bc models.BranchContext) (*Location, error) {
	return s.locator.Locate(bc)
}

// Ensure creates the journal for bc if it does not exist. An existing
// journal, including one created concurrently by another process, is a
// no-op success.
func (s *Service) Ensure(_ context.Context, bc models.BranchContext) (*Result, error) {
	loc, err := s.locator.Locate(bc)
	if err != nil {
		return nil, err
	}
	if !loc.Exists {
		content, err := s.materializer.Materialize(loc, bc)
		switch {
		case err == nil:
			s.logger.Info("journal created", slog.String("path", loc.File), slog.String("branch", bc.Branch))
			loc.Exists, loc.DirExists = true, true
			return &Result{Outcome: OutcomeCreated, Location: loc, Content: content, Checksum: checksum.Sum(content)}, nil
		case errors.Is(err, apperr.ErrAlreadyExists):
			s.logger.Info("journal created concurrently", slog.String("path", loc.File))
			if loc, err = s.locator.Locate(bc); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	}

	data, err := s.store.Read(loc.File)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("journal exists", slog.String("path", loc.File))
	return &Result{Outcome: OutcomeExists, Location: loc, Content: data, Checksum: checksum.Sum(data)}, nil
}

// Update refreshes the automation-owned sections of the journal for bc and
// appends entry to the detailed log. A missing journal is created instead.
// A journal that does not match the section schema is left untouched and
// an error matching apperr.ErrSchemaParse is returned.
func (s *Service) Update(ctx context.Context, bc models.BranchContext, entry models.LogEntry) (*Result, error) {
	res, err := s.compute(ctx, bc, entry, true)
	if err != nil || res.Outcome != OutcomeUpdated {
		return res, err
	}
	if err := s.store.Write(res.Location.File, res.Content); err != nil {
		return nil, fmt.Errorf("journal: update %s: %w", res.Location.File, err)
	}
	s.logger.Info("journal updated",
		slog.String("path", res.Location.File),
		slog.String("author", bc.Author),
		slog.String("head", bc.Head))
	return res, nil
}

// Preview computes what Update would write without writing it. A missing
// journal is previewed as its freshly rendered template.
func (s *Service) Preview(ctx context.Context, bc models.BranchContext, entry models.LogEntry) (*Result, error) {
	res, err := s.compute(ctx, bc, entry, false)
	if err != nil {
		return nil, err
	}
	res.Outcome = OutcomePreview
	return res, nil
}

func (s *Service) compute(_ context.Context, bc models.BranchContext, entry models.LogEntry, write bool) (*Result, error) {
	loc, err := s.locator.Locate(bc)
	if err != nil {
		return nil, err
	}

	if !loc.Exists {
		if !write {
			created := loc.Created
			if created == "" {
				created = bc.Date()
			}
			content, err := s.materializer.Render(bc, created)
			if err != nil {
				return nil, err
			}
			return &Result{Location: loc, Content: content, Checksum: checksum.Sum(content)}, nil
		}

		content, err := s.materializer.Materialize(loc, bc)
		switch {
		case err == nil:
			s.logger.Info("journal created", slog.String("path", loc.File), slog.String("branch", bc.Branch))
			loc.Exists, loc.DirExists = true, true
			return &Result{Outcome: OutcomeCreated, Location: loc, Content: content, Checksum: checksum.Sum(content)}, nil
		case errors.Is(err, apperr.ErrAlreadyExists):
			// Lost the creation race: update what the winner wrote.
			s.logger.Info("journal created concurrently, updating", slog.String("path", loc.File))
			if loc, err = s.locator.Locate(bc); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	}

	prior, err := s.store.Read(loc.File)
	if err != nil {
		return nil, err
	}

	doc, err := parser.Parse(prior)
	if err != nil {
		s.logger.Warn("journal left untouched, fix its headings manually",
			slog.String("path", loc.File),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("journal: %s: %w", loc.File, err)
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = bc.Now
	}
	if entry.What == "" && bc.Status != "" {
		entry.What = bc.Status
	}

	Merge(doc, bc, loc.Created)
	AppendEntry(doc, entry)
	content := doc.Render()

	return &Result{
		Outcome:  OutcomeUpdated,
		Location: loc,
		Content:  content,
		Previous: prior,
		Checksum: checksum.Sum(content),
	}, nil
}
