// Package journalservice coordinates branch resolution, the journal flows,
// the optional search index and change notifications.
package journalservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/starford/gitjournal/internal/apperr"
	"github.com/starford/gitjournal/internal/index"
	"github.com/starford/gitjournal/internal/journal"
	"github.com/starford/gitjournal/internal/models"
	"github.com/starford/gitjournal/internal/storage"
)

// Resolver produces the BranchContext of the working copy.
type Resolver interface {
	Resolve(ctx context.Context) (*models.BranchContext, error)
}

// ChangeFunc is notified after a journal was created or updated.
// kind is "created" or "updated"; path is relative to the repository root.
type ChangeFunc func(kind, path string)

// SectionView is one section of a parsed journal.
type SectionView struct {
	Heading   string `json:"heading"`
	Ownership string `json:"ownership"`
	Body      string `json:"body"`
}

// JournalDetail is the full representation of a journal.
type JournalDetail struct {
	models.JournalMetadata
	Title    string        `json:"title,omitempty"`
	Content  string        `json:"content"`
	Sections []SectionView `json:"sections"`
}

// Operation is the outcome of Ensure, Update or Preview.
type Operation struct {
	Outcome  journal.Outcome      `json:"outcome"`
	Context  models.BranchContext `json:"context"`
	Location *journal.Location    `json:"location"`
	Checksum string               `json:"checksum"`
	Content  []byte               `json:"-"`
	Previous []byte               `json:"-"`
}

// Service coordinates the journal flows with the index.
type Service struct {
	resolver Resolver
	journals *journal.Service
	store    storage.Provider
	db       index.JournalIndex
	onChange ChangeFunc
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithIndex keeps db in step with every write made through the service.
func WithIndex(db index.JournalIndex) Option {
	return func(s *Service) {
		s.db = db
	}
}

// WithChangeFunc registers fn to be called after each write.
func WithChangeFunc(fn ChangeFunc) Option {
	return func(s *Service) {
		s.onChange = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a new journal service.
func NewService(resolver Resolver, journals *journal.Service, store storage.Provider, opts ...Option) *Service {
	s := &Service{
		resolver: resolver,
		journals: journals,
		store:    store,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Context resolves the current branch context.
func (s *Service) Context(ctx context.Context) (*models.BranchContext, error) {
	return s.resolver.Resolve(ctx)
}

// Locate resolves the current branch and returns where its journal lives.
func (s *Service) Locate(ctx context.Context) (*models.BranchContext, *journal.Location, error) {
	bc, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, nil, err
	}
	loc, err := s.journals.Locate(ctx, *bc)
	if err != nil {
		return nil, nil, err
	}
	return bc, loc, nil
}

// Ensure creates the journal of the current branch if it is missing.
func (s *Service) Ensure(ctx context.Context) (*Operation, error) {
	bc, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.journals.Ensure(ctx, *bc)
	if err != nil {
		return nil, err
	}
	s.afterWrite(res)
	return toOperation(*bc, res), nil
}

// Update merges the automation-owned sections of the current branch's
// journal and appends entry to its detailed log.
func (s *Service) Update(ctx context.Context, entry models.LogEntry) (*Operation, error) {
	bc, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.journals.Update(ctx, *bc, entry)
	if err != nil {
		return nil, err
	}
	s.afterWrite(res)
	return toOperation(*bc, res), nil
}

// Preview computes an update without writing it.
func (s *Service) Preview(ctx context.Context, entry models.LogEntry) (*Operation, error) {
	bc, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.journals.Preview(ctx, *bc, entry)
	if err != nil {
		return nil, err
	}
	return toOperation(*bc, res), nil
}

// Current returns the journal of the current branch, or apperr.ErrNotFound
// when it has not been created yet.
func (s *Service) Current(ctx context.Context) (*JournalDetail, error) {
	_, loc, err := s.Locate(ctx)
	if err != nil {
		return nil, err
	}
	if !loc.Exists {
		return nil, fmt.Errorf("journal %s: %w", loc.File, apperr.ErrNotFound)
	}
	return s.read(loc.File)
}

// Get returns the journal stored in the given branch folder.
func (s *Service) Get(_ context.Context, folder string) (*JournalDetail, error) {
	if _, _, ok := journal.SplitFolderKey(folder); !ok {
		return nil, fmt.Errorf("folder %q: %w", folder, apperr.ErrNotFound)
	}
	return s.read(s.journals.Locator().Path(folder))
}

// List returns journals ordered by sort ("last_updated", "created" or
// "branch"). Without an index the journals directory is scanned.
func (s *Service) List(_ context.Context, limit, offset int, sortBy string) ([]models.JournalMetadata, int, error) {
	if s.db != nil {
		items, total, err := s.db.ListJournals(limit, offset, sortBy)
		if err != nil {
			return nil, 0, err
		}
		return nonNilSlice(items), total, nil
	}

	all, err := s.scan()
	if err != nil {
		return nil, 0, err
	}
	sortJournals(all, sortBy)
	total := len(all)
	if offset > total {
		offset = total
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return nonNilSlice(all), total, nil
}

// Search runs a full-text query against the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.db == nil {
		return nil, errors.New("search: index is not available")
	}
	results, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(results), nil
}

func (s *Service) afterWrite(res *journal.Result) {
	var kind string
	switch res.Outcome {
	case journal.OutcomeCreated:
		kind = "created"
	case journal.OutcomeUpdated:
		kind = "updated"
	default:
		return
	}
	if s.db != nil {
		if err := index.IndexFile(s.db, res.Location.File, res.Content); err != nil {
			s.logger.Warn("index update failed",
				slog.String("path", res.Location.File),
				slog.String("error", err.Error()))
		}
	}
	if s.onChange != nil {
		s.onChange(kind, res.Location.File)
	}
}

func (s *Service) read(path string) (*JournalDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	meta, doc, err := journal.Describe(path, data)
	if err != nil {
		return nil, fmt.Errorf("journal %s: %w", path, err)
	}
	sections := make([]SectionView, len(doc.Sections))
	for i, sec := range doc.Sections {
		sections[i] = SectionView{
			Heading:   sec.Kind.Heading(),
			Ownership: sec.Kind.Ownership().String(),
			Body:      sec.Body,
		}
	}
	return &JournalDetail{
		JournalMetadata: *meta,
		Title:           doc.Title,
		Content:         string(data),
		Sections:        sections,
	}, nil
}

func (s *Service) scan() ([]models.JournalMetadata, error) {
	loc := s.journals.Locator()
	files, err := s.store.List(loc.Dir())
	if err != nil {
		return nil, err
	}
	var out []models.JournalMetadata
	for _, f := range files {
		if !loc.IsJournal(f.Path) {
			continue
		}
		data, err := s.store.Read(f.Path)
		if err != nil {
			return nil, err
		}
		meta, _, err := journal.Describe(f.Path, data)
		if err != nil {
			s.logger.Warn("skipping journal", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		out = append(out, *meta)
	}
	return out, nil
}

func sortJournals(items []models.JournalMetadata, by string) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch by {
		case "created":
			if a.Created != b.Created {
				return a.Created > b.Created
			}
		case "branch":
			if a.Branch != b.Branch {
				return a.Branch < b.Branch
			}
		default:
			if a.LastUpdated != b.LastUpdated {
				return a.LastUpdated > b.LastUpdated
			}
		}
		return a.Path < b.Path
	})
}

func toOperation(bc models.BranchContext, res *journal.Result) *Operation {
	return &Operation{
		Outcome:  res.Outcome,
		Context:  bc,
		Location: res.Location,
		Checksum: res.Checksum,
		Content:  res.Content,
		Previous: res.Previous,
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
