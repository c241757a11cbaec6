package api

import (
	"github.com/starford/gitjournal/internal/index"
	"github.com/starford/gitjournal/internal/journalservice"
	"github.com/starford/gitjournal/internal/models"
)

// EntryRequest is the request body for update and preview. Empty fields
// are written as placeholder prompts.
type EntryRequest struct {
	What  string `json:"what,omitempty" example:"Split the token refresh out of the login handler"`
	Why   string `json:"why,omitempty" example:"Refresh raced with logout"`
	Where string `json:"where,omitempty" example:"internal/auth/refresh.go"`
	Notes string `json:"notes,omitempty"`
}

// OperationResponse reports the outcome of ensure and update.
type OperationResponse struct {
	Outcome  string `json:"outcome" example:"updated" validate:"required"`
	Branch   string `json:"branch" example:"feature/login" validate:"required"`
	Path     string `json:"path" example:"branches/2026-03-14_feature-login/git-journal.md" validate:"required"`
	Checksum string `json:"checksum" validate:"required"`
}

// PreviewResponse is the would-be content of an update and its diff.
type PreviewResponse struct {
	Branch  string `json:"branch" validate:"required"`
	Path    string `json:"path" validate:"required"`
	Exists  bool   `json:"exists"`
	Content string `json:"content" validate:"required"`
	Diff    string `json:"diff"`
}

// JournalDetail is the full journal response type (aliased from the domain layer).
type JournalDetail = journalservice.JournalDetail

// JournalListResponse wraps paginated journal listings.
type JournalListResponse struct {
	Journals []models.JournalMetadata `json:"journals" validate:"required"`
	Total    int                      `json:"total" example:"3" validate:"required"`
}

// SearchResult is a single search hit (aliased from the index).
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

func operationResponse(op *journalservice.Operation) OperationResponse {
	return OperationResponse{
		Outcome:  string(op.Outcome),
		Branch:   op.Context.Branch,
		Path:     op.Location.File,
		Checksum: op.Checksum,
	}
}
