package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/gitjournal/internal/apperr"
	"github.com/starford/gitjournal/internal/journal"
	"github.com/starford/gitjournal/internal/journalservice"
	"github.com/starford/gitjournal/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *journalservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *journalservice.Service) *Handler {
	return &Handler{svc: svc}
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(codeNotFound, "not found"))
	case errors.Is(err, apperr.ErrNoRepository):
		writeJSON(w, http.StatusPreconditionFailed, errorBody(codeNoRepository, err.Error()))
	case errors.Is(err, apperr.ErrSchemaParse):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(codeSchema, err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(codeInternal, "internal error"))
	}
}

// decodeEntry reads an optional EntryRequest body. An empty body is an
// empty entry.
func decodeEntry(w http.ResponseWriter, r *http.Request) (models.LogEntry, bool) {
	var req EntryRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(codeBadRequest, "invalid JSON body"))
		return models.LogEntry{}, false
	}
	return models.LogEntry{What: req.What, Why: req.Why, Where: req.Where, Notes: req.Notes}, true
}

// CurrentJournal handles GET /api/journal.
//
//	@Summary		Get the journal of the checked-out branch
//	@Tags			journal
//	@Produce		json
//	@Success		200	{object}	JournalDetail
//	@Failure		404	{object}	errResponse
//	@Failure		412	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/journal [get]
func (h *Handler) CurrentJournal(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Current(r.Context())
	if err != nil {
		writeError(w, "current journal", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// EnsureJournal handles POST /api/journal/ensure.
//
//	@Summary		Create the journal of the checked-out branch if missing
//	@Tags			journal
//	@Produce		json
//	@Success		200	{object}	OperationResponse	"Journal already existed"
//	@Success		201	{object}	OperationResponse	"Journal created"
//	@Failure		412	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/journal/ensure [post]
func (h *Handler) EnsureJournal(w http.ResponseWriter, r *http.Request) {
	op, err := h.svc.Ensure(r.Context())
	if err != nil {
		writeError(w, "ensure journal", err)
		return
	}
	status := http.StatusOK
	if op.Outcome == journal.OutcomeCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, operationResponse(op))
}

// UpdateJournal handles POST /api/journal/update.
//
//	@Summary		Refresh Who/When and append a detailed log entry
//	@Tags			journal
//	@Accept			json
//	@Produce		json
//	@Param			body	body		EntryRequest	false	"Log entry"
//	@Success		200		{object}	OperationResponse
//	@Failure		400		{object}	errResponse
//	@Failure		412		{object}	errResponse
//	@Failure		422		{object}	errResponse	"Journal headings are broken; nothing was written"
//	@Security		BearerAuth
//	@Router			/journal/update [post]
func (h *Handler) UpdateJournal(w http.ResponseWriter, r *http.Request) {
	entry, ok := decodeEntry(w, r)
	if !ok {
		return
	}
	op, err := h.svc.Update(r.Context(), entry)
	if err != nil {
		writeError(w, "update journal", err)
		return
	}
	status := http.StatusOK
	if op.Outcome == journal.OutcomeCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, operationResponse(op))
}

// PreviewJournal handles POST /api/journal/preview.
//
//	@Summary		Show what an update would write without writing it
//	@Tags			journal
//	@Accept			json
//	@Produce		json
//	@Param			body	body		EntryRequest	false	"Log entry"
//	@Success		200		{object}	PreviewResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/journal/preview [post]
func (h *Handler) PreviewJournal(w http.ResponseWriter, r *http.Request) {
	entry, ok := decodeEntry(w, r)
	if !ok {
		return
	}
	op, err := h.svc.Preview(r.Context(), entry)
	if err != nil {
		writeError(w, "preview journal", err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{
		Branch:  op.Context.Branch,
		Path:    op.Location.File,
		Exists:  op.Location.Exists,
		Content: string(op.Content),
		Diff:    journal.Diff(op.Location.File, op.Previous, op.Content),
	})
}

// ListJournals handles GET /api/journals.
//
//	@Summary		List the journals of all branches
//	@Tags			journals
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			sort	query		string	false	"Sort field"	Enums(last_updated, created, branch)
//	@Success		200		{object}	JournalListResponse
//	@Security		BearerAuth
//	@Router			/journals [get]
func (h *Handler) ListJournals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.List(r.Context(), limit, offset, q.Get("sort"))
	if err != nil {
		writeError(w, "list journals", err)
		return
	}
	writeJSON(w, http.StatusOK, JournalListResponse{Journals: items, Total: total})
}

// GetJournal handles GET /api/journals/{folder}.
//
//	@Summary		Get a journal by its branch folder
//	@Tags			journals
//	@Produce		json
//	@Param			folder	path		string	true	"Branch folder, <date>_<branch>"
//	@Success		200		{object}	JournalDetail
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/journals/{folder} [get]
func (h *Handler) GetJournal(w http.ResponseWriter, r *http.Request) {
	folder := chi.URLParam(r, "folder")
	d, err := h.svc.Get(r.Context(), folder)
	if err != nil {
		writeError(w, "get journal", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across journals
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody(codeBadRequest, "query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(codeInternal, "internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
