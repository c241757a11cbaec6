package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/gitjournal/internal/journalservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *journalservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Journal of the checked-out branch.
	r.Get("/journal", h.CurrentJournal)
	r.Post("/journal/ensure", h.EnsureJournal)
	r.Post("/journal/update", h.UpdateJournal)
	r.Post("/journal/preview", h.PreviewJournal)

	// All journals of the repository.
	r.Get("/journals", h.ListJournals)
	r.Get("/journals/{folder}", h.GetJournal)

	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
