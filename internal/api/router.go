package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/driftdb/snowdrift/internal/index"
	"github.com/driftdb/snowdrift/internal/manager"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(mgr *manager.Manager, db index.WorkIndex, onChange func(), authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(mgr, db, onChange)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Works: reads from the index, mutations through the manager.
	r.Get("/works", h.ListWorks)
	r.Post("/works", h.InsertWork)
	r.Get("/works/{key}", h.GetWork)
	r.Delete("/works/{key}", h.DeleteWork)
	r.Post("/works/{key}/attribute", h.SetAttribute)
	r.Post("/works/{key}/rename", h.RenameWork)
	r.Get("/works/{key}/citations", h.Citations)

	// Citation edges.
	r.Post("/citations", h.InsertCitation)
	r.Delete("/citations", h.RemoveCitation)

	// Search and graph.
	r.Get("/search", h.Search)
	r.Get("/graph", h.Graph)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
