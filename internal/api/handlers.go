package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/driftdb/snowdrift/internal/apperr"
	"github.com/driftdb/snowdrift/internal/index"
	"github.com/driftdb/snowdrift/internal/manager"
)

// rawFields are attributes whose values are declaration source as-is:
// numbers, bare place references, datetime calls, citation lists. Every
// other field is a string attribute and gets quoted.
var rawFields = map[string]struct{}{
	"year":      {},
	"class":     {},
	"place":     {},
	"snowball":  {},
	"citations": {},
}

// attrValue applies the quote policy to one attribute value.
func attrValue(field, value string, raw bool) string {
	if raw {
		return value
	}
	if _, ok := rawFields[field]; ok {
		return value
	}
	return strconv.Quote(value)
}

// Handler holds API route handlers.
type Handler struct {
	mgr *manager.Manager
	db  index.WorkIndex
	// onChange runs after every successful mutation; the entrypoint wires
	// it to an index sync so reads right after a write see fresh data.
	onChange func()
}

// NewHandler creates a new Handler.
func NewHandler(mgr *manager.Manager, db index.WorkIndex, onChange func()) *Handler {
	return &Handler{mgr: mgr, db: db, onChange: onChange}
}

func (h *Handler) changed() {
	if h.onChange != nil {
		h.onChange()
	}
}

// writeOpError maps operation errors onto HTTP statuses. The corpus edits
// fail loudly: a span conflict or stale state means the caller should re-read
// and retry.
func writeOpError(w http.ResponseWriter, what string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrDuplicateKey), errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrParse):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrStaleState), errors.Is(err, apperr.ErrSpanConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		slog.Error(what+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListWorks handles GET /api/works.
func (h *Handler) ListWorks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	year, _ := strconv.Atoi(q.Get("year"))

	rows, total, err := h.db.ListWorks(limit, offset, year, q.Get("class"), q.Get("sort"))
	if err != nil {
		slog.Error("list works failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	items := make([]WorkListItem, len(rows))
	for i, row := range rows {
		items[i] = WorkListItem{
			Key:     row.Key,
			Class:   row.Class,
			Year:    row.Year,
			Title:   row.Title,
			Display: row.Display,
			Authors: row.Authors,
			Place:   row.Place,
			File:    row.File,
		}
	}
	writeJSON(w, http.StatusOK, WorkListResponse{Works: items, Total: total})
}

// GetWork handles GET /api/works/{key}. The declaration text comes straight
// from the corpus file, not from the index.
func (h *Handler) GetWork(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	work, decl, err := h.mgr.ReadWork(r.Context(), key)
	if err != nil {
		writeOpError(w, "get work", err)
		return
	}
	writeJSON(w, http.StatusOK, WorkDetail{Work: *work, Declaration: decl})
}

// InsertWork handles POST /api/works.
func (h *Handler) InsertWork(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req InsertWorkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Author == "" || req.Year == 0 || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("author, year, and title are required"))
		return
	}

	attrs := make(map[string]string, len(req.Attrs))
	for field, v := range req.Attrs {
		attrs[field] = attrValue(field, v, false)
	}
	res, err := h.mgr.InsertWork(r.Context(), manager.NewWork{
		Author: req.Author,
		Year:   req.Year,
		Title:  req.Title,
		Class:  req.Class,
		Attrs:  attrs,
	})
	if err != nil {
		writeOpError(w, "insert work", err)
		return
	}
	if len(res.Modified) > 0 {
		h.changed()
	}
	status := http.StatusCreated
	if res.Existing {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

// SetAttribute handles POST /api/works/{key}/attribute.
func (h *Handler) SetAttribute(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req SetAttributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Field == "" || req.Value == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("field and value are required"))
		return
	}
	res, err := h.mgr.SetAttribute(r.Context(), key, req.Field, attrValue(req.Field, req.Value, req.Raw))
	if err != nil {
		writeOpError(w, "set attribute", err)
		return
	}
	if len(res.Modified) > 0 {
		h.changed()
	}
	writeJSON(w, http.StatusOK, res)
}

// RenameWork handles POST /api/works/{key}/rename.
func (h *Handler) RenameWork(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req RenameWorkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.NewKey == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("new_key is required"))
		return
	}
	res, err := h.mgr.RenameWork(r.Context(), key, req.NewKey)
	if err != nil {
		writeOpError(w, "rename work", err)
		return
	}
	h.changed()
	writeJSON(w, http.StatusOK, res)
}

// DeleteWork handles DELETE /api/works/{key}.
func (h *Handler) DeleteWork(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if _, err := h.mgr.DeleteWork(r.Context(), key); err != nil {
		writeOpError(w, "delete work", err)
		return
	}
	h.changed()
	w.WriteHeader(http.StatusNoContent)
}

// InsertCitation handles POST /api/citations.
func (h *Handler) InsertCitation(w http.ResponseWriter, r *http.Request) {
	var req CitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Source == "" || req.Target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("source and target are required"))
		return
	}
	res, err := h.mgr.InsertCitation(r.Context(), req.Source, req.Target)
	if err != nil {
		writeOpError(w, "insert citation", err)
		return
	}
	if len(res.Modified) > 0 {
		h.changed()
	}
	status := http.StatusCreated
	if res.Existing {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

// RemoveCitation handles DELETE /api/citations. With both source and target
// it removes one edge; with only target it removes every citation of the
// target across the corpus.
func (h *Handler) RemoveCitation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source, target := q.Get("source"), q.Get("target")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("target is required"))
		return
	}

	var res *OperationResponse
	var err error
	if source != "" {
		res, err = h.mgr.RemoveSourceCitation(r.Context(), source, target)
	} else {
		res, err = h.mgr.RemoveTargetCitation(r.Context(), target)
	}
	if err != nil {
		writeOpError(w, "remove citation", err)
		return
	}
	h.changed()
	writeJSON(w, http.StatusOK, res)
}

// Citations handles GET /api/works/{key}/citations.
func (h *Handler) Citations(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	cites, err := h.db.Cites(key)
	if err != nil {
		slog.Error("citations failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	citedBy, err := h.db.CitedBy(key)
	if err != nil {
		slog.Error("citations failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, CitationsResponse{
		Key:     key,
		Cites:   nonNilSlice(cites),
		CitedBy: nonNilSlice(citedBy),
	})
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.db.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	results := make([]SearchResult, len(rows))
	for i, row := range rows {
		results[i] = SearchResult{Key: row.Key, File: row.File, Title: row.Title, Snippet: row.Snippet}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Graph handles GET /api/graph.
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.db.Graph()
	if err != nil {
		slog.Error("graph failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Links: links})
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
