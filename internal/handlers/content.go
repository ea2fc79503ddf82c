package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lensgate/internal/contextutil"
	"lensgate/internal/search"
	"lensgate/internal/service"
)

// ContentHandler serves the public read API.
type ContentHandler struct {
	content service.ContentService
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(content service.ContentService) *ContentHandler {
	return &ContentHandler{content: content}
}

// LensesResponse lists published lenses.
type LensesResponse struct {
	Lenses []service.LensView `json:"lenses"`
}

// SearchResponse lists search hits.
type SearchResponse struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

// ListLenses handles GET /api/lenses.
func (h *ContentHandler) ListLenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lenses, err := h.content.ListLenses(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, LensesResponse{Lenses: lenses})
}

// GetLens handles GET /api/lenses/{slug}.
func (h *ContentHandler) GetLens(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	detail, err := h.content.GetLens(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, detail)
}

// GetEntry handles GET /api/entries/{slug}.
func (h *ContentHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	detail, err := h.content.GetEntry(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, detail)
}

// Search handles GET /api/search?q=.
func (h *ContentHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query().Get("q")
	results, err := h.content.Search(ctx, q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, SearchResponse{Query: q, Results: results})
}

func (h *ContentHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if errors.Is(err, service.ErrNotFound) {
		writeError(ctx, w, http.StatusNotFound, "not_found")
		return
	}
	contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "content request failed", "error", err)
	writeError(ctx, w, http.StatusInternalServerError, "internal_error")
}
