package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"lensgate/internal/contextutil"
	"lensgate/internal/media"
)

// MediaHandler serves content-addressed media from a store, local or remote.
type MediaHandler struct {
	store media.Opener
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(store media.Opener) *MediaHandler {
	return &MediaHandler{store: store}
}

// ServeHTTP streams the file named by the wildcard route segment.
func (h *MediaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	name := chi.URLParam(r, "*")
	if !media.ValidFilename(name) {
		http.NotFound(w, r)
		return
	}

	obj, err := h.store.Open(ctx, name)
	if errors.Is(err, media.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "failed to open media", "name", name, "error", err)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	defer func() {
		_ = obj.Body.Close()
	}()

	header := w.Header()
	header.Set("Content-Type", obj.ContentType)
	if obj.Size > 0 {
		header.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	// Names are content hashes, so a stored file never changes.
	header.Set("Cache-Control", "public, max-age=31536000, immutable")
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, obj.Body); err != nil {
		logger.WarnContext(ctx, "failed to stream media", "name", name, "error", err)
	}
}
