package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lensgate/internal/handlers"
	"lensgate/internal/media"
	"lensgate/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	SyncService    service.SyncService
	ContentService service.ContentService
	DB             handlers.Pinger
	AdminToken     string
	// Media, when set, is served under MediaPrefix.
	Media       media.Opener
	MediaPrefix string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	healthHandler := handlers.NewHealthHandler(deps.DB)
	syncHandler := handlers.NewSyncHandler(deps.SyncService, deps.AdminToken)
	contentHandler := handlers.NewContentHandler(deps.ContentService)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Method(http.MethodPost, "/admin/sync", syncHandler)

		r.Get("/lenses", contentHandler.ListLenses)
		r.Get("/lenses/{slug}", contentHandler.GetLens)
		r.Get("/entries/{slug}", contentHandler.GetEntry)
		r.Get("/search", contentHandler.Search)
	})

	if deps.Media != nil {
		prefix := deps.MediaPrefix
		if prefix == "" {
			prefix = media.DefaultPrefix
		}
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		mediaHandler := handlers.NewMediaHandler(deps.Media)
		r.Method(http.MethodGet, prefix+"*", mediaHandler)
		r.Method(http.MethodHead, prefix+"*", mediaHandler)
	}

	return r
}
