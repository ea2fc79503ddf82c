package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"lensgate/internal/contextutil"
	"lensgate/internal/service"
)

// AdminTokenHeader carries the shared secret for admin endpoints.
const AdminTokenHeader = "x-admin-token"

// SyncHandler handles HTTP requests that trigger a content sync.
type SyncHandler struct {
	syncService service.SyncService
	adminToken  string
}

// NewSyncHandler creates a new SyncHandler. An empty adminToken rejects every request.
func NewSyncHandler(syncService service.SyncService, adminToken string) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		adminToken:  adminToken,
	}
}

// authorized compares the presented token in constant time.
func (h *SyncHandler) authorized(r *http.Request) bool {
	if h.adminToken == "" {
		return false
	}
	presented := r.Header.Get(AdminTokenHeader)
	return subtle.ConstantTimeCompare([]byte(presented), []byte(h.adminToken)) == 1
}

// ServeHTTP runs a sync and responds with its summary.
//
// swagger:route POST /api/admin/sync adminSync
//
// Responses: 200 summary, 401 unauthorized, 409 sync already running,
// 500 {"error": code}.
func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(ctx, w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	if !h.authorized(r) {
		logger.WarnContext(ctx, "unauthorized sync request")
		writeError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	logger.InfoContext(ctx, "sync triggered via API")
	summary, err := h.syncService.Sync(ctx)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrSyncInProgress) {
			status = http.StatusConflict
		}
		writeError(ctx, w, status, service.ErrorCode(err))
		return
	}

	writeJSON(ctx, w, http.StatusOK, summary)
}
