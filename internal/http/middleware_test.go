package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	"lensgate/internal/contextutil"
)

// captureLogs routes the default logger into a buffer for the test's duration.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// logged returns the stack LoggerMiddleware -> RequestLogger -> h behind a request id.
func logged(h http.HandlerFunc) http.Handler {
	return middleware.RequestID(LoggerMiddleware(RequestLogger(h)))
}

func TestLoggerMiddleware_RequestScopedFields(t *testing.T) {
	logs := captureLogs(t)

	handler := middleware.RequestID(LoggerMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contextutil.LoggerFromContext(r.Context()).InfoContext(r.Context(), "lens loaded")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/lenses/craft", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := logs.String()
	for _, want := range []string{"msg=\"lens loaded\"", "method=GET", "path=/api/lenses/craft", "request_id="} {
		if !strings.Contains(out, want) {
			t.Errorf("log line missing %q: %s", want, out)
		}
	}
}

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		statusCode int
		wantLine   bool
	}{
		{name: "admin sync", method: http.MethodPost, path: "/api/admin/sync", statusCode: http.StatusOK, wantLine: true},
		{name: "healthy check skipped", method: http.MethodGet, path: "/api/health", statusCode: http.StatusOK, wantLine: false},
		{name: "unhealthy check logged", method: http.MethodGet, path: "/api/health", statusCode: http.StatusServiceUnavailable, wantLine: true},
		{name: "media miss logged", method: http.MethodGet, path: "/images/0123456789abcdef.png", statusCode: http.StatusNotFound, wantLine: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLogs(t)

			handler := logged(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			})
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != tt.statusCode {
				t.Fatalf("status = %v, want %v", w.Code, tt.statusCode)
			}
			out := logs.String()
			if got := strings.Contains(out, "request completed"); got != tt.wantLine {
				t.Fatalf("request line logged = %v, want %v: %s", got, tt.wantLine, out)
			}
			if !tt.wantLine {
				return
			}
			if n := strings.Count(out, "method="); n != 1 {
				t.Errorf("method logged %d times: %s", n, out)
			}
			if n := strings.Count(out, "path="); n != 1 {
				t.Errorf("path logged %d times: %s", n, out)
			}
			if !strings.Contains(out, "status=") {
				t.Errorf("status missing: %s", out)
			}
		})
	}
}

func TestResponseWriter_DefaultsToOK(t *testing.T) {
	w := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	_, _ = rw.Write([]byte("{}"))
	if rw.statusCode != http.StatusOK {
		t.Errorf("statusCode = %v, want %v", rw.statusCode, http.StatusOK)
	}

	rw = &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	rw.WriteHeader(http.StatusConflict)
	if rw.statusCode != http.StatusConflict {
		t.Errorf("statusCode = %v, want %v", rw.statusCode, http.StatusConflict)
	}
}

func TestCORS_AdminTokenPreflight(t *testing.T) {
	called := false
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/admin/sync", nil)
	req.Header.Set("Origin", "https://admin.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "x-admin-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %v, want %v", w.Code, http.StatusNoContent)
	}
	if called {
		t.Error("preflight should not reach the handler")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.example" {
		t.Errorf("Allow-Origin = %q", got)
	}
	allowed := strings.ToLower(w.Header().Get("Access-Control-Allow-Headers"))
	if !strings.Contains(allowed, "x-admin-token") {
		t.Errorf("Allow-Headers = %q, want x-admin-token", allowed)
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost) {
		t.Errorf("Allow-Methods = %q, want POST", w.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestCORS_PublicReadWithoutOrigin(t *testing.T) {
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search?q=go", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %v, want %v", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}
