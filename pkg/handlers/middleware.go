package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/logging"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/manager"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/metrics"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/security"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	workspaceKey
)

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with an id, reusing a valid inbound X-Request-ID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestIDFromContext returns the request id, or "" outside the RequestID middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// statusRecorder captures the status code written by the wrapped handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs and counts every handled request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logging.LogHTTPRequest(r.Method, r.URL.Path, r.UserAgent(), security.GetClientIP(r), rec.status, time.Since(start))
		metrics.RecordHTTPRequest(r.Method, rec.status)
	})
}

// RequireWorkspace resolves the workspace behind the session cookie, answering 401 when there is none.
func (h *Handler) RequireWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			h.writeText(w, r, http.StatusUnauthorized, "Sessão inexistente ou expirada")
			return
		}

		workspace, ok := h.SessionStore.Get(cookie.Value)
		if !ok {
			logging.LogSecurityEvent("Unknown or expired session used", "low",
				"ip", security.GetClientIP(r),
				"path", r.URL.Path)
			h.writeText(w, r, http.StatusUnauthorized, "Sessão inexistente ou expirada")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), workspaceKey, workspace)))
	})
}

// WorkspaceFromContext returns the workspace attached by RequireWorkspace.
func WorkspaceFromContext(ctx context.Context) *manager.Manager {
	workspace, _ := ctx.Value(workspaceKey).(*manager.Manager)
	return workspace
}
