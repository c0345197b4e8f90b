package wingoboss

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingoboss/wingoboss-api/internal/http/handlers/health"
	"github.com/wingoboss/wingoboss-api/internal/http/middlewarectx"
	"github.com/wingoboss/wingoboss-api/internal/lib/jwt"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newTestRouter(checks map[string]health.Check) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, newNoopLogger(), Deps{
		Tokens:  jwt.NewJWTMaker("test-secret", time.Hour, time.Hour),
		Limiter: middlewarectx.NewRateLimiter(100, 100),
		Health:  checks,
	})
	return r
}

func TestRoutes(t *testing.T) {
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name           string
		method         string
		path           string
		header         map[string]string
		checks         map[string]health.Check
		expectedStatus int
		expectedBody   string
		expectedHeader map[string]string
	}{
		{
			name:           "method not allowed",
			method:         http.MethodGet,
			path:           "/api/create-order",
			expectedStatus: http.StatusMethodNotAllowed,
			expectedBody:   `{"error":"Method not allowed"}`,
		},
		{
			name:           "unknown route",
			method:         http.MethodGet,
			path:           "/api/unknown",
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"error":"not found"}`,
		},
		{
			name:           "healthz ok",
			method:         http.MethodGet,
			path:           "/healthz",
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"ok"}`,
		},
		{
			name:           "healthz degraded",
			method:         http.MethodGet,
			path:           "/healthz",
			checks:         map[string]health.Check{"redis": down},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"status":"degraded","checks":{"redis":"connection refused"}}`,
		},
		{
			name:           "me requires session",
			method:         http.MethodGet,
			path:           "/api/me",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "admin requires admin token",
			method:         http.MethodGet,
			path:           "/api/admin/users",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:   "cors preflight",
			method: http.MethodOptions,
			path:   "/api/create-order",
			header: map[string]string{
				"Origin":                         "https://lluui.vercel.app",
				"Access-Control-Request-Method":  http.MethodPost,
				"Access-Control-Request-Headers": "content-type",
			},
			expectedStatus: http.StatusNoContent,
			expectedHeader: map[string]string{
				"Access-Control-Allow-Origin": "*",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()

			newTestRouter(tt.checks).ServeHTTP(rr, req)

			require.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			}
			for k, v := range tt.expectedHeader {
				assert.Equal(t, v, rr.Header().Get(k))
			}
		})
	}
}

func TestRoutesMetricsEndpoint(t *testing.T) {
	router := newTestRouter(nil)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "wingoboss_http_requests_total")
}
