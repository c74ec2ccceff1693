package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/culture-map/backend/internal/metrics"
	"github.com/pkordes/culture-map/backend/internal/middleware"
)

// TestMetricsHandler_RecordsRoutePattern verifies that requests are labelled
// by chi route pattern rather than raw path.
func TestMetricsHandler_RecordsRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(middleware.NewMetricsHandler(m))
	r.Get("/api/objects/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/objects/123", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	out := httptest.NewRecorder()
	m.Handler().ServeHTTP(out, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := out.Body.String()
	assert.Contains(t, body, `route="/api/objects/{id}"`)
	assert.Contains(t, body, `status="404"`)
	assert.NotContains(t, body, `route="/api/objects/123"`)
}
