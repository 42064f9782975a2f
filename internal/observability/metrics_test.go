package observability

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/editorialhouse/newsroom/internal/shared"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `newsroom_http_requests_total{code="418",route="/test"} 1`)
	require.Contains(t, body, `newsroom_http_request_duration_seconds_bucket{route="/test"`)
}

func TestObserveTransition(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveTransition("approve", nil)
	metrics.ObserveTransition("approve", fmt.Errorf("%w: already approved", shared.ErrConflictingState))
	metrics.ObserveTransition("publish", fmt.Errorf("%w: nope", shared.ErrForbidden))

	body := scrape(t, metrics)
	require.Contains(t, body, `newsroom_article_transitions_total{op="approve",outcome="ok"} 1`)
	require.Contains(t, body, `newsroom_article_transitions_total{op="approve",outcome="conflict"} 1`)
	require.Contains(t, body, `newsroom_article_transitions_total{op="publish",outcome="forbidden"} 1`)
}

func TestOutcome(t *testing.T) {
	require.Equal(t, "ok", Outcome(nil))
	require.Equal(t, "not_found", Outcome(shared.ErrNotFound))
	require.Equal(t, "invalid", Outcome(fmt.Errorf("wrap: %w", shared.ErrInvalidArgument)))
	require.Equal(t, "error", Outcome(fmt.Errorf("boom")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveTransition("approve", nil)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
