package interactions

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/editorialhouse/newsroom/internal/rbac"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, _ := newTestService(t, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc, rbac.Middleware{Logger: logger})
	r := chi.NewRouter()
	r.Route("/api/articles/{id}/interactions", h.MountRoutes)
	r.Route("/api/reports", h.MountReportRoutes)
	return r
}

func serve(h http.Handler, caller *rbac.Caller, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if caller != nil {
		req = req.WithContext(rbac.ContextWithCaller(req.Context(), caller))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerRatingFlow(t *testing.T) {
	h := newTestRouter(t)

	rec := serve(h, nil, http.MethodPost, "/api/articles/1/interactions/rate", `{"score":3}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, reader, http.MethodPost, "/api/articles/1/interactions/rate", `{"score":6}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, reader, http.MethodPost, "/api/articles/1/interactions/rate", `{"score":3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(h, reader, http.MethodPost, "/api/articles/1/interactions/rate", `{"score":3}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(h, reader, http.MethodPost, "/api/articles/2/interactions/rate", `{"score":3}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(h, reader, http.MethodPost, "/api/articles/1/interactions/comment", `{"content":"Great read"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(h, nil, http.MethodGet, "/api/articles/1/interactions/", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var overview overviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	require.Len(t, overview.Comments, 1)
	require.Equal(t, int64(1), overview.Rating.Count)

	rec = serve(h, nil, http.MethodGet, "/api/articles/2/interactions/", "")
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerReportReview(t *testing.T) {
	h := newTestRouter(t)

	rec := serve(h, clerk, http.MethodPost, "/api/articles/1/interactions/report", `{"reason":"spam"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(h, reader, http.MethodPost, "/api/articles/1/interactions/report", `{"reason":"spam"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))

	rec = serve(h, reader, http.MethodGet, "/api/reports/pending", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(h, supervisor, http.MethodPost, "/api/reports/1/review", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, supervisor, http.MethodPost, "/api/reports/1/review", `{"actionTaken":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.True(t, report.Reviewed)
	require.False(t, report.ActionTaken)
}
