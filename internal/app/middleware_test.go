package app

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/editorialhouse/newsroom/internal/platform/httpx"
	"github.com/editorialhouse/newsroom/internal/shared"
)

func newStackRouter(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	csrf := shared.NewCSRFManager("csrf")

	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:         cfg,
		SessionManager: shared.NewSessionManager(client, "sid", time.Hour, false),
		CSRFManager:    csrf,
	}) {
		r.Use(mw)
	}
	r.Get("/csrf", func(w http.ResponseWriter, r *http.Request) {
		token, err := csrf.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
		require.NoError(t, err)
		httpx.JSON(w, http.StatusOK, map[string]string{"csrfToken": token})
	})
	r.Post("/write", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func TestCSRFGuardsCookieWrites(t *testing.T) {
	router := newStackRouter(t, &Config{RateLimitPerMinute: 100})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/write", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/csrf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(t, decodeBody(rec, &body))

	req := httptest.NewRequest(http.MethodPost, "/write", nil)
	req.AddCookie(cookies[0])
	req.Header.Set(shared.CSRFHeader, body.CSRFToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/write", nil)
	req.AddCookie(cookies[0])
	req.Header.Set(shared.CSRFHeader, "forged")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBearerWritesSkipCSRF(t *testing.T) {
	router := newStackRouter(t, &Config{RateLimitPerMinute: 100})
	req := httptest.NewRequest(http.MethodPost, "/write", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimit(t *testing.T) {
	router := newStackRouter(t, &Config{RateLimitPerMinute: 2})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/csrf", nil))
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func decodeBody(rec *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(rec.Body.Bytes(), v)
}
