package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/editorialhouse/newsroom/internal/rbac"
	"github.com/editorialhouse/newsroom/internal/shared"
	_ "github.com/editorialhouse/newsroom/testing"
)

type authFixture struct {
	router   http.Handler
	sessions *shared.SessionManager
	redis    *miniredis.Miniredis
}

// commitWriter commits the cookie session before the first header write.
type commitWriter struct {
	http.ResponseWriter
	commit  func()
	written bool
}

func (w *commitWriter) WriteHeader(code int) {
	if !w.written {
		w.written = true
		w.commit()
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *commitWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "test_session", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens := NewTokenIssuer("jwt-secret", time.Hour)
	service := NewService(newMemoryRepo(), tokens, 0, logger).WithHashCost(4)
	identity := NewIdentity(service, tokens, logger)
	handler := NewHandler(logger, service, sessions, csrf, rbac.Middleware{Logger: logger})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(req.Context(), sess)
			cw := &commitWriter{ResponseWriter: w, commit: func() {
				require.NoError(t, sessions.Commit(ctx, w, sess))
			}}
			next.ServeHTTP(cw, req.WithContext(ctx))
		})
	})
	r.Use(identity.Middleware)
	r.Route("/api/auth", handler.MountRoutes)
	return authFixture{router: r, sessions: sessions, redis: mr}
}

func (f authFixture) do(t *testing.T, method, path, body string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestRegisterLoginMeLogout(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.do(t, http.MethodPost, "/api/auth/register", `{"username":"Reader","password":"readerpass"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotContains(t, rec.Body.String(), "password")

	rec = f.do(t, http.MethodPost, "/api/auth/register", `{"username":"reader","password":"readerpass"}`, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/login", `{"username":"reader","password":"nope-nope"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/login", `{"username":"reader","password":"readerpass"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)
	cookie := sessionCookie(t, rec, f.sessions.CookieName())

	rec = f.do(t, http.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/auth/me", "", func(r *http.Request) { r.AddCookie(cookie) })
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"ROLE_USER"`)
	require.Contains(t, rec.Body.String(), `"REPORT_NEWS_PRIVILEGE"`)

	bearer := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+login.Token) }
	rec = f.do(t, http.MethodGet, "/api/auth/me", "", bearer)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/logout", "", bearer)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// the token and the cookie share the revoked login session
	rec = f.do(t, http.MethodGet, "/api/auth/me", "", bearer)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/auth/me", "", func(r *http.Request) { r.AddCookie(cookie) })
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvalidBearerIsRejected(t *testing.T) {
	f := newAuthFixture(t)
	rec := f.do(t, http.MethodGet, "/api/auth/me", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-token")
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestCSRFTokenIsStoredInSession(t *testing.T) {
	f := newAuthFixture(t)
	rec := f.do(t, http.MethodGet, "/api/auth/csrf", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["csrfToken"])
	cookie := sessionCookie(t, rec, f.sessions.CookieName())
	require.True(t, f.redis.Exists("session:"+cookie.Value))
}
