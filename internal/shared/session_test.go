package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "sid", time.Hour, false), mr
}

func requestWithCookie(c *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

func responseCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sid" {
			return c
		}
	}
	return nil
}

func TestSessionRoundTrip(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWithCookie(nil))
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	require.Nil(t, responseCookie(t, rec), "untouched sessions are not stored")

	sess.SetUser("42")
	sess.Set("k", "v")
	rec = httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	cookie := responseCookie(t, rec)
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.True(t, mr.Exists("session:"+sess.ID))

	loaded, err := sm.Load(ctx, requestWithCookie(cookie))
	require.NoError(t, err)
	require.Equal(t, "42", loaded.User())
	require.Equal(t, "v", loaded.Get("k"))
}

func TestSessionRenewDropsOldKey(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWithCookie(nil))
	require.NoError(t, err)
	sess.Set("k", "v")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))
	oldID := sess.ID

	loaded, err := sm.Load(ctx, requestWithCookie(&http.Cookie{Name: "sid", Value: oldID}))
	require.NoError(t, err)
	sm.Renew(loaded)
	require.NotEqual(t, oldID, loaded.ID)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), loaded))

	require.False(t, mr.Exists("session:"+oldID))
	require.True(t, mr.Exists("session:"+loaded.ID))
}

func TestSessionDestroy(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWithCookie(nil))
	require.NoError(t, err)
	sess.SetUser("7")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))

	sm.Destroy(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	require.False(t, mr.Exists("session:"+sess.ID))
	cookie := responseCookie(t, rec)
	require.NotNil(t, cookie)
	require.Negative(t, cookie.MaxAge)
}

func TestUnknownCookieYieldsFreshSession(t *testing.T) {
	sm, _ := newTestSessions(t)
	sess, err := sm.Load(context.Background(), requestWithCookie(&http.Cookie{Name: "sid", Value: "stale"}))
	require.NoError(t, err)
	require.NotEqual(t, "stale", sess.ID)
	require.Empty(t, sess.User())
}

func TestCSRFTokens(t *testing.T) {
	sm, _ := newTestSessions(t)
	csrf := NewCSRFManager("secret")
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWithCookie(nil))
	require.NoError(t, err)
	token, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	again, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, token, again)

	require.NoError(t, csrf.VerifyToken(ctx, sess, token))
	require.ErrorIs(t, csrf.VerifyToken(ctx, sess, token+"x"), ErrCSRFTokenMismatch)
	require.ErrorIs(t, csrf.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)

	_, err = csrf.EnsureToken(ctx, nil)
	require.Error(t, err)
}
