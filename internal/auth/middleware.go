package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/editorialhouse/newsroom/internal/platform/httpx"
	"github.com/editorialhouse/newsroom/internal/rbac"
	"github.com/editorialhouse/newsroom/internal/shared"
)

// LoginSessionKey stores the login session id inside a cookie session.
const LoginSessionKey = "login_session"

type loginSessionContextKey struct{}

// ContextWithLoginSession stores the login session id in context.
func ContextWithLoginSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, loginSessionContextKey{}, id)
}

// LoginSessionFromContext returns the login session id of the request.
func LoginSessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(loginSessionContextKey{}).(string)
	return id
}

// BearerToken extracts a bearer token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Identity resolves the caller once per request from a bearer token or the
// cookie session. Requests without credentials continue anonymously.
type Identity struct {
	service *Service
	tokens  *TokenIssuer
	logger  *slog.Logger
}

// NewIdentity constructs the identity middleware.
func NewIdentity(service *Service, tokens *TokenIssuer, logger *slog.Logger) *Identity {
	return &Identity{service: service, tokens: tokens, logger: logger}
}

// Middleware implements func(http.Handler) http.Handler.
func (m *Identity) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw, ok := BearerToken(r); ok {
			m.serveBearer(w, r, next, raw)
			return
		}
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := strconv.ParseInt(sess.User(), 10, 64)
		if err != nil {
			sess.SetUser("")
			next.ServeHTTP(w, r)
			return
		}
		loginSession := sess.Get(LoginSessionKey)
		caller, err := m.service.ResolveCaller(r.Context(), userID, loginSession)
		if err != nil {
			if errors.Is(err, shared.ErrUnauthenticated) {
				// stale cookie session: drop the binding and continue anonymously
				sess.SetUser("")
				sess.Delete(LoginSessionKey)
				next.ServeHTTP(w, r)
				return
			}
			httpx.Fail(w, r, m.logger, err)
			return
		}
		ctx := rbac.ContextWithCaller(r.Context(), caller)
		ctx = ContextWithLoginSession(ctx, loginSession)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Identity) serveBearer(w http.ResponseWriter, r *http.Request, next http.Handler, raw string) {
	claims, err := m.tokens.Parse(raw)
	if err != nil {
		httpx.Fail(w, r, m.logger, err)
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		httpx.Fail(w, r, m.logger, err)
		return
	}
	caller, err := m.service.ResolveCaller(r.Context(), userID, claims.ID)
	if err != nil {
		httpx.Fail(w, r, m.logger, err)
		return
	}
	ctx := rbac.ContextWithCaller(r.Context(), caller)
	ctx = ContextWithLoginSession(ctx, claims.ID)
	next.ServeHTTP(w, r.WithContext(ctx))
}
