package rbac

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/editorialhouse/newsroom/internal/platform/httpx"
	"github.com/editorialhouse/newsroom/internal/shared"
)

// Middleware wires authorization gates for HTTP handlers. It relies on the
// caller resolved earlier in the chain by the identity middleware.
type Middleware struct {
	Logger *slog.Logger
}

// RequireCaller rejects anonymous requests.
func (m Middleware) RequireCaller() func(http.Handler) http.Handler {
	return m.gate("require caller", func(*Caller) bool { return true })
}

// RequireAny ensures the caller has at least one of the required privileges.
func (m Middleware) RequireAny(perms ...Privilege) func(http.Handler) http.Handler {
	normalized := normalizePrivileges(perms)
	return m.gate("require any", func(c *Caller) bool { return c.Authority.HasAny(normalized...) })
}

// RequireAll ensures the caller has all required privileges.
func (m Middleware) RequireAll(perms ...Privilege) func(http.Handler) http.Handler {
	normalized := normalizePrivileges(perms)
	return m.gate("require all", func(c *Caller) bool { return c.Authority.HasAll(normalized...) })
}

func (m Middleware) gate(name string, allowed func(*Caller) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := CallerFromContext(r.Context())
			if err := Authenticated(caller); err != nil {
				httpx.RespondError(w, err)
				return
			}
			if !allowed(caller) {
				if m.Logger != nil {
					m.Logger.Debug("rbac "+name+" denied",
						slog.Int64("user_id", caller.UserID),
						slog.String("path", r.URL.Path),
						slog.String("request_id", middleware.GetReqID(r.Context())))
				}
				httpx.RespondError(w, fmt.Errorf("%w: insufficient authority", shared.ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func normalizePrivileges(perms []Privilege) []Privilege {
	normalized := make([]Privilege, 0, len(perms))
	for _, p := range perms {
		if p == "" || slices.Contains(normalized, p) {
			continue
		}
		normalized = append(normalized, p)
	}
	return normalized
}
