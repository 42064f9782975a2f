package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/editorialhouse/newsroom/internal/articles"
	"github.com/editorialhouse/newsroom/internal/auth"
	"github.com/editorialhouse/newsroom/internal/interactions"
	"github.com/editorialhouse/newsroom/internal/observability"
	"github.com/editorialhouse/newsroom/internal/platform/httpx"
	"github.com/editorialhouse/newsroom/internal/roles"
	"github.com/editorialhouse/newsroom/internal/shared"
	"github.com/editorialhouse/newsroom/internal/users"
	"github.com/editorialhouse/newsroom/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	SessionManager      *shared.SessionManager
	CSRFManager         *shared.CSRFManager
	Identity            *auth.Identity
	AuthHandler         *auth.Handler
	ArticlesHandler     *articles.Handler
	InteractionsHandler *interactions.Handler
	UsersHandler        *users.Handler
	RolesHandler        *roles.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with newsroom defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Identity:       params.Identity,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" not supported")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/articles", func(r chi.Router) {
			params.ArticlesHandler.MountRoutes(r)
			if params.InteractionsHandler != nil {
				r.Route("/{id}/interactions", params.InteractionsHandler.MountRoutes)
			}
		})
		if params.InteractionsHandler != nil {
			r.Route("/reports", params.InteractionsHandler.MountReportRoutes)
		}
		r.Route("/admin", func(r chi.Router) {
			if params.UsersHandler != nil {
				r.Route("/users", params.UsersHandler.MountRoutes)
			}
			if params.RolesHandler != nil {
				params.RolesHandler.MountRoutes(r)
			}
		})
	})

	return r
}
