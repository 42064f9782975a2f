package auth

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/editorialhouse/newsroom/internal/platform/httpx"
	"github.com/editorialhouse/newsroom/internal/rbac"
	"github.com/editorialhouse/newsroom/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	rbac           rbac.Middleware
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		rbac:           rbac,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.csrfToken)
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.With(h.rbac.RequireCaller()).Get("/me", h.me)
}

func (h *Handler) csrfToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrfManager.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	user, err := h.service.Register(r.Context(), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	result, err := h.service.Login(r.Context(), in, r.RemoteAddr, r.UserAgent())
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Renew(sess)
		sess.SetUser(strconv.FormatInt(result.User.ID, 10))
		sess.Set(LoginSessionKey, result.SessionID)
		sess.Delete(shared.CSRFSessionKey)
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	loginSession := LoginSessionFromContext(r.Context())
	sess := shared.SessionFromContext(r.Context())
	if loginSession == "" && sess != nil {
		loginSession = sess.Get(LoginSessionKey)
	}
	if err := h.service.Logout(r.Context(), loginSession); err != nil {
		h.logger.Warn("remove login session", slog.Any("error", err))
	}
	h.sessionManager.Destroy(sess)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Me(r.Context(), rbac.CallerFromContext(r.Context()))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}
