package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/editorialhouse/newsroom/internal/platform/httpx"
	"github.com/editorialhouse/newsroom/internal/rbac"
)

// Handler manages user administration endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(rbac.PrivilegeManageUsers))
	r.Get("/", h.listUsers)
	r.Put("/{id}/roles", h.setRoles)
	r.Put("/{id}/enabled", h.setEnabled)
	r.With(h.rbac.RequireAll(rbac.PrivilegeGrantRevoke)).Put("/{id}/privileges", h.setPrivileges)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), rbac.CallerFromContext(r.Context()))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) setRoles(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	var in SetRolesInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	user, err := h.service.SetRoles(r.Context(), rbac.CallerFromContext(r.Context()), id, in.Roles)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) setPrivileges(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	var in SetPrivilegesInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	user, err := h.service.SetPrivileges(r.Context(), rbac.CallerFromContext(r.Context()), id, in.Privileges)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) setEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	var in SetEnabledInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	user, err := h.service.SetEnabled(r.Context(), rbac.CallerFromContext(r.Context()), id, *in.Enabled)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
