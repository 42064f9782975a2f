package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/editorialhouse/newsroom/internal/platform/httpx"
	"github.com/editorialhouse/newsroom/internal/rbac"
)

// Handler manages role administration endpoints.
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

// MountRoutes registers role and privilege catalog routes under /api/admin.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PrivilegeManageUsers))
		r.Get("/roles", h.listRoles)
		r.Get("/privileges", h.listPrivileges)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PrivilegeManageUsers, rbac.PrivilegeGrantRevoke))
		r.Put("/roles/{name}/privileges", h.replacePrivileges)
	})
}

type replacePrivilegesRequest struct {
	Privileges []string `json:"privileges" validate:"required,dive,required"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context(), rbac.CallerFromContext(r.Context()))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *Handler) listPrivileges(w http.ResponseWriter, r *http.Request) {
	privileges, err := h.service.ListPrivileges(r.Context(), rbac.CallerFromContext(r.Context()))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, privileges)
}

func (h *Handler) replacePrivileges(w http.ResponseWriter, r *http.Request) {
	var req replacePrivilegesRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	role, err := h.service.ReplacePrivileges(r.Context(), rbac.CallerFromContext(r.Context()), chi.URLParam(r, "name"), req.Privileges)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}
