package articles

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/editorialhouse/newsroom/internal/platform/httpx"
	"github.com/editorialhouse/newsroom/internal/rbac"
)

// Handler exposes article endpoints.
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

// MountRoutes registers article routes. The gates mirror the service checks.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/published", h.listPublished)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PrivilegeWrite))
		r.Get("/mine", h.listMine)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/submit", h.submit)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PrivilegeApproveArticle))
		r.Get("/pending", h.listPending)
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PrivilegePublish))
		r.Post("/{id}/publish", h.publish)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PrivilegeDeleteAnyArticle))
		r.Post("/{id}/unpublish", h.unpublish)
	})
	r.Get("/{id}/history", h.history)
	r.Get("/{id}", h.get)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) listPublished(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListPublished(r.Context())
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListPendingApproval(r.Context())
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListMine(r.Context(), rbac.CallerFromContext(r.Context()))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	article, err := h.service.Get(r.Context(), rbac.CallerFromContext(r.Context()), id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, article)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	logs, err := h.service.History(r.Context(), rbac.CallerFromContext(r.Context()), id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Content
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	article, err := h.service.Create(r.Context(), rbac.CallerFromContext(r.Context()), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, article)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	var in Content
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	article, err := h.service.Update(r.Context(), rbac.CallerFromContext(r.Context()), id, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, article)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	if err := h.service.Delete(r.Context(), rbac.CallerFromContext(r.Context()), id); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	var req rejectRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	article, err := h.service.Reject(r.Context(), rbac.CallerFromContext(r.Context()), id, req.Reason)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, article)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.Submit)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.Approve)
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.Publish)
}

func (h *Handler) unpublish(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.Unpublish)
}

type transitionFunc func(ctx context.Context, caller *rbac.Caller, id int64) (Article, error)

func (h *Handler) simpleTransition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	article, err := fn(r.Context(), rbac.CallerFromContext(r.Context()), id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, article)
}
