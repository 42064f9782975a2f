package interactions

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/editorialhouse/newsroom/internal/platform/httpx"
	"github.com/editorialhouse/newsroom/internal/rbac"
)

// Handler exposes interaction endpoints.
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

// MountRoutes registers routes below an article. The router must carry the
// article id as the "id" URL parameter.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.overview)
	r.Get("/comments", h.listComments)
	r.Get("/rating", h.ratingSummary)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireCaller())
		r.Post("/comment", h.addComment)
		r.Post("/rate", h.addRating)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PrivilegeReportNews))
		r.Post("/report", h.report)
	})
}

// MountReportRoutes registers the report review queue.
func (h *Handler) MountReportRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(rbac.PrivilegeReviewReport))
	r.Get("/pending", h.listPendingReports)
	r.Post("/{id}/review", h.reviewReport)
}

type overviewResponse struct {
	Comments []Comment     `json:"comments"`
	Rating   RatingSummary `json:"rating"`
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	var resp overviewResponse
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		comments, err := h.service.ListComments(ctx, id)
		resp.Comments = comments
		return err
	})
	g.Go(func() error {
		summary, err := h.service.RatingSummary(ctx, id)
		resp.Rating = summary
		return err
	})
	if err := g.Wait(); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	items, err := h.service.ListComments(r.Context(), id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) ratingSummary(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	summary, err := h.service.RatingSummary(r.Context(), id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	var in CommentInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	comment, err := h.service.AddComment(r.Context(), rbac.CallerFromContext(r.Context()), id, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, comment)
}

func (h *Handler) addRating(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	var in RatingInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	rating, err := h.service.AddRating(r.Context(), rbac.CallerFromContext(r.Context()), id, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rating)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	var in ReportInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	report, err := h.service.Report(r.Context(), rbac.CallerFromContext(r.Context()), id, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, report)
}

func (h *Handler) listPendingReports(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListPendingReports(r.Context(), rbac.CallerFromContext(r.Context()))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) reviewReport(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	var in ReviewInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	report, err := h.service.ReviewReport(r.Context(), rbac.CallerFromContext(r.Context()), id, *in.ActionTaken)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
