package articles

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/editorialhouse/newsroom/internal/rbac"
	"github.com/editorialhouse/newsroom/internal/shared"
)

// Module is the approval history module name for articles.
const Module = "articles"

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Article, error)
	ListPublished(ctx context.Context) ([]Article, error)
	ListByStatus(ctx context.Context, status Status) ([]Article, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]Article, error)
}

// TxRepository exposes transactional operations. GetForUpdate must lock the
// row until the transaction ends.
type TxRepository interface {
	Insert(ctx context.Context, a Article) (Article, error)
	GetForUpdate(ctx context.Context, id int64) (Article, error)
	Save(ctx context.Context, a Article) error
	Delete(ctx context.Context, id int64) error
}

// ApprovalPort records editorial history.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
	List(ctx context.Context, module string, ref int64) ([]shared.ApprovalLog, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// TransitionObserver receives one event per workflow operation attempt.
type TransitionObserver interface {
	ObserveTransition(op string, err error)
}

// Service applies the editorial workflow.
type Service struct {
	repo      RepositoryPort
	approvals ApprovalPort
	audit     AuditPort
	observer  TransitionObserver
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs the articles service. approvals, audit and logger may be nil.
func NewService(repo RepositoryPort, approvals ApprovalPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		approvals: approvals,
		audit:     audit,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// WithObserver attaches a transition observer.
func (s *Service) WithObserver(o TransitionObserver) *Service {
	s.observer = o
	return s
}

// Create stores a new draft authored by the caller.
func (s *Service) Create(ctx context.Context, caller *rbac.Caller, in Content) (article Article, err error) {
	defer func() { s.observe(OpCreate, err) }()
	if err := Authorize(caller, OpCreate, Article{}); err != nil {
		return Article{}, err
	}
	in, err = in.normalize()
	if err != nil {
		return Article{}, err
	}
	draft := Apply(OpCreate, Article{AuthorID: caller.UserID}, Change{Content: in, Now: s.now()})
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err := tx.Insert(ctx, draft)
		if err != nil {
			return err
		}
		article = created
		return nil
	})
	if err != nil {
		return Article{}, shared.Internal(err)
	}
	s.recordAudit(ctx, caller, OpCreate, article, map[string]any{"title": article.Title})
	return article, nil
}

// Update replaces the content of an article owned by the caller.
func (s *Service) Update(ctx context.Context, caller *rbac.Caller, id int64, in Content) (Article, error) {
	return s.transition(ctx, caller, id, OpUpdate, Change{Content: in})
}

// Delete removes an article owned by the caller, whatever its status.
func (s *Service) Delete(ctx context.Context, caller *rbac.Caller, id int64) error {
	_, err := s.transition(ctx, caller, id, OpDelete, Change{})
	return err
}

// Submit sends a draft or rejected article for approval.
func (s *Service) Submit(ctx context.Context, caller *rbac.Caller, id int64) (Article, error) {
	return s.transition(ctx, caller, id, OpSubmit, Change{})
}

// Approve accepts a pending article.
func (s *Service) Approve(ctx context.Context, caller *rbac.Caller, id int64) (Article, error) {
	return s.transition(ctx, caller, id, OpApprove, Change{})
}

// Reject declines a pending article with a reason.
func (s *Service) Reject(ctx context.Context, caller *rbac.Caller, id int64, reason string) (Article, error) {
	return s.transition(ctx, caller, id, OpReject, Change{Reason: reason})
}

// Publish makes an approved article public.
func (s *Service) Publish(ctx context.Context, caller *rbac.Caller, id int64) (Article, error) {
	return s.transition(ctx, caller, id, OpPublish, Change{})
}

// Unpublish hides a published article. Only the published flag changes.
func (s *Service) Unpublish(ctx context.Context, caller *rbac.Caller, id int64) (Article, error) {
	return s.transition(ctx, caller, id, OpUnpublish, Change{})
}

// transition runs one read-modify-write under a row lock. Checks run in the
// order caller, existence, authority, state, payload.
func (s *Service) transition(ctx context.Context, caller *rbac.Caller, id int64, op Operation, change Change) (result Article, err error) {
	defer func() { s.observe(op, err) }()
	if err := rbac.Authenticated(caller); err != nil {
		return Article{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := Authorize(caller, op, current); err != nil {
			return err
		}
		if err := CheckState(op, current); err != nil {
			return err
		}
		if err := validateChange(op, &change); err != nil {
			return err
		}
		if op == OpDelete {
			result = current
			return tx.Delete(ctx, id)
		}
		change.Now = s.now()
		next := Apply(op, current, change)
		if err := tx.Save(ctx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return Article{}, shared.Internal(err)
	}
	s.recordHistory(ctx, caller, op, result, change)
	s.recordAudit(ctx, caller, op, result, map[string]any{"status": string(result.Status), "published": result.Published})
	return result, nil
}

func validateChange(op Operation, change *Change) error {
	switch op {
	case OpUpdate:
		content, err := change.Content.normalize()
		if err != nil {
			return err
		}
		change.Content = content
	}
	return nil
}

// Get returns an article. Published articles are public; other articles are
// visible to the author and to editors.
func (s *Service) Get(ctx context.Context, caller *rbac.Caller, id int64) (Article, error) {
	article, err := s.repo.Get(ctx, id)
	if err != nil {
		return Article{}, shared.Internal(err)
	}
	if article.Published {
		return article, nil
	}
	if err := rbac.Authenticated(caller); err != nil {
		return Article{}, err
	}
	if caller.Is(article.AuthorID) ||
		caller.Authority.HasAny(rbac.PrivilegeApproveArticle, rbac.PrivilegePublish, rbac.PrivilegeDeleteAnyArticle) {
		return article, nil
	}
	return Article{}, fmt.Errorf("%w: article %d is not published", shared.ErrForbidden, id)
}

// History returns the editorial history of an article under the same
// visibility rule as Get.
func (s *Service) History(ctx context.Context, caller *rbac.Caller, id int64) ([]shared.ApprovalLog, error) {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return nil, err
	}
	if s.approvals == nil {
		return []shared.ApprovalLog{}, nil
	}
	logs, err := s.approvals.List(ctx, Module, id)
	if err != nil {
		return nil, shared.Internal(err)
	}
	if logs == nil {
		logs = []shared.ApprovalLog{}
	}
	return logs, nil
}

// ListPublished returns every article whose published flag is set.
func (s *Service) ListPublished(ctx context.Context) ([]Article, error) {
	items, err := s.repo.ListPublished(ctx)
	return items, shared.Internal(err)
}

// ListPendingApproval returns every article awaiting approval.
func (s *Service) ListPendingApproval(ctx context.Context) ([]Article, error) {
	items, err := s.repo.ListByStatus(ctx, StatusPendingApproval)
	return items, shared.Internal(err)
}

// ListMine returns the caller's own articles.
func (s *Service) ListMine(ctx context.Context, caller *rbac.Caller) ([]Article, error) {
	if err := rbac.Authenticated(caller); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByAuthor(ctx, caller.UserID)
	return items, shared.Internal(err)
}

func (s *Service) observe(op Operation, err error) {
	if s.observer != nil {
		s.observer.ObserveTransition(string(op), err)
	}
}

var historyActions = map[Operation]shared.ApprovalAction{
	OpSubmit:    shared.ApprovalSubmit,
	OpApprove:   shared.ApprovalApprove,
	OpReject:    shared.ApprovalReject,
	OpPublish:   shared.ApprovalPublish,
	OpUnpublish: shared.ApprovalUnpublish,
}

func (s *Service) recordHistory(ctx context.Context, caller *rbac.Caller, op Operation, a Article, change Change) {
	action, ok := historyActions[op]
	if !ok || s.approvals == nil {
		return
	}
	entry := shared.ApprovalLog{Module: Module, RefID: a.ID, ActorID: caller.UserID, Action: action, At: change.Now}
	if op == OpReject {
		entry.Note = change.Reason
	}
	if err := s.approvals.Record(ctx, entry); err != nil {
		s.logger.Warn("record article history", slog.Int64("article_id", a.ID), slog.String("op", string(op)), slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, caller *rbac.Caller, op Operation, a Article, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  caller.UserID,
		Action:   "ARTICLE_" + strings.ToUpper(string(op)),
		Entity:   Module,
		EntityID: strconv.FormatInt(a.ID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("record article audit", slog.Int64("article_id", a.ID), slog.Any("error", err))
	}
}
