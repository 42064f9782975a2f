package interactions

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/editorialhouse/newsroom/internal/articles"
	"github.com/editorialhouse/newsroom/internal/rbac"
	"github.com/editorialhouse/newsroom/internal/shared"
)

// ArticleReader loads the article an interaction targets.
type ArticleReader interface {
	Get(ctx context.Context, id int64) (articles.Article, error)
}

// RepositoryPort describes persistence used by Service. InsertRating must
// report a duplicate (article, user) pair as ErrConflictingState.
type RepositoryPort interface {
	InsertComment(ctx context.Context, c Comment) (Comment, error)
	ListComments(ctx context.Context, articleID int64) ([]Comment, error)
	FindRating(ctx context.Context, articleID, userID int64) (Rating, bool, error)
	InsertRating(ctx context.Context, r Rating) (Rating, error)
	SummarizeRatings(ctx context.Context, articleID int64) (RatingSummary, error)
	InsertReport(ctx context.Context, r Report) (Report, error)
	GetReport(ctx context.Context, id int64) (Report, error)
	SaveReview(ctx context.Context, r Report) (Report, error)
	ListPendingReports(ctx context.Context) ([]Report, error)
}

// SummaryCache stores rating summaries between requests.
type SummaryCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// Service guards reader interactions with articles.
type Service struct {
	articles ArticleReader
	repo     RepositoryPort
	cache    SummaryCache
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the interactions service. cache and logger may be nil.
func NewService(articles ArticleReader, repo RepositoryPort, cache SummaryCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = nopCache{}
	}
	return &Service{
		articles: articles,
		repo:     repo,
		cache:    cache,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// AddComment attaches a comment by the caller to a published article.
func (s *Service) AddComment(ctx context.Context, caller *rbac.Caller, articleID int64, in CommentInput) (Comment, error) {
	if err := rbac.Authenticated(caller); err != nil {
		return Comment{}, err
	}
	if _, err := s.publishedArticle(ctx, articleID, "comment on"); err != nil {
		return Comment{}, err
	}
	content, err := requireText("content", in.Content)
	if err != nil {
		return Comment{}, err
	}
	comment, err := s.repo.InsertComment(ctx, Comment{
		ArticleID: articleID,
		UserID:    caller.UserID,
		Content:   content,
		CreatedAt: s.now(),
	})
	return comment, shared.Internal(err)
}

// AddRating records the caller's single rating of a published article. An
// existing rating wins over an invalid score.
func (s *Service) AddRating(ctx context.Context, caller *rbac.Caller, articleID int64, in RatingInput) (Rating, error) {
	if err := rbac.Authenticated(caller); err != nil {
		return Rating{}, err
	}
	if _, err := s.publishedArticle(ctx, articleID, "rate"); err != nil {
		return Rating{}, err
	}
	_, found, err := s.repo.FindRating(ctx, articleID, caller.UserID)
	if err != nil {
		return Rating{}, shared.Internal(err)
	}
	if found {
		return Rating{}, fmt.Errorf("%w: article %d already rated by user %d", shared.ErrConflictingState, articleID, caller.UserID)
	}
	if err := validScore(in.Score); err != nil {
		return Rating{}, err
	}
	rating, err := s.repo.InsertRating(ctx, Rating{
		ArticleID: articleID,
		UserID:    caller.UserID,
		Score:     in.Score,
		CreatedAt: s.now(),
	})
	if err != nil {
		return Rating{}, shared.Internal(err)
	}
	if err := s.cache.Delete(ctx, summaryKey(articleID)); err != nil {
		s.logger.Warn("evict rating summary", slog.Int64("article_id", articleID), slog.Any("error", err))
	}
	return rating, nil
}

// Report files an abuse report against a published article.
func (s *Service) Report(ctx context.Context, caller *rbac.Caller, articleID int64, in ReportInput) (Report, error) {
	if err := rbac.Authenticated(caller); err != nil {
		return Report{}, err
	}
	article, err := s.articles.Get(ctx, articleID)
	if err != nil {
		return Report{}, shared.Internal(err)
	}
	if err := rbac.Require(caller, rbac.PrivilegeReportNews); err != nil {
		return Report{}, err
	}
	if err := requirePublished(article, "report"); err != nil {
		return Report{}, err
	}
	reason, err := requireText("reason", in.Reason)
	if err != nil {
		return Report{}, err
	}
	report, err := s.repo.InsertReport(ctx, Report{
		ArticleID:  articleID,
		ReporterID: caller.UserID,
		Reason:     reason,
		ReportedAt: s.now(),
	})
	return report, shared.Internal(err)
}

// ReviewReport marks a report reviewed. Reviewing an already reviewed report
// overwrites the previous outcome.
func (s *Service) ReviewReport(ctx context.Context, caller *rbac.Caller, reportID int64, actionTaken bool) (Report, error) {
	if err := rbac.Authenticated(caller); err != nil {
		return Report{}, err
	}
	report, err := s.repo.GetReport(ctx, reportID)
	if err != nil {
		return Report{}, shared.Internal(err)
	}
	if err := rbac.Require(caller, rbac.PrivilegeReviewReport); err != nil {
		return Report{}, err
	}
	now := s.now()
	reviewer := caller.UserID
	report.Reviewed = true
	report.ActionTaken = actionTaken
	report.ReviewedBy = &reviewer
	report.ReviewedAt = &now
	saved, err := s.repo.SaveReview(ctx, report)
	if err != nil {
		return Report{}, shared.Internal(err)
	}
	s.logger.Info("report reviewed",
		slog.Int64("report_id", saved.ID),
		slog.Int64("reviewer_id", reviewer),
		slog.Bool("action_taken", actionTaken))
	return saved, nil
}

// ListPendingReports returns every unreviewed report.
func (s *Service) ListPendingReports(ctx context.Context, caller *rbac.Caller) ([]Report, error) {
	if err := rbac.Require(caller, rbac.PrivilegeReviewReport); err != nil {
		return nil, err
	}
	items, err := s.repo.ListPendingReports(ctx)
	return items, shared.Internal(err)
}

// ListComments returns the comments of a published article, oldest first.
func (s *Service) ListComments(ctx context.Context, articleID int64) ([]Comment, error) {
	if _, err := s.publishedArticle(ctx, articleID, "list comments of"); err != nil {
		return nil, err
	}
	items, err := s.repo.ListComments(ctx, articleID)
	return items, shared.Internal(err)
}

// RatingSummary returns the rating count and average of a published article.
func (s *Service) RatingSummary(ctx context.Context, articleID int64) (RatingSummary, error) {
	if _, err := s.publishedArticle(ctx, articleID, "summarize ratings of"); err != nil {
		return RatingSummary{}, err
	}
	key := summaryKey(articleID)
	var cached RatingSummary
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("read rating summary cache", slog.Int64("article_id", articleID), slog.Any("error", err))
	}
	if hit {
		return cached, nil
	}
	summary, err := s.repo.SummarizeRatings(ctx, articleID)
	if err != nil {
		return RatingSummary{}, shared.Internal(err)
	}
	summary.ArticleID = articleID
	summary.Average = math.Round(summary.Average*100) / 100
	if err := s.cache.Set(ctx, key, summary); err != nil {
		s.logger.Warn("write rating summary cache", slog.Int64("article_id", articleID), slog.Any("error", err))
	}
	return summary, nil
}

func (s *Service) publishedArticle(ctx context.Context, id int64, verb string) (articles.Article, error) {
	article, err := s.articles.Get(ctx, id)
	if err != nil {
		return articles.Article{}, shared.Internal(err)
	}
	if err := requirePublished(article, verb); err != nil {
		return articles.Article{}, err
	}
	return article, nil
}

func requirePublished(a articles.Article, verb string) error {
	if !a.Published {
		return fmt.Errorf("%w: cannot %s unpublished article %d", shared.ErrConflictingState, verb, a.ID)
	}
	return nil
}

func summaryKey(articleID int64) string {
	return strconv.FormatInt(articleID, 10)
}

type nopCache struct{}

func (nopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (nopCache) Set(context.Context, string, any) error         { return nil }
func (nopCache) Delete(context.Context, string) error           { return nil }
