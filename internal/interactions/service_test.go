package interactions

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/editorialhouse/newsroom/internal/articles"
	"github.com/editorialhouse/newsroom/internal/platform/cache"
	"github.com/editorialhouse/newsroom/internal/rbac"
	"github.com/editorialhouse/newsroom/internal/shared"
)

type stubArticles map[int64]articles.Article

func (s stubArticles) Get(ctx context.Context, id int64) (articles.Article, error) {
	a, ok := s[id]
	if !ok {
		return articles.Article{}, fmt.Errorf("%w: article %d", shared.ErrNotFound, id)
	}
	return a, nil
}

type memoryRepo struct {
	mu        sync.Mutex
	nextID    int64
	comments  []Comment
	ratings   []Rating
	reports   map[int64]Report
	summaries int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{reports: make(map[int64]Report)}
}

func (m *memoryRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryRepo) InsertComment(ctx context.Context, c Comment) (Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	m.comments = append(m.comments, c)
	return c, nil
}

func (m *memoryRepo) ListComments(ctx context.Context, articleID int64) ([]Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Comment{}
	for _, c := range m.comments {
		if c.ArticleID == articleID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryRepo) FindRating(ctx context.Context, articleID, userID int64) (Rating, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.ratings {
		if r.ArticleID == articleID && r.UserID == userID {
			return r, true, nil
		}
	}
	return Rating{}, false, nil
}

func (m *memoryRepo) InsertRating(ctx context.Context, r Rating) (Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.ratings {
		if existing.ArticleID == r.ArticleID && existing.UserID == r.UserID {
			return Rating{}, fmt.Errorf("%w: duplicate rating", shared.ErrConflictingState)
		}
	}
	r.ID = m.id()
	m.ratings = append(m.ratings, r)
	return r, nil
}

func (m *memoryRepo) SummarizeRatings(ctx context.Context, articleID int64) (RatingSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries++
	summary := RatingSummary{ArticleID: articleID}
	total := 0
	for _, r := range m.ratings {
		if r.ArticleID == articleID {
			summary.Count++
			total += r.Score
		}
	}
	if summary.Count > 0 {
		summary.Average = float64(total) / float64(summary.Count)
	}
	return summary, nil
}

func (m *memoryRepo) InsertReport(ctx context.Context, r Report) (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.id()
	m.reports[r.ID] = r
	return r, nil
}

func (m *memoryRepo) GetReport(ctx context.Context, id int64) (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return Report{}, fmt.Errorf("%w: report %d", shared.ErrNotFound, id)
	}
	return r, nil
}

func (m *memoryRepo) SaveReview(ctx context.Context, r Report) (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.ID] = r
	return r, nil
}

func (m *memoryRepo) ListPendingReports(ctx context.Context) ([]Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Report{}
	for id := int64(1); id <= m.nextID; id++ {
		if r, ok := m.reports[id]; ok && !r.Reviewed {
			out = append(out, r)
		}
	}
	return out, nil
}

const (
	publishedID   int64 = 1
	draftID       int64 = 2
	unpublishedID int64 = 3
)

var now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func fixtureArticles() stubArticles {
	return stubArticles{
		publishedID:   {ID: publishedID, AuthorID: 10, Status: articles.StatusPublished, Published: true},
		draftID:       {ID: draftID, AuthorID: 10, Status: articles.StatusDraft},
		unpublishedID: {ID: unpublishedID, AuthorID: 10, Status: articles.StatusPublished, Published: false},
	}
}

func newTestService(t *testing.T, c SummaryCache) (*Service, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	svc := NewService(fixtureArticles(), repo, c, nil).WithNow(func() time.Time { return now })
	return svc, repo
}

func callerWithRole(id int64, role rbac.RoleName, custom ...rbac.Privilege) *rbac.Caller {
	return rbac.NewCaller(id, fmt.Sprintf("user%d", id), rbac.Subject{
		Roles:            []rbac.Role{{Name: role, Privileges: rbac.DefaultPrivileges(role)}},
		CustomPrivileges: custom,
	})
}

var (
	reader     = callerWithRole(20, rbac.RoleUser)
	clerk      = callerWithRole(21, rbac.RoleClerk)
	supervisor = callerWithRole(22, rbac.RoleSupervisor)
)

func TestScenarioRatingScoreAndDuplicate(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.AddRating(ctx, reader, publishedID, RatingInput{Score: 6})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	_, err = svc.AddRating(ctx, reader, publishedID, RatingInput{Score: 0})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	rating, err := svc.AddRating(ctx, reader, publishedID, RatingInput{Score: 3})
	require.NoError(t, err)
	require.Equal(t, 3, rating.Score)
	require.Equal(t, reader.UserID, rating.UserID)
	require.Equal(t, now, rating.CreatedAt)

	for _, score := range []int{3, 1, 5, 6, -1} {
		_, err = svc.AddRating(ctx, reader, publishedID, RatingInput{Score: score})
		require.ErrorIs(t, err, shared.ErrConflictingState, "score %d", score)
	}
	require.Len(t, repo.ratings, 1)

	_, err = svc.AddRating(ctx, clerk, publishedID, RatingInput{Score: MaxScore})
	require.NoError(t, err)
	_, err = svc.AddRating(ctx, supervisor, publishedID, RatingInput{Score: MinScore})
	require.NoError(t, err)
}

func TestInteractionsRequirePublishedFlag(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for _, id := range []int64{draftID, unpublishedID} {
		_, err := svc.AddComment(ctx, reader, id, CommentInput{Content: "hi"})
		require.ErrorIs(t, err, shared.ErrConflictingState)
		_, err = svc.AddRating(ctx, reader, id, RatingInput{Score: 3})
		require.ErrorIs(t, err, shared.ErrConflictingState)
		_, err = svc.Report(ctx, reader, id, ReportInput{Reason: "spam"})
		require.ErrorIs(t, err, shared.ErrConflictingState)
		_, err = svc.ListComments(ctx, id)
		require.ErrorIs(t, err, shared.ErrConflictingState)
	}

	_, err := svc.AddComment(ctx, reader, 999, CommentInput{Content: "hi"})
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.AddComment(ctx, nil, publishedID, CommentInput{Content: "hi"})
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestCommentsAreListedPerArticle(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.AddComment(ctx, reader, publishedID, CommentInput{Content: "  first  "})
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, clerk, publishedID, CommentInput{Content: "second"})
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, clerk, publishedID, CommentInput{Content: "   "})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	items, err := svc.ListComments(ctx, publishedID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "first", items[0].Content)
	require.False(t, items[0].Moderated)
}

func TestReportRequiresReportNews(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	// forbidden wins over the unpublished state
	_, err := svc.Report(ctx, clerk, draftID, ReportInput{Reason: "spam"})
	require.ErrorIs(t, err, shared.ErrForbidden)

	report, err := svc.Report(ctx, reader, publishedID, ReportInput{Reason: "misleading headline"})
	require.NoError(t, err)
	require.False(t, report.Reviewed)
	require.Equal(t, reader.UserID, report.ReporterID)
	require.Equal(t, now, report.ReportedAt)

	_, err = svc.Report(ctx, reader, publishedID, ReportInput{Reason: " "})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestReviewReport(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	report, err := svc.Report(ctx, reader, publishedID, ReportInput{Reason: "spam"})
	require.NoError(t, err)

	_, err = svc.ReviewReport(ctx, nil, report.ID, true)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
	_, err = svc.ReviewReport(ctx, supervisor, 999, true)
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.ReviewReport(ctx, reader, report.ID, true)
	require.ErrorIs(t, err, shared.ErrForbidden)

	pending, err := svc.ListPendingReports(ctx, supervisor)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	reviewed, err := svc.ReviewReport(ctx, supervisor, report.ID, true)
	require.NoError(t, err)
	require.True(t, reviewed.Reviewed)
	require.True(t, reviewed.ActionTaken)
	require.Equal(t, supervisor.UserID, *reviewed.ReviewedBy)

	// re-review is accepted and overwrites the outcome
	promoted := callerWithRole(30, rbac.RoleClerk, rbac.PrivilegeReviewReport)
	again, err := svc.ReviewReport(ctx, promoted, report.ID, false)
	require.NoError(t, err)
	require.True(t, again.Reviewed)
	require.False(t, again.ActionTaken)
	require.Equal(t, promoted.UserID, *again.ReviewedBy)

	pending, err = svc.ListPendingReports(ctx, supervisor)
	require.NoError(t, err)
	require.Empty(t, pending)

	_, err = svc.ListPendingReports(ctx, reader)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestRatingSummaryIsCachedAndEvicted(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc, repo := newTestService(t, cache.NewJSONCache(client, "rating-summary:", time.Minute))
	ctx := context.Background()

	_, err := svc.AddRating(ctx, reader, publishedID, RatingInput{Score: 4})
	require.NoError(t, err)
	_, err = svc.AddRating(ctx, clerk, publishedID, RatingInput{Score: 5})
	require.NoError(t, err)

	summary, err := svc.RatingSummary(ctx, publishedID)
	require.NoError(t, err)
	require.Equal(t, int64(2), summary.Count)
	require.InDelta(t, 4.5, summary.Average, 0.001)
	require.True(t, mr.Exists("rating-summary:1"))

	_, err = svc.RatingSummary(ctx, publishedID)
	require.NoError(t, err)
	require.Equal(t, 1, repo.summaries)

	_, err = svc.AddRating(ctx, supervisor, publishedID, RatingInput{Score: 3})
	require.NoError(t, err)
	require.False(t, mr.Exists("rating-summary:1"))

	summary, err = svc.RatingSummary(ctx, publishedID)
	require.NoError(t, err)
	require.Equal(t, int64(3), summary.Count)
	require.InDelta(t, 4.0, summary.Average, 0.001)
	require.Equal(t, 2, repo.summaries)
}

func TestConcurrentRatingsKeepOnePerUser(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.AddRating(ctx, reader, publishedID, RatingInput{Score: 2})
		}()
	}
	wg.Wait()
	require.Len(t, repo.ratings, 1)
}
