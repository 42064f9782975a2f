package interactions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/editorialhouse/newsroom/internal/platform/db"
	"github.com/editorialhouse/newsroom/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const reportColumns = `id, article_id, reporter_id, reason, reported_at, reviewed, action_taken, reviewed_by, reviewed_at`

// InsertComment stores a comment.
func (r *Repository) InsertComment(ctx context.Context, c Comment) (Comment, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO comments (article_id, user_id, content, created_at, moderated)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, c.ArticleID, c.UserID, c.Content, c.CreatedAt, c.Moderated).Scan(&c.ID)
	return c, err
}

// ListComments returns the comments of an article, oldest first.
func (r *Repository) ListComments(ctx context.Context, articleID int64) ([]Comment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, article_id, user_id, content, created_at, moderated
FROM comments WHERE article_id = $1 ORDER BY created_at ASC, id ASC`, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Comment{}
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.UserID, &c.Content, &c.CreatedAt, &c.Moderated); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// FindRating looks up the rating of a user for an article.
func (r *Repository) FindRating(ctx context.Context, articleID, userID int64) (Rating, bool, error) {
	var rating Rating
	err := r.pool.QueryRow(ctx, `SELECT id, article_id, user_id, score, created_at
FROM ratings WHERE article_id = $1 AND user_id = $2`, articleID, userID).
		Scan(&rating.ID, &rating.ArticleID, &rating.UserID, &rating.Score, &rating.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rating{}, false, nil
	}
	if err != nil {
		return Rating{}, false, err
	}
	return rating, true, nil
}

// InsertRating stores a rating. The unique (article_id, user_id) constraint
// closes the window between FindRating and the insert.
func (r *Repository) InsertRating(ctx context.Context, rating Rating) (Rating, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO ratings (article_id, user_id, score, created_at)
VALUES ($1, $2, $3, $4) RETURNING id`, rating.ArticleID, rating.UserID, rating.Score, rating.CreatedAt).Scan(&rating.ID)
	if db.IsUniqueViolation(err) {
		return Rating{}, fmt.Errorf("%w: article %d already rated by user %d", shared.ErrConflictingState, rating.ArticleID, rating.UserID)
	}
	return rating, err
}

// SummarizeRatings aggregates the ratings of an article.
func (r *Repository) SummarizeRatings(ctx context.Context, articleID int64) (RatingSummary, error) {
	summary := RatingSummary{ArticleID: articleID}
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(AVG(score), 0)::float8
FROM ratings WHERE article_id = $1`, articleID).Scan(&summary.Count, &summary.Average)
	return summary, err
}

// InsertReport stores a report.
func (r *Repository) InsertReport(ctx context.Context, rep Report) (Report, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO reports (article_id, reporter_id, reason, reported_at)
VALUES ($1, $2, $3, $4) RETURNING `+reportColumns, rep.ArticleID, rep.ReporterID, rep.Reason, rep.ReportedAt)
	return scanReport(row, 0)
}

// GetReport returns a report by id.
func (r *Repository) GetReport(ctx context.Context, id int64) (Report, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
	return scanReport(row, id)
}

// SaveReview writes the review outcome of a report.
func (r *Repository) SaveReview(ctx context.Context, rep Report) (Report, error) {
	row := r.pool.QueryRow(ctx, `UPDATE reports SET reviewed = $2, action_taken = $3, reviewed_by = $4, reviewed_at = $5
WHERE id = $1 RETURNING `+reportColumns, rep.ID, rep.Reviewed, rep.ActionTaken, rep.ReviewedBy, rep.ReviewedAt)
	return scanReport(row, rep.ID)
}

// ListPendingReports returns unreviewed reports, oldest first.
func (r *Repository) ListPendingReports(ctx context.Context) ([]Report, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+reportColumns+` FROM reports WHERE NOT reviewed ORDER BY reported_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Report{}
	for rows.Next() {
		rep, err := scanReport(rows, 0)
		if err != nil {
			return nil, err
		}
		items = append(items, rep)
	}
	return items, rows.Err()
}

// CountPendingReports returns the size of the review backlog.
func (r *Repository) CountPendingReports(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reports WHERE NOT reviewed`).Scan(&n)
	return n, err
}

func scanReport(row pgx.Row, id int64) (Report, error) {
	var rep Report
	err := row.Scan(&rep.ID, &rep.ArticleID, &rep.ReporterID, &rep.Reason, &rep.ReportedAt,
		&rep.Reviewed, &rep.ActionTaken, &rep.ReviewedBy, &rep.ReviewedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Report{}, fmt.Errorf("%w: report %d", shared.ErrNotFound, id)
	}
	return rep, err
}

var _ RepositoryPort = (*Repository)(nil)
