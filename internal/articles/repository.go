package articles

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

type txRepo struct {
	tx pgx.Tx
}

const articleColumns = `id, author_id, title, content, image_url, audio_url, video_url,
status, rejection_reason, published, created_at, updated_at`

// WithTx wraps callback in repeatable-read transaction. A serialization
// failure means a concurrent transition won the row.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
	if db.IsSerializationFailure(err) {
		return fmt.Errorf("%w: article modified concurrently", shared.ErrConflictingState)
	}
	return err
}

// Get returns an article by id.
func (r *Repository) Get(ctx context.Context, id int64) (Article, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = $1`, id)
	return scanArticle(row, id)
}

// ListPublished returns articles with the published flag set, newest first.
func (r *Repository) ListPublished(ctx context.Context) ([]Article, error) {
	return r.list(ctx, `SELECT `+articleColumns+` FROM articles WHERE published ORDER BY created_at DESC, id DESC`)
}

// ListByStatus returns articles in the given status, oldest first.
func (r *Repository) ListByStatus(ctx context.Context, status Status) ([]Article, error) {
	return r.list(ctx, `SELECT `+articleColumns+` FROM articles WHERE status = $1 ORDER BY updated_at ASC, id ASC`, string(status))
}

// ListByAuthor returns the articles of one author, newest first.
func (r *Repository) ListByAuthor(ctx context.Context, authorID int64) ([]Article, error) {
	return r.list(ctx, `SELECT `+articleColumns+` FROM articles WHERE author_id = $1 ORDER BY created_at DESC, id DESC`, authorID)
}

func (r *Repository) list(ctx context.Context, sql string, args ...any) ([]Article, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Article{}
	for rows.Next() {
		a, err := scanArticle(rows, 0)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (t *txRepo) Insert(ctx context.Context, a Article) (Article, error) {
	row := t.tx.QueryRow(ctx, `INSERT INTO articles (author_id, title, content, image_url, audio_url, video_url,
status, rejection_reason, published, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING `+articleColumns,
		a.AuthorID, a.Title, a.Content, a.ImageURL, a.AudioURL, a.VideoURL,
		string(a.Status), a.RejectionReason, a.Published, a.CreatedAt, a.UpdatedAt)
	return scanArticle(row, 0)
}

func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (Article, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = $1 FOR UPDATE`, id)
	return scanArticle(row, id)
}

func (t *txRepo) Save(ctx context.Context, a Article) error {
	tag, err := t.tx.Exec(ctx, `UPDATE articles SET title = $2, content = $3, image_url = $4, audio_url = $5,
video_url = $6, status = $7, rejection_reason = $8, published = $9, updated_at = $10
WHERE id = $1`,
		a.ID, a.Title, a.Content, a.ImageURL, a.AudioURL, a.VideoURL,
		string(a.Status), a.RejectionReason, a.Published, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: article %d", shared.ErrNotFound, a.ID)
	}
	return nil
}

func (t *txRepo) Delete(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: article %d", shared.ErrNotFound, id)
	}
	return nil
}

func scanArticle(row pgx.Row, id int64) (Article, error) {
	var (
		a      Article
		status string
	)
	err := row.Scan(&a.ID, &a.AuthorID, &a.Title, &a.Content, &a.ImageURL, &a.AudioURL, &a.VideoURL,
		&status, &a.RejectionReason, &a.Published, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Article{}, fmt.Errorf("%w: article %d", shared.ErrNotFound, id)
		}
		return Article{}, err
	}
	a.Status = Status(status)
	return a, nil
}

var _ RepositoryPort = (*Repository)(nil)
