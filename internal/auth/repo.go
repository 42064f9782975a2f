package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/editorialhouse/newsroom/internal/platform/db"
	"github.com/editorialhouse/newsroom/internal/rbac"
	"github.com/editorialhouse/newsroom/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, user User, roles []rbac.RoleName) (*User, error)
	ExtendSession(ctx context.Context, userID int64, until time.Time) error
	LoadSubject(ctx context.Context, userID int64) (rbac.Subject, error)
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	SessionActive(ctx context.Context, id string, userID int64, now time.Time) (bool, error)
	DeleteSession(ctx context.Context, id string) error
	PruneSessions(ctx context.Context, before time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, username, password_hash, full_name, credentials, profile_picture_url,
enabled, session_valid_until, created_at, updated_at`

// FindByUsername fetches a user by normalized username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row, username)
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row, fmt.Sprintf("#%d", id))
}

// Create inserts the user and its role assignments in one transaction.
func (r *PGRepository) Create(ctx context.Context, user User, roles []rbac.RoleName) (*User, error) {
	var created *User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `INSERT INTO users (username, password_hash, full_name, credentials, profile_picture_url,
enabled, session_valid_until, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
RETURNING `+userColumns,
			user.Username, user.PasswordHash, user.FullName, user.Credentials, user.ProfilePictureURL,
			user.Enabled, user.SessionValidUntil, user.CreatedAt)
		u, err := scanUser(row, user.Username)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(roles))
		for _, role := range roles {
			names = append(names, string(role))
		}
		tag, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id)
SELECT $1, id FROM roles WHERE name = ANY($2)`, u.ID, names)
		if err != nil {
			return err
		}
		if int(tag.RowsAffected()) != len(names) {
			return fmt.Errorf("auth: roles %v not seeded", names)
		}
		created = u
		return nil
	})
	if db.IsUniqueViolation(err) {
		return nil, fmt.Errorf("%w: username %q already taken", shared.ErrConflictingState, user.Username)
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ExtendSession moves the session validity deadline of a user.
func (r *PGRepository) ExtendSession(ctx context.Context, userID int64, until time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET session_valid_until = $2 WHERE id = $1`, userID, until)
	return err
}

// LoadSubject loads the roles and custom privileges of a user.
func (r *PGRepository) LoadSubject(ctx context.Context, userID int64) (rbac.Subject, error) {
	return rbac.LoadSubject(ctx, r.pool, userID)
}

// CreateSession persists a new login session for auditing and revocation.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO login_sessions (id, user_id, created_at, expires_at, ip, user_agent)
VALUES ($1, $2, NOW(), $3, NULLIF($4, ''), NULLIF($5, ''))`, id, userID, expiresAt.UTC(), ip, ua)
	return err
}

// SessionActive reports whether the login session exists, belongs to the
// user and has not expired.
func (r *PGRepository) SessionActive(ctx context.Context, id string, userID int64, now time.Time) (bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM login_sessions WHERE id = $1 AND user_id = $2 AND expires_at > $3)`, id, userID, now).Scan(&active)
	return active, err
}

// DeleteSession removes a login session.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM login_sessions WHERE id = $1`, id)
	return err
}

// PruneSessions deletes login sessions that expired before the cutoff.
func (r *PGRepository) PruneSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM login_sessions WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanUser(row pgx.Row, ref string) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Credentials, &u.ProfilePictureURL,
		&u.Enabled, &u.SessionValidUntil, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, ref)
		}
		return nil, err
	}
	return &u, nil
}

var _ Repository = (*PGRepository)(nil)
