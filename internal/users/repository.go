package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/editorialhouse/newsroom/internal/platform/db"
	"github.com/editorialhouse/newsroom/internal/rbac"
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

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const userSelect = `SELECT u.id, u.username, u.full_name, u.enabled, u.session_valid_until, u.created_at, u.updated_at,
       COALESCE((SELECT array_agg(r.name ORDER BY r.name) FROM user_roles ur JOIN roles r ON r.id = ur.role_id
                 WHERE ur.user_id = u.id), '{}'),
       COALESCE((SELECT array_agg(p.name ORDER BY p.name) FROM user_privileges up JOIN privileges p ON p.id = up.privilege_id
                 WHERE up.user_id = u.id), '{}')
FROM users u`

// ListUsers returns all users ordered by id.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, userSelect+` ORDER BY u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []User{}
	for rows.Next() {
		user, err := scanUser(rows, 0)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// GetUser returns a user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	return getUser(ctx, r.pool, id)
}

// ReplaceRoles swaps the role assignments of a user.
func (r *Repository) ReplaceRoles(ctx context.Context, id int64, roles []rbac.RoleName) (User, error) {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	return r.replace(ctx, id,
		`DELETE FROM user_roles WHERE user_id = $1`,
		`INSERT INTO user_roles (user_id, role_id) SELECT $1, id FROM roles WHERE name = ANY($2)`,
		names)
}

// ReplacePrivileges swaps the custom privileges of a user.
func (r *Repository) ReplacePrivileges(ctx context.Context, id int64, privileges []rbac.Privilege) (User, error) {
	names := make([]string, 0, len(privileges))
	for _, p := range privileges {
		names = append(names, string(p))
	}
	return r.replace(ctx, id,
		`DELETE FROM user_privileges WHERE user_id = $1`,
		`INSERT INTO user_privileges (user_id, privilege_id) SELECT $1, id FROM privileges WHERE name = ANY($2)`,
		names)
}

func (r *Repository) replace(ctx context.Context, id int64, deleteSQL, insertSQL string, names []string) (User, error) {
	var user User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked int64
		if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
			}
			return err
		}
		if _, err := tx.Exec(ctx, deleteSQL, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, insertSQL, id, names)
		if err != nil {
			return err
		}
		if int(tag.RowsAffected()) != len(names) {
			return fmt.Errorf("users: catalog missing some of %v", names)
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET updated_at = NOW() WHERE id = $1`, id); err != nil {
			return err
		}
		user, err = getUser(ctx, tx, id)
		return err
	})
	return user, err
}

// SetEnabled toggles the enabled flag of a user.
func (r *Repository) SetEnabled(ctx context.Context, id int64, enabled bool) (User, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET enabled = $2, updated_at = NOW() WHERE id = $1`, id, enabled)
	if err != nil {
		return User{}, err
	}
	if tag.RowsAffected() == 0 {
		return User{}, fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	return getUser(ctx, r.pool, id)
}

func getUser(ctx context.Context, q querier, id int64) (User, error) {
	return scanUser(q.QueryRow(ctx, userSelect+` WHERE u.id = $1`, id), id)
}

func scanUser(row pgx.Row, id int64) (User, error) {
	var (
		u          User
		roles      []string
		privileges []string
	)
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Enabled, &u.SessionValidUntil, &u.CreatedAt, &u.UpdatedAt,
		&roles, &privileges)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
		}
		return User{}, err
	}
	u.Roles = make([]rbac.RoleName, 0, len(roles))
	for _, name := range roles {
		u.Roles = append(u.Roles, rbac.RoleName(name))
	}
	u.CustomPrivileges = make([]rbac.Privilege, 0, len(privileges))
	for _, name := range privileges {
		u.CustomPrivileges = append(u.CustomPrivileges, rbac.Privilege(name))
	}
	return u, nil
}

var _ RepositoryPort = (*Repository)(nil)
