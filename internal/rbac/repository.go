package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/editorialhouse/newsroom/internal/platform/db"
	"github.com/editorialhouse/newsroom/internal/shared"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository persists roles, privileges and their grants in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const rolesWithPrivilegesSQL = `SELECT r.id, r.name,
       COALESCE(array_agg(p.name ORDER BY p.name) FILTER (WHERE p.name IS NOT NULL), '{}')
FROM roles r
LEFT JOIN role_privileges rp ON rp.role_id = r.id
LEFT JOIN privileges p ON p.id = rp.privilege_id`

// LoadSubject loads every role (with its privileges) and custom privilege of a user.
func (r *Repository) LoadSubject(ctx context.Context, userID int64) (Subject, error) {
	return LoadSubject(ctx, r.pool, userID)
}

// LoadSubject loads a user's grants using q, allowing callers to reuse a transaction.
func LoadSubject(ctx context.Context, q Querier, userID int64) (Subject, error) {
	rows, err := q.Query(ctx, rolesWithPrivilegesSQL+`
JOIN user_roles ur ON ur.role_id = r.id
WHERE ur.user_id = $1
GROUP BY r.id, r.name
ORDER BY r.name`, userID)
	if err != nil {
		return Subject{}, fmt.Errorf("rbac: load roles: %w", err)
	}
	roles, err := scanRoles(rows)
	if err != nil {
		return Subject{}, err
	}
	custom, err := queryPrivileges(ctx, q, `SELECT p.name FROM user_privileges up
JOIN privileges p ON p.id = up.privilege_id
WHERE up.user_id = $1 ORDER BY p.name`, userID)
	if err != nil {
		return Subject{}, err
	}
	return Subject{Roles: roles, CustomPrivileges: custom}, nil
}

// ListRoles returns all roles with their privileges ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, rolesWithPrivilegesSQL+`
GROUP BY r.id, r.name
ORDER BY r.name`)
	if err != nil {
		return nil, fmt.Errorf("rbac: list roles: %w", err)
	}
	return scanRoles(rows)
}

// GetRole fetches a role by name.
func (r *Repository) GetRole(ctx context.Context, name RoleName) (Role, error) {
	rows, err := r.pool.Query(ctx, rolesWithPrivilegesSQL+`
WHERE r.name = $1
GROUP BY r.id, r.name`, string(name))
	if err != nil {
		return Role{}, fmt.Errorf("rbac: get role: %w", err)
	}
	roles, err := scanRoles(rows)
	if err != nil {
		return Role{}, err
	}
	if len(roles) == 0 {
		return Role{}, fmt.Errorf("%w: role %s", shared.ErrNotFound, name)
	}
	return roles[0], nil
}

// ListPrivileges returns every stored privilege ordered by name.
func (r *Repository) ListPrivileges(ctx context.Context) ([]Privilege, error) {
	return queryPrivileges(ctx, r.pool, `SELECT name FROM privileges ORDER BY name`)
}

// ReplaceRolePrivileges swaps the privilege bundle of a role atomically.
func (r *Repository) ReplaceRolePrivileges(ctx context.Context, name RoleName, privileges []Privilege) (Role, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var roleID int64
		if err := tx.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1 FOR UPDATE`, string(name)).Scan(&roleID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: role %s", shared.ErrNotFound, name)
			}
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_privileges WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO role_privileges (role_id, privilege_id)
SELECT $1, id FROM privileges WHERE name = ANY($2)`, roleID, privilegeNames(privileges))
		return err
	})
	if err != nil {
		return Role{}, err
	}
	return r.GetRole(ctx, name)
}

// EnsureCatalog upserts every privilege and role, then grants each role its
// default bundle. Existing grants are left untouched.
func (r *Repository) EnsureCatalog(ctx context.Context) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, p := range Privileges() {
			if _, err := tx.Exec(ctx, `INSERT INTO privileges (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, string(p)); err != nil {
				return fmt.Errorf("rbac: ensure privilege %s: %w", p, err)
			}
		}
		for _, role := range RoleNames() {
			if _, err := tx.Exec(ctx, `INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, string(role)); err != nil {
				return fmt.Errorf("rbac: ensure role %s: %w", role, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO role_privileges (role_id, privilege_id)
SELECT r.id, p.id FROM roles r, privileges p
WHERE r.name = $1 AND p.name = ANY($2)
ON CONFLICT DO NOTHING`, string(role), privilegeNames(DefaultPrivileges(role))); err != nil {
				return fmt.Errorf("rbac: grant defaults to %s: %w", role, err)
			}
		}
		return nil
	})
}

func scanRoles(rows pgx.Rows) ([]Role, error) {
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var (
			role  Role
			name  string
			names []string
		)
		if err := rows.Scan(&role.ID, &name, &names); err != nil {
			return nil, fmt.Errorf("rbac: scan role: %w", err)
		}
		role.Name = RoleName(name)
		role.Privileges = toPrivileges(names)
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func queryPrivileges(ctx context.Context, q Querier, sql string, args ...any) ([]Privilege, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("rbac: query privileges: %w", err)
	}
	defer rows.Close()
	var out []Privilege
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("rbac: scan privilege: %w", err)
		}
		out = append(out, Privilege(name))
	}
	return out, rows.Err()
}

func toPrivileges(names []string) []Privilege {
	out := make([]Privilege, 0, len(names))
	for _, n := range names {
		out = append(out, Privilege(n))
	}
	return out
}

func privilegeNames(ps []Privilege) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, string(p))
	}
	return out
}
