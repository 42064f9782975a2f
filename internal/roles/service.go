package roles

import (
	"context"
	"log/slog"

	"github.com/editorialhouse/newsroom/internal/rbac"
	"github.com/editorialhouse/newsroom/internal/shared"
)

// RepositoryPort defines data access methods for roles. *rbac.Repository
// satisfies it.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]rbac.Role, error)
	GetRole(ctx context.Context, name rbac.RoleName) (rbac.Role, error)
	ListPrivileges(ctx context.Context) ([]rbac.Privilege, error)
	ReplaceRolePrivileges(ctx context.Context, name rbac.RoleName, privileges []rbac.Privilege) (rbac.Role, error)
}

// Service handles role administration.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ListRoles returns all roles with their privileges.
func (s *Service) ListRoles(ctx context.Context, caller *rbac.Caller) ([]rbac.Role, error) {
	if err := rbac.Require(caller, rbac.PrivilegeManageUsers); err != nil {
		return nil, err
	}
	items, err := s.repo.ListRoles(ctx)
	return items, shared.Internal(err)
}

// ListPrivileges returns the privilege catalog.
func (s *Service) ListPrivileges(ctx context.Context, caller *rbac.Caller) ([]rbac.Privilege, error) {
	if err := rbac.Require(caller, rbac.PrivilegeManageUsers); err != nil {
		return nil, err
	}
	items, err := s.repo.ListPrivileges(ctx)
	return items, shared.Internal(err)
}

// ReplacePrivileges swaps the privilege bundle of a role. Users holding the
// role see the change on their next request. Callers lacking the grant
// privileges get Forbidden before the role name is looked at.
func (s *Service) ReplacePrivileges(ctx context.Context, caller *rbac.Caller, rawName string, names []string) (rbac.Role, error) {
	if err := rbac.Require(caller, rbac.PrivilegeManageUsers, rbac.PrivilegeGrantRevoke); err != nil {
		return rbac.Role{}, err
	}
	name, err := rbac.ParseRoleName(rawName)
	if err != nil {
		return rbac.Role{}, err
	}
	if _, err := s.repo.GetRole(ctx, name); err != nil {
		return rbac.Role{}, shared.Internal(err)
	}
	privileges, err := rbac.ParsePrivileges(names)
	if err != nil {
		return rbac.Role{}, err
	}
	role, err := s.repo.ReplaceRolePrivileges(ctx, name, privileges)
	if err != nil {
		return rbac.Role{}, shared.Internal(err)
	}
	s.logger.Info("role privileges replaced",
		slog.String("role", string(name)),
		slog.Int64("actor_id", caller.UserID),
		slog.Int("privileges", len(role.Privileges)))
	return role, nil
}
