package users

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/editorialhouse/newsroom/internal/rbac"
	"github.com/editorialhouse/newsroom/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	ReplaceRoles(ctx context.Context, id int64, roles []rbac.RoleName) (User, error)
	ReplacePrivileges(ctx context.Context, id int64, privileges []rbac.Privilege) (User, error)
	SetEnabled(ctx context.Context, id int64, enabled bool) (User, error)
}

// Service handles user administration.
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

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context, caller *rbac.Caller) ([]User, error) {
	if err := rbac.Require(caller, rbac.PrivilegeManageUsers); err != nil {
		return nil, err
	}
	items, err := s.repo.ListUsers(ctx)
	return items, shared.Internal(err)
}

// SetRoles replaces the roles of a user. Unknown role names are rejected.
func (s *Service) SetRoles(ctx context.Context, caller *rbac.Caller, id int64, names []string) (User, error) {
	if err := s.authorize(ctx, caller, id, rbac.PrivilegeManageUsers); err != nil {
		return User{}, err
	}
	roles, err := rbac.ParseRoleNames(names)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.ReplaceRoles(ctx, id, roles)
	if err != nil {
		return User{}, shared.Internal(err)
	}
	s.logger.Info("user roles replaced", slog.Int64("user_id", id), slog.Int64("actor_id", caller.UserID), slog.Any("roles", roles))
	return user, nil
}

// SetPrivileges replaces the custom privileges of a user. Custom privileges
// only add to role grants.
func (s *Service) SetPrivileges(ctx context.Context, caller *rbac.Caller, id int64, names []string) (User, error) {
	if err := s.authorize(ctx, caller, id, rbac.PrivilegeManageUsers, rbac.PrivilegeGrantRevoke); err != nil {
		return User{}, err
	}
	privileges, err := rbac.ParsePrivileges(names)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.ReplacePrivileges(ctx, id, privileges)
	if err != nil {
		return User{}, shared.Internal(err)
	}
	s.logger.Info("user privileges replaced", slog.Int64("user_id", id), slog.Int64("actor_id", caller.UserID), slog.Any("privileges", privileges))
	return user, nil
}

// SetEnabled enables or disables a user. Callers cannot disable themselves.
func (s *Service) SetEnabled(ctx context.Context, caller *rbac.Caller, id int64, enabled bool) (User, error) {
	if err := s.authorize(ctx, caller, id, rbac.PrivilegeManageUsers); err != nil {
		return User{}, err
	}
	if !enabled && caller.Is(id) {
		return User{}, fmt.Errorf("%w: cannot disable own account", shared.ErrConflictingState)
	}
	user, err := s.repo.SetEnabled(ctx, id, enabled)
	return user, shared.Internal(err)
}

func (s *Service) authorize(ctx context.Context, caller *rbac.Caller, id int64, required ...rbac.Privilege) error {
	if err := rbac.Authenticated(caller); err != nil {
		return err
	}
	if _, err := s.repo.GetUser(ctx, id); err != nil {
		return shared.Internal(err)
	}
	return rbac.Require(caller, required...)
}
