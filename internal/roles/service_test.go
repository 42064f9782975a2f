package roles

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/editorialhouse/newsroom/internal/rbac"
	"github.com/editorialhouse/newsroom/internal/shared"
)

type memoryRoleRepo struct {
	roles map[rbac.RoleName][]rbac.Privilege
}

func newMemoryRoleRepo() *memoryRoleRepo {
	repo := &memoryRoleRepo{roles: make(map[rbac.RoleName][]rbac.Privilege)}
	for _, name := range rbac.RoleNames() {
		repo.roles[name] = rbac.DefaultPrivileges(name)
	}
	return repo
}

func (m *memoryRoleRepo) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	out := make([]rbac.Role, 0, len(m.roles))
	for _, name := range rbac.RoleNames() {
		out = append(out, rbac.Role{Name: name, Privileges: m.roles[name]})
	}
	return out, nil
}

func (m *memoryRoleRepo) GetRole(ctx context.Context, name rbac.RoleName) (rbac.Role, error) {
	ps, ok := m.roles[name]
	if !ok {
		return rbac.Role{}, fmt.Errorf("%w: role %s", shared.ErrNotFound, name)
	}
	return rbac.Role{Name: name, Privileges: ps}, nil
}

func (m *memoryRoleRepo) ListPrivileges(ctx context.Context) ([]rbac.Privilege, error) {
	return rbac.Privileges(), nil
}

func (m *memoryRoleRepo) ReplaceRolePrivileges(ctx context.Context, name rbac.RoleName, privileges []rbac.Privilege) (rbac.Role, error) {
	m.roles[name] = privileges
	return rbac.Role{Name: name, Privileges: privileges}, nil
}

func caller(role rbac.RoleName) *rbac.Caller {
	return rbac.NewCaller(1, "actor", rbac.Subject{Roles: []rbac.Role{{Name: role, Privileges: rbac.DefaultPrivileges(role)}}})
}

func TestReplacePrivileges(t *testing.T) {
	repo := newMemoryRoleRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	role, err := svc.ReplacePrivileges(ctx, caller(rbac.RoleAdmin), "CLERK", []string{"READ_PRIVILEGE", "WRITE_PRIVILEGE"})
	require.NoError(t, err)
	require.Equal(t, rbac.RoleClerk, role.Name)
	require.Equal(t, []rbac.Privilege{rbac.PrivilegeRead, rbac.PrivilegeWrite}, repo.roles[rbac.RoleClerk])

	// a caller resolved against the new bundle no longer publishes
	resolved := rbac.NewCaller(2, "clerk", rbac.Subject{Roles: []rbac.Role{role}})
	require.False(t, resolved.Can(rbac.PrivilegePublish))

	_, err = svc.ReplacePrivileges(ctx, caller(rbac.RoleSupervisor), "CLERK", []string{"READ_PRIVILEGE"})
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.ReplacePrivileges(ctx, caller(rbac.RoleSupervisor), "EDITOR", []string{"READ_PRIVILEGE"})
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.ReplacePrivileges(ctx, caller(rbac.RoleAdmin), "EDITOR", []string{"READ_PRIVILEGE"})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	_, err = svc.ReplacePrivileges(ctx, caller(rbac.RoleAdmin), "clerk", []string{"READ_PRIVILEGE"})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	_, err = svc.ReplacePrivileges(ctx, caller(rbac.RoleAdmin), "CLERK", []string{"SUPERPOWER"})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	_, err = svc.ReplacePrivileges(ctx, nil, "CLERK", nil)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestListCatalog(t *testing.T) {
	svc := NewService(newMemoryRoleRepo(), nil)
	ctx := context.Background()

	roles, err := svc.ListRoles(ctx, caller(rbac.RoleAdmin))
	require.NoError(t, err)
	require.Len(t, roles, len(rbac.RoleNames()))

	privileges, err := svc.ListPrivileges(ctx, caller(rbac.RoleAdmin))
	require.NoError(t, err)
	require.Len(t, privileges, 10)

	_, err = svc.ListRoles(ctx, caller(rbac.RoleClerk))
	require.ErrorIs(t, err, shared.ErrForbidden)
}
