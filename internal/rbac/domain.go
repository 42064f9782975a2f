package rbac

import (
	"fmt"
	"slices"
	"strings"

	"github.com/editorialhouse/newsroom/internal/shared"
)

// Privilege is an atomic named capability. The set is closed; the string
// value is the wire and storage representation.
type Privilege string

const (
	PrivilegeRead              Privilege = "READ_PRIVILEGE"
	PrivilegeWrite             Privilege = "WRITE_PRIVILEGE"
	PrivilegePublish           Privilege = "PUBLISH_PRIVILEGE"
	PrivilegeApproveArticle    Privilege = "APPROVE_ARTICLE_PRIVILEGE"
	PrivilegeManageUsers       Privilege = "MANAGE_USERS_PRIVILEGE"
	PrivilegeDeleteAnyArticle  Privilege = "DELETE_ANY_ARTICLE_PRIVILEGE"
	PrivilegeNominateModerator Privilege = "NOMINATE_MODERATOR_PRIVILEGE"
	PrivilegeReportNews        Privilege = "REPORT_NEWS_PRIVILEGE"
	PrivilegeReviewReport      Privilege = "REVIEW_REPORT_PRIVILEGE"
	PrivilegeGrantRevoke       Privilege = "GRANT_REVOKE_PRIVILEGE"
)

var privilegeCatalog = []Privilege{
	PrivilegeRead,
	PrivilegeWrite,
	PrivilegePublish,
	PrivilegeApproveArticle,
	PrivilegeManageUsers,
	PrivilegeDeleteAnyArticle,
	PrivilegeNominateModerator,
	PrivilegeReportNews,
	PrivilegeReviewReport,
	PrivilegeGrantRevoke,
}

// RoleName identifies a role. The set is closed.
type RoleName string

const (
	RoleAdmin      RoleName = "ADMIN"
	RoleSupervisor RoleName = "SUPERVISOR"
	RoleClerk      RoleName = "CLERK"
	RoleUser       RoleName = "USER"
)

var roleCatalog = []RoleName{RoleAdmin, RoleSupervisor, RoleClerk, RoleUser}

// defaultBundles maps every role to the privileges it is seeded with.
var defaultBundles = map[RoleName][]Privilege{
	RoleAdmin: {
		PrivilegeRead,
		PrivilegeWrite,
		PrivilegePublish,
		PrivilegeApproveArticle,
		PrivilegeManageUsers,
		PrivilegeDeleteAnyArticle,
		PrivilegeNominateModerator,
		PrivilegeReviewReport,
		PrivilegeGrantRevoke,
	},
	RoleSupervisor: {
		PrivilegeRead,
		PrivilegeApproveArticle,
		PrivilegeDeleteAnyArticle,
		PrivilegeNominateModerator,
		PrivilegeReviewReport,
	},
	RoleClerk: {
		PrivilegeRead,
		PrivilegeWrite,
		PrivilegePublish,
	},
	RoleUser: {
		PrivilegeRead,
		PrivilegeReportNews,
	},
}

// Role is a named bundle of privileges.
type Role struct {
	ID         int64       `json:"id"`
	Name       RoleName    `json:"name"`
	Privileges []Privilege `json:"privileges"`
}

// Privileges returns the full privilege catalog.
func Privileges() []Privilege {
	return slices.Clone(privilegeCatalog)
}

// RoleNames returns the full role catalog.
func RoleNames() []RoleName {
	return slices.Clone(roleCatalog)
}

// DefaultPrivileges returns the seeded privilege bundle for role.
func DefaultPrivileges(role RoleName) []Privilege {
	return slices.Clone(defaultBundles[role])
}

// Valid reports whether p belongs to the catalog.
func (p Privilege) Valid() bool {
	return slices.Contains(privilegeCatalog, p)
}

// Valid reports whether r belongs to the catalog.
func (r RoleName) Valid() bool {
	return slices.Contains(roleCatalog, r)
}

// ParsePrivilege maps a wire name onto the catalog.
func ParsePrivilege(name string) (Privilege, error) {
	p := Privilege(strings.TrimSpace(name))
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown privilege %q", shared.ErrInvalidArgument, name)
	}
	return p, nil
}

// ParseRoleName maps a wire name onto the catalog.
func ParseRoleName(name string) (RoleName, error) {
	r := RoleName(strings.TrimSpace(name))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", shared.ErrInvalidArgument, name)
	}
	return r, nil
}

// ParsePrivileges parses and deduplicates names, preserving first occurrence order.
func ParsePrivileges(names []string) ([]Privilege, error) {
	out := make([]Privilege, 0, len(names))
	for _, name := range names {
		p, err := ParsePrivilege(name)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ParseRoleNames parses and deduplicates names, preserving first occurrence order.
func ParseRoleNames(names []string) ([]RoleName, error) {
	out := make([]RoleName, 0, len(names))
	for _, name := range names {
		r, err := ParseRoleName(name)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out, nil
}
