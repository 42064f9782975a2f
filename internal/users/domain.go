package users

import (
	"time"

	"github.com/editorialhouse/newsroom/internal/rbac"
)

// User is the administrative view of an account.
type User struct {
	ID                int64            `json:"id"`
	Username          string           `json:"username"`
	FullName          string           `json:"fullName"`
	Enabled           bool             `json:"enabled"`
	SessionValidUntil time.Time        `json:"sessionValidUntil"`
	Roles             []rbac.RoleName  `json:"roles"`
	CustomPrivileges  []rbac.Privilege `json:"customPrivileges"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// SetRolesInput replaces the roles of a user.
type SetRolesInput struct {
	Roles []string `json:"roles" validate:"required,dive,required"`
}

// SetPrivilegesInput replaces the custom privileges of a user.
type SetPrivilegesInput struct {
	Privileges []string `json:"privileges" validate:"required,dive,required"`
}

// SetEnabledInput enables or disables a user.
type SetEnabledInput struct {
	Enabled *bool `json:"enabled" validate:"required"`
}
