package rbac

import (
	"encoding/json"
	"sort"
)

// RolePrefix marks coarse role authorities so they never collide with privilege names.
const RolePrefix = "ROLE_"

// Authority is a token compared during authorization: a privilege name or a
// prefixed role marker.
type Authority string

// RoleAuthority returns the coarse authority token for a role.
func RoleAuthority(name RoleName) Authority {
	return Authority(RolePrefix + string(name))
}

// Subject carries the fully loaded grants of a user.
type Subject struct {
	Roles            []Role
	CustomPrivileges []Privilege
}

// Set is a deduplicated collection of authorities.
type Set map[Authority]struct{}

// Resolve computes the effective authority of subject: the union of every
// role's privileges and the custom privileges, plus one role marker per role.
// Custom privileges only ever add.
func Resolve(subject Subject) Set {
	set := make(Set)
	for _, role := range subject.Roles {
		for _, p := range role.Privileges {
			set[Authority(p)] = struct{}{}
		}
		set[RoleAuthority(role.Name)] = struct{}{}
	}
	for _, p := range subject.CustomPrivileges {
		set[Authority(p)] = struct{}{}
	}
	return set
}

// Has is an exact membership test.
func (s Set) Has(a Authority) bool {
	_, ok := s[a]
	return ok
}

// HasPrivilege reports whether p was granted.
func (s Set) HasPrivilege(p Privilege) bool {
	return s.Has(Authority(p))
}

// HasAny reports whether at least one of ps was granted. An empty list passes.
func (s Set) HasAny(ps ...Privilege) bool {
	if len(ps) == 0 {
		return true
	}
	for _, p := range ps {
		if s.HasPrivilege(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether every p in ps was granted.
func (s Set) HasAll(ps ...Privilege) bool {
	for _, p := range ps {
		if !s.HasPrivilege(p) {
			return false
		}
	}
	return true
}

// Names returns the authorities sorted for stable output.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for a := range s {
		names = append(names, string(a))
	}
	sort.Strings(names)
	return names
}

// MarshalJSON encodes the set as a sorted array.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}
