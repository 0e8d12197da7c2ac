// Package rbac holds the static user-type to permission table returned at login and fed to the policy engine.
package rbac

import "sort"

// Permission strings checked by the HTTP layer.
const (
	PermPropertyRead = "property:read"
	PermProjectRead  = "project:read"
	PermLeadCreate   = "lead:create"
	PermLeadRead     = "lead:read"
	PermLeadUpdate   = "lead:update"
	PermAuditRead    = "audit:read"
)

var table = map[string][]string{
	"customer": {
		PermPropertyRead,
		PermLeadCreate,
	},
	"partner": {
		PermPropertyRead,
		PermProjectRead,
		PermLeadCreate,
		PermLeadRead,
		PermLeadUpdate,
	},
	"admin": {
		PermPropertyRead,
		PermProjectRead,
		PermLeadCreate,
		PermLeadRead,
		PermLeadUpdate,
		PermAuditRead,
	},
	"super_admin": {
		PermPropertyRead,
		PermProjectRead,
		PermLeadCreate,
		PermLeadRead,
		PermLeadUpdate,
		PermAuditRead,
	},
}

// PermissionsFor returns a copy of the permission set for userType, or an empty slice for unknown types.
func PermissionsFor(userType string) []string {
	perms := table[userType]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// Table returns a copy of the whole table keyed by user type.
func Table() map[string][]string {
	out := make(map[string][]string, len(table))
	for k := range table {
		out[k] = PermissionsFor(k)
	}
	return out
}

// UserTypes returns the known user types, sorted.
func UserTypes() []string {
	out := make([]string, 0, len(table))
	for k := range table {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
