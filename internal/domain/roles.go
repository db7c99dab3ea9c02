package domain

import "strings"

const (
	RoleClient  = "client"
	RoleSupport = "support"
	RoleManager = "manager"
)

// rolePermissions maps each role to the coarse capabilities the API exposes.
// Higher roles are supersets of lower ones so role checks stay additive.
var rolePermissions = map[string][]string{
	RoleClient: {
		"tickets:read:own",
		"tickets:create",
	},
	RoleSupport: {
		"tickets:read:own",
		"tickets:create",
		"tickets:read:all",
		"tickets:update",
		"assets:read",
	},
	RoleManager: {
		"tickets:read:own",
		"tickets:create",
		"tickets:read:all",
		"tickets:update",
		"tickets:delete",
		"assets:read",
		"assets:update",
		"users:manage",
		"audit:read",
	},
}

// ParseRole normalizes and validates a role name. An empty input is allowed
// so callers can apply their configured default.
func ParseRole(raw string) (string, bool) {
	role := strings.ToLower(strings.TrimSpace(raw))
	if role == "" {
		return "", true
	}
	if _, ok := rolePermissions[role]; !ok {
		return "", false
	}
	return role, true
}

// PermissionsForRole returns the capability list for a role. Unknown roles get
// no permissions rather than an error so stale tokens degrade closed.
func PermissionsForRole(role string) []string {
	perms, ok := rolePermissions[strings.ToLower(role)]
	if !ok {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// RoleHasPermission reports whether the role grants the named capability.
func RoleHasPermission(role, permission string) bool {
	for _, p := range rolePermissions[strings.ToLower(role)] {
		if p == permission {
			return true
		}
	}
	return false
}
