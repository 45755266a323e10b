// Package gate is the authorization checkpoint: roles carry
// "resource:action" permission lists and handlers ask whether the
// current user may perform an action. Wildcards "*:*" (superadmin) and
// "resource:*" are supported.
package gate

import "strings"

// Action describes the operation a user wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage" // settings, series, personnel
)

// Permission is "resource:action", e.g. "article:create".
type Permission string

// NewPermission builds a permission from its parts.
func NewPermission(resource string, action Action) Permission {
	return Permission(resource + ":" + string(action))
}

// Parse splits a permission into resource and action.
func (p Permission) Parse() (resource string, action Action) {
	parts := strings.SplitN(string(p), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], Action(parts[1])
}

const (
	wildcard                        = "*"
	PermissionSuperAdmin Permission = "*:*"
)

// Matches reports whether this permission grants the requested one.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin || p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, _ := requested.Parse()
	return res == reqRes && string(act) == wildcard
}

// ParseList reads a comma-separated permission list as stored on a
// role. Blank entries are skipped.
func ParseList(s string) []Permission {
	var out []Permission
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, Permission(part))
	}
	return out
}
