package middleware

import (
	"net/http"
)

// Permission is a capability a role may exercise. Checks are against this
// enumerated set, never against raw role strings in handlers.
type Permission string

const (
	PermManageJobs    Permission = "jobs:manage"
	PermPostJobs      Permission = "jobs:post"
	PermViewEarnings  Permission = "earnings:view"
	PermManageAccount Permission = "account:manage"
)

// rolePermissions enumerates what each role can do. Unknown roles have no
// permissions.
var rolePermissions = map[string][]Permission{
	"provider": {PermManageJobs, PermPostJobs, PermViewEarnings, PermManageAccount},
	"admin":    {PermManageJobs, PermPostJobs, PermViewEarnings, PermManageAccount},
}

// HasPermission reports whether role grants perm.
func HasPermission(role string, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// RequirePermission rejects requests whose authenticated role lacks perm.
// Run after BearerAuth.
func RequirePermission(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !HasPermission(RoleFromCtx(r.Context()), perm) {
				http.Error(w, `{"status":"fail","message":"you do not have permission to perform this action"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
