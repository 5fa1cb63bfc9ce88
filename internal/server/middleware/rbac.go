package middleware

import (
	"net/http"
	"slices"

	"github.com/danielgtaylor/huma/v2"
)

// RequireRole returns huma operation middleware that checks if the
// authenticated caller has one of the allowed roles. It relies on the Auth
// middleware having run on the router.
//
// Responds 401 Unauthorized when no role is found in context and 403 Forbidden
// when the role does not match any of the allowed roles.
func RequireRole(api huma.API, roles ...string) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		role, ok := RoleFromContext(ctx.Context())
		if !ok || role == "" {
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "authentication required")
			return
		}

		if !slices.Contains(roles, role) {
			_ = huma.WriteErr(api, ctx, http.StatusForbidden, "insufficient permissions")
			return
		}

		next(ctx)
	}
}
