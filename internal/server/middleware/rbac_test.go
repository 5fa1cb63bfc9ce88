package middleware_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"

	"github.com/gosuda/trail/internal/auth"
	"github.com/gosuda/trail/internal/server/middleware"
)

// setRole injects a role into the request context using the same context key
// that the Auth middleware uses.
func setRole(r *http.Request, role string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.ContextKeyUserRole, role)
	return r.WithContext(ctx)
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequireRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		allowed    []string
		role       string
		withRole   bool
		wantStatus int
	}{
		{name: "admin allowed", allowed: []string{auth.RoleAdmin}, role: auth.RoleAdmin, withRole: true, wantStatus: http.StatusNoContent},
		{name: "one of several", allowed: []string{auth.RoleAdmin, auth.RoleOperator}, role: auth.RoleOperator, withRole: true, wantStatus: http.StatusNoContent},
		{name: "member blocked", allowed: []string{auth.RoleAdmin}, role: auth.RoleMember, withRole: true, wantStatus: http.StatusForbidden},
		{name: "empty role", allowed: []string{auth.RoleAdmin}, role: "", withRole: true, wantStatus: http.StatusUnauthorized},
		{name: "no role", allowed: []string{auth.RoleAdmin}, wantStatus: http.StatusUnauthorized},
		{name: "no roles allowed", role: auth.RoleAdmin, withRole: true, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			called := false
			huma.Register(api, huma.Operation{
				OperationID: "guarded",
				Method:      http.MethodPost,
				Path:        "/guarded",
				Middlewares: huma.Middlewares{middleware.RequireRole(api, tt.allowed...)},
			}, func(_ context.Context, _ *struct{}) (*struct{}, error) {
				called = true
				return nil, nil
			})

			ctx := context.Background()
			if tt.withRole {
				ctx = context.WithValue(ctx, middleware.ContextKeyUserRole, tt.role)
			}
			resp := api.PostCtx(ctx, "/guarded")

			assert.Equal(t, tt.wantStatus, resp.Code)
			assert.Equal(t, tt.wantStatus == http.StatusNoContent, called)
			if tt.wantStatus == http.StatusForbidden {
				assert.Contains(t, resp.Body.String(), "insufficient permissions")
			}
		})
	}
}
