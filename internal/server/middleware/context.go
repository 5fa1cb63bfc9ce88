package middleware

import (
	"context"

	"github.com/gosuda/trail/internal/auth"
	"github.com/gosuda/trail/internal/domain"
)

type contextKey string

const (
	ContextKeyCompanyID  contextKey = "company_id"
	ContextKeyUserID     contextKey = "user_id"
	ContextKeyUserRole   contextKey = "role"
	ContextKeyClientInfo contextKey = "client_info"
)

func CompanyIDFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(ContextKeyCompanyID).(int64)
	return v, ok
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(ContextKeyUserID).(int64)
	return v, ok
}

func RoleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyUserRole).(string)
	return v, ok
}

// ClientInfoFromContext returns the caller's network details captured by
// the ClientInfo middleware, or the zero value.
func ClientInfoFromContext(ctx context.Context) domain.ClientInfo {
	v, _ := ctx.Value(ContextKeyClientInfo).(domain.ClientInfo)
	return v
}

// TenantScope returns the company a request may read. Operators without a
// company get a nil scope covering every tenant. ok is false when the
// request carries neither.
func TenantScope(ctx context.Context) (companyID *int64, ok bool) {
	if id, found := CompanyIDFromContext(ctx); found {
		return &id, true
	}
	if role, _ := RoleFromContext(ctx); role == auth.RoleOperator {
		return nil, true
	}
	return nil, false
}
