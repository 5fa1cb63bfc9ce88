package v1_test

import (
	"context"
	"time"

	"github.com/gosuda/trail/internal/audit"
	"github.com/gosuda/trail/internal/auth"
	"github.com/gosuda/trail/internal/domain"
	"github.com/gosuda/trail/internal/server/middleware"
	"github.com/gosuda/trail/internal/versioning"
)

// ---------------------------------------------------------------------------
// Context helpers: inject company/user/role into context for DoCtx
// ---------------------------------------------------------------------------

func companyCtx(companyID int64) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, middleware.ContextKeyCompanyID, companyID)
	ctx = context.WithValue(ctx, middleware.ContextKeyUserID, int64(7))
	ctx = context.WithValue(ctx, middleware.ContextKeyUserRole, auth.RoleMember)
	ctx = context.WithValue(ctx, middleware.ContextKeyClientInfo, domain.ClientInfo{RemoteAddr: "10.0.0.9:5555"})
	return ctx
}

func adminCtx(companyID int64) context.Context {
	return context.WithValue(companyCtx(companyID), middleware.ContextKeyUserRole, auth.RoleAdmin)
}

func operatorCtx() context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, middleware.ContextKeyUserID, int64(1))
	return context.WithValue(ctx, middleware.ContextKeyUserRole, auth.RoleOperator)
}

func ptr[T any](v T) *T { return &v }

// ---------------------------------------------------------------------------
// Mock AuditService
// ---------------------------------------------------------------------------

type mockAuditService struct {
	logEventFunc      func(ctx context.Context, in audit.EventInput) (int64, error)
	getLogsFunc       func(ctx context.Context, companyID *int64, filter domain.AuditFilter, limit, offset int) ([]*domain.AuditEvent, error)
	getLogsCountFunc  func(ctx context.Context, companyID *int64, filter domain.AuditFilter) (int64, error)
	getEventFunc      func(ctx context.Context, id int64, companyID *int64) (*domain.AuditEvent, error)
	getEventStatsFunc func(ctx context.Context, companyID *int64, from, to *time.Time) ([]*domain.EventStat, error)
	verifyFunc        func(ctx context.Context, id int64) error
}

func (m *mockAuditService) LogEvent(ctx context.Context, in audit.EventInput) (int64, error) {
	return m.logEventFunc(ctx, in)
}

func (m *mockAuditService) GetLogs(ctx context.Context, companyID *int64, filter domain.AuditFilter, limit, offset int) ([]*domain.AuditEvent, error) {
	return m.getLogsFunc(ctx, companyID, filter, limit, offset)
}

func (m *mockAuditService) GetLogsCount(ctx context.Context, companyID *int64, filter domain.AuditFilter) (int64, error) {
	return m.getLogsCountFunc(ctx, companyID, filter)
}

func (m *mockAuditService) GetEvent(ctx context.Context, id int64, companyID *int64) (*domain.AuditEvent, error) {
	return m.getEventFunc(ctx, id, companyID)
}

func (m *mockAuditService) GetEventStats(ctx context.Context, companyID *int64, from, to *time.Time) ([]*domain.EventStat, error) {
	return m.getEventStatsFunc(ctx, companyID, from, to)
}

func (m *mockAuditService) Verify(ctx context.Context, id int64) error {
	return m.verifyFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock VersionService
// ---------------------------------------------------------------------------

type mockVersionService struct {
	createVersionFunc     func(ctx context.Context, in versioning.VersionInput) (int64, error)
	getVersionFunc        func(ctx context.Context, versionID, companyID int64) (*domain.VersionRecord, error)
	getVersionHistoryFunc func(ctx context.Context, tableName string, recordID int64, companyID *int64) ([]*domain.VersionRecord, error)
	rollbackFunc          func(ctx context.Context, versionID, companyID int64, userID *int64, client domain.ClientInfo) (*domain.VersionRecord, error)
}

func (m *mockVersionService) CreateVersion(ctx context.Context, in versioning.VersionInput) (int64, error) {
	return m.createVersionFunc(ctx, in)
}

func (m *mockVersionService) GetVersion(ctx context.Context, versionID, companyID int64) (*domain.VersionRecord, error) {
	return m.getVersionFunc(ctx, versionID, companyID)
}

func (m *mockVersionService) GetVersionHistory(ctx context.Context, tableName string, recordID int64, companyID *int64) ([]*domain.VersionRecord, error) {
	return m.getVersionHistoryFunc(ctx, tableName, recordID, companyID)
}

func (m *mockVersionService) RollbackToVersion(ctx context.Context, versionID, companyID int64, userID *int64, client domain.ClientInfo) (*domain.VersionRecord, error) {
	return m.rollbackFunc(ctx, versionID, companyID, userID, client)
}
