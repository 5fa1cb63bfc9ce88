package v1

import (
	"context"
	"time"

	"github.com/gosuda/trail/internal/audit"
	"github.com/gosuda/trail/internal/domain"
	"github.com/gosuda/trail/internal/versioning"
)

// AuditService abstracts the audit log for handler testing.
// *audit.Service satisfies this interface.
type AuditService interface {
	LogEvent(ctx context.Context, in audit.EventInput) (int64, error)
	GetLogs(ctx context.Context, companyID *int64, filter domain.AuditFilter, limit, offset int) ([]*domain.AuditEvent, error)
	GetLogsCount(ctx context.Context, companyID *int64, filter domain.AuditFilter) (int64, error)
	GetEvent(ctx context.Context, id int64, companyID *int64) (*domain.AuditEvent, error)
	GetEventStats(ctx context.Context, companyID *int64, from, to *time.Time) ([]*domain.EventStat, error)
	Verify(ctx context.Context, id int64) error
}

// VersionService abstracts the version recorder and rollback engine for
// handler testing. *versioning.Service satisfies this interface.
type VersionService interface {
	CreateVersion(ctx context.Context, in versioning.VersionInput) (int64, error)
	GetVersion(ctx context.Context, versionID, companyID int64) (*domain.VersionRecord, error)
	GetVersionHistory(ctx context.Context, tableName string, recordID int64, companyID *int64) ([]*domain.VersionRecord, error)
	RollbackToVersion(ctx context.Context, versionID, companyID int64, userID *int64, client domain.ClientInfo) (*domain.VersionRecord, error)
}
