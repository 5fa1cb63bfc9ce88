package domain

import (
	"context"
	"time"

	"github.com/gosuda/trail/internal/payload"
)

type VersionAction string

const (
	VersionActionCreate VersionAction = "create"
	VersionActionUpdate VersionAction = "update"
	VersionActionDelete VersionAction = "delete"
)

func (a VersionAction) Valid() bool {
	switch a {
	case VersionActionCreate, VersionActionUpdate, VersionActionDelete:
		return true
	default:
		return false
	}
}

// VersionRecord captures the state of a tracked row around one mutation.
// OldData is nil for creates, NewData is nil for deletes. A nil snapshot is
// stored as NULL, distinct from an empty object.
type VersionRecord struct {
	ID        int64           `json:"id"`
	CompanyID int64           `json:"company_id"`
	TableName string          `json:"table_name"`
	RecordID  int64           `json:"record_id"`
	Action    VersionAction   `json:"action"`
	OldData   *payload.Object `json:"old_data"`
	NewData   *payload.Object `json:"new_data"`
	UserID    *int64          `json:"user_id"`
	IPAddress *string         `json:"ip_address"`
	CreatedAt time.Time       `json:"created_at"`
}

// VersionRepository appends and reads version records. Records are never
// updated or deleted.
type VersionRepository interface {
	Create(ctx context.Context, v *VersionRecord) error
	GetByID(ctx context.Context, id, companyID int64) (*VersionRecord, error)
	ListByRecord(ctx context.Context, tableName string, recordID int64, companyID *int64) ([]*VersionRecord, error)
}

// RecordStore writes rows of tracked business tables by column name.
type RecordStore interface {
	// Columns returns the column names of table, or ErrNotFound when the
	// table does not exist.
	Columns(ctx context.Context, table string) ([]string, error)
	InsertRow(ctx context.Context, table string, row *payload.Object) error
	// UpdateRow applies cols to the row (recordID, companyID) and returns the
	// number of rows affected.
	UpdateRow(ctx context.Context, table string, recordID, companyID int64, cols *payload.Object) (int64, error)
}

// VersionTx exposes the repositories that take part in a rollback.
type VersionTx interface {
	Versions() VersionRepository
	Records() RecordStore
}

// VersionUnitOfWork runs fn inside a single store transaction, committing
// when fn returns nil.
type VersionUnitOfWork interface {
	WithinTx(ctx context.Context, fn func(tx VersionTx) error) error
}
