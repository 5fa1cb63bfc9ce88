package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/trail/internal/domain"
	"github.com/gosuda/trail/internal/payload"
)

const versionColumns = `id, company_id, table_name, record_id, action, old_data, new_data, user_id, ip_address, created_at`

// VersionRepo implements domain.VersionRepository over record_versions.
// Snapshots are nullable TEXT: NULL means no snapshot, "{}" an empty one.
type VersionRepo struct {
	db querier
}

func NewVersionRepo(db querier) *VersionRepo {
	return &VersionRepo{db: db}
}

func (r *VersionRepo) Create(ctx context.Context, v *domain.VersionRecord) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO record_versions (company_id, table_name, record_id, action, old_data, new_data, user_id, ip_address)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		v.CompanyID, v.TableName, v.RecordID, string(v.Action),
		snapshotText(v.OldData), snapshotText(v.NewData), v.UserID, v.IPAddress,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return fmt.Errorf("versionRepo.Create: %w", storageErr(err))
	}

	return nil
}

func (r *VersionRepo) GetByID(ctx context.Context, id, companyID int64) (*domain.VersionRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+versionColumns+` FROM record_versions WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)

	v, err := scanVersion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("versionRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("versionRepo.GetByID: %w", storageErr(err))
	}

	return v, nil
}

func (r *VersionRepo) ListByRecord(ctx context.Context, tableName string, recordID int64, companyID *int64) ([]*domain.VersionRecord, error) {
	w := &whereBuilder{}
	w.add("table_name = ?", tableName)
	w.add("record_id = ?", recordID)
	if companyID != nil {
		w.add("company_id = ?", *companyID)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+versionColumns+` FROM record_versions`+w.clause()+` ORDER BY created_at DESC, id DESC`,
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("versionRepo.ListByRecord: %w", storageErr(err))
	}
	defer rows.Close()

	versions := []*domain.VersionRecord{}
	for rows.Next() {
		v, scanErr := scanVersion(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("versionRepo.ListByRecord: scan: %w", storageErr(scanErr))
		}
		versions = append(versions, v)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("versionRepo.ListByRecord: rows: %w", storageErr(rowsErr))
	}

	return versions, nil
}

func scanVersion(row pgx.Row) (*domain.VersionRecord, error) {
	var (
		v                domain.VersionRecord
		action           string
		oldData, newData *string
	)
	if err := row.Scan(
		&v.ID, &v.CompanyID, &v.TableName, &v.RecordID, &action,
		&oldData, &newData, &v.UserID, &v.IPAddress, &v.CreatedAt,
	); err != nil {
		return nil, err
	}

	v.Action = domain.VersionAction(action)
	v.OldData = decodeSnapshot(v.ID, "old_data", oldData)
	v.NewData = decodeSnapshot(v.ID, "new_data", newData)
	return &v, nil
}

func snapshotText(o *payload.Object) *string {
	if o == nil {
		return nil
	}
	s := string(o.Canonical())
	return &s
}

// decodeSnapshot parses a stored snapshot. Unreadable snapshots are logged
// and treated as absent.
func decodeSnapshot(versionID int64, column string, text *string) *payload.Object {
	if text == nil {
		return nil
	}
	o, err := payload.ParseObject([]byte(*text))
	if err != nil {
		log.Warn().Err(err).Int64("version_id", versionID).Str("column", column).
			Msg("postgres: unreadable version snapshot")
		return nil
	}
	return o
}
