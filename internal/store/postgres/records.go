package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/gosuda/trail/internal/domain"
	"github.com/gosuda/trail/internal/payload"
)

// RecordRepo writes rows of tracked business tables from snapshots. Values
// are converted to column types by jsonb_populate_record, so a snapshot is
// applied exactly as it was captured.
type RecordRepo struct {
	db querier
}

func NewRecordRepo(db querier) *RecordRepo {
	return &RecordRepo{db: db}
}

func (r *RecordRepo) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_schema = current_schema() AND table_name = $1
		 ORDER BY ordinal_position`,
		table,
	)
	if err != nil {
		return nil, fmt.Errorf("recordRepo.Columns: %w", storageErr(err))
	}

	columns, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("recordRepo.Columns: %w", storageErr(err))
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("recordRepo.Columns: table %q: %w", table, domain.ErrNotFound)
	}

	return columns, nil
}

func (r *RecordRepo) InsertRow(ctx context.Context, table string, row *payload.Object) error {
	if row.Len() == 0 {
		return fmt.Errorf("recordRepo.InsertRow: %w: empty row", domain.ErrMalformedSnapshot)
	}

	_, err := r.db.Exec(ctx, insertRowSQL(table, row.Keys()), string(row.Canonical()))
	if err != nil {
		return fmt.Errorf("recordRepo.InsertRow: %w", storageErr(err))
	}

	return nil
}

func (r *RecordRepo) UpdateRow(ctx context.Context, table string, recordID, companyID int64, cols *payload.Object) (int64, error) {
	if cols.Len() == 0 {
		return 0, fmt.Errorf("recordRepo.UpdateRow: %w: no columns", domain.ErrMalformedSnapshot)
	}

	tag, err := r.db.Exec(ctx, updateRowSQL(table, cols.Keys()), string(cols.Canonical()), recordID, companyID)
	if err != nil {
		return 0, fmt.Errorf("recordRepo.UpdateRow: %w", storageErr(err))
	}

	return tag.RowsAffected(), nil
}

// insertRowSQL builds
//
//	INSERT INTO "t" ("a", "b") SELECT "a", "b" FROM jsonb_populate_record(NULL::"t", $1::jsonb)
func insertRowSQL(table string, columns []string) string {
	t := pgx.Identifier{table}.Sanitize()
	cols := quoteColumns(columns)
	return fmt.Sprintf(
		`INSERT INTO %s (%s) SELECT %s FROM jsonb_populate_record(NULL::%s, $1::jsonb)`,
		t, cols, cols, t,
	)
}

// updateRowSQL builds
//
//	UPDATE "t" SET "a" = src."a" FROM jsonb_populate_record(NULL::"t", $1::jsonb) AS src
//	WHERE "t"."id" = $2 AND "t"."company_id" = $3
func updateRowSQL(table string, columns []string) string {
	t := pgx.Identifier{table}.Sanitize()
	sets := make([]string, len(columns))
	for i, c := range columns {
		col := pgx.Identifier{c}.Sanitize()
		sets[i] = col + " = src." + col
	}
	return fmt.Sprintf(
		`UPDATE %s SET %s FROM jsonb_populate_record(NULL::%s, $1::jsonb) AS src WHERE %s."id" = $2 AND %s."company_id" = $3`,
		t, strings.Join(sets, ", "), t, t, t,
	)
}

func quoteColumns(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
