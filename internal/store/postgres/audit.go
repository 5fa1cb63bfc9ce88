package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gosuda/trail/internal/domain"
)

// pgUndefinedTable is the SQLSTATE for a missing relation.
const pgUndefinedTable = "42P01"

const auditColumns = `id, company_id, user_id, event_type, entity_type, entity_id, payload, ip_address, created_at`

// createdDay buckets events by UTC calendar day regardless of the session time zone.
const createdDay = `(created_at AT TIME ZONE 'UTC')::date`

// AuditRepo implements domain.AuditRepository over the audit_logs table.
// Payloads are stored as TEXT so the signed bytes survive unchanged.
type AuditRepo struct {
	db querier
}

func NewAuditRepo(db querier) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Append(ctx context.Context, ev *domain.AuditEvent, sign domain.SignFunc) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("auditRepo.Append: begin: %w", storageErr(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		id        int64
		createdAt time.Time
	)
	err = tx.QueryRow(ctx,
		`INSERT INTO audit_logs (company_id, user_id, event_type, entity_type, entity_id, payload, ip_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, date_trunc('second', now()))
		 RETURNING id, created_at`,
		ev.CompanyID, ev.UserID, ev.EventType, ev.EntityType, ev.EntityID,
		string(ev.RawPayload), ev.IPAddress,
	).Scan(&id, &createdAt)
	if err != nil {
		return fmt.Errorf("auditRepo.Append: insert: %w", storageErr(err))
	}

	signed, err := sign(id, createdAt)
	if err != nil {
		return fmt.Errorf("auditRepo.Append: sign: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE audit_logs SET payload = $1 WHERE id = $2`, string(signed), id)
	if err != nil {
		return fmt.Errorf("auditRepo.Append: update payload: %w", storageErr(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("auditRepo.Append: commit: %w", storageErr(err))
	}

	ev.ID = id
	ev.CreatedAt = createdAt
	ev.RawPayload = signed

	return nil
}

func (r *AuditRepo) GetByID(ctx context.Context, id int64) (*domain.AuditEvent, error) {
	row := r.db.QueryRow(ctx, `SELECT `+auditColumns+` FROM audit_logs WHERE id = $1`, id)

	ev, err := scanAuditEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("auditRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("auditRepo.GetByID: %w", storageErr(err))
	}

	return ev, nil
}

func (r *AuditRepo) List(ctx context.Context, companyID *int64, filter domain.AuditFilter, limit, offset int) ([]*domain.AuditEvent, error) {
	w := auditWhere(companyID, filter)
	limitArg := w.arg(limit)
	offsetArg := w.arg(offset)

	// Keyset pages follow id so a cursor never skips rows.
	order := ` ORDER BY created_at DESC, id DESC`
	if filter.BeforeID != nil {
		order = ` ORDER BY id DESC`
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+auditColumns+` FROM audit_logs`+w.clause()+
			order+` LIMIT `+limitArg+` OFFSET `+offsetArg,
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.List: %w", storageErr(err))
	}
	defer rows.Close()

	var events []*domain.AuditEvent
	for rows.Next() {
		ev, scanErr := scanAuditEvent(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("auditRepo.List: scan: %w", storageErr(scanErr))
		}
		events = append(events, ev)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("auditRepo.List: rows: %w", storageErr(rowsErr))
	}

	return events, nil
}

func (r *AuditRepo) Count(ctx context.Context, companyID *int64, filter domain.AuditFilter) (int64, error) {
	w := auditWhere(companyID, filter)

	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+w.clause(), w.args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("auditRepo.Count: %w", storageErr(err))
	}

	return n, nil
}

// Stats aggregates events per type, busiest first. A missing audit_logs
// table yields no rows rather than an error.
func (r *AuditRepo) Stats(ctx context.Context, companyID *int64, from, to *time.Time) ([]*domain.EventStat, error) {
	w := auditWhere(companyID, domain.AuditFilter{DateFrom: from, DateTo: to})

	rows, err := r.db.Query(ctx,
		`SELECT event_type, COUNT(*), COUNT(DISTINCT user_id), COUNT(DISTINCT `+createdDay+`)
		 FROM audit_logs`+w.clause()+`
		 GROUP BY event_type
		 ORDER BY COUNT(*) DESC, event_type`,
		w.args...,
	)
	if isUndefinedTable(err) {
		return []*domain.EventStat{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auditRepo.Stats: %w", storageErr(err))
	}
	defer rows.Close()

	stats := []*domain.EventStat{}
	for rows.Next() {
		var s domain.EventStat
		if scanErr := rows.Scan(&s.EventType, &s.Count, &s.UniqueUsers, &s.ActiveDays); scanErr != nil {
			return nil, fmt.Errorf("auditRepo.Stats: scan: %w", storageErr(scanErr))
		}
		stats = append(stats, &s)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		if isUndefinedTable(rowsErr) {
			return []*domain.EventStat{}, nil
		}
		return nil, fmt.Errorf("auditRepo.Stats: rows: %w", storageErr(rowsErr))
	}

	return stats, nil
}

func scanAuditEvent(row pgx.Row) (*domain.AuditEvent, error) {
	var (
		ev  domain.AuditEvent
		raw string
	)
	if err := row.Scan(
		&ev.ID, &ev.CompanyID, &ev.UserID, &ev.EventType, &ev.EntityType,
		&ev.EntityID, &raw, &ev.IPAddress, &ev.CreatedAt,
	); err != nil {
		return nil, err
	}
	ev.RawPayload = []byte(raw)
	return &ev, nil
}

func auditWhere(companyID *int64, f domain.AuditFilter) *whereBuilder {
	w := &whereBuilder{}
	if companyID != nil {
		w.add("company_id = ?", *companyID)
	}
	if f.ID != nil {
		w.add("id = ?", *f.ID)
	}
	if f.BeforeID != nil {
		w.add("id < ?", *f.BeforeID)
	}
	if f.EventType != "" {
		w.add("event_type = ?", f.EventType)
	}
	if f.UserID != nil {
		w.add("user_id = ?", *f.UserID)
	}
	if f.EntityType != "" {
		w.add("entity_type = ?", f.EntityType)
	}
	if f.EntityID != nil {
		w.add("entity_id = ?", *f.EntityID)
	}
	if f.DateFrom != nil {
		w.add(createdDay+" >= ?::date", f.DateFrom.Format(time.DateOnly))
	}
	if f.DateTo != nil {
		w.add(createdDay+" <= ?::date", f.DateTo.Format(time.DateOnly))
	}
	return w
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}
