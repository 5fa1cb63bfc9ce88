package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/trail/internal/domain"
	"github.com/gosuda/trail/internal/payload"
)

func ptr[T any](v T) *T { return &v }

func TestAuditWhere(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		companyID *int64
		filter    domain.AuditFilter
		want      string
		wantArgs  []any
	}{
		{
			name: "no constraints",
			want: "",
		},
		{
			name:      "tenant only",
			companyID: ptr(int64(7)),
			want:      " WHERE company_id = $1",
			wantArgs:  []any{int64(7)},
		},
		{
			name:      "all filters",
			companyID: ptr(int64(7)),
			filter: domain.AuditFilter{
				ID:         ptr(int64(3)),
				EventType:  "sale.created",
				UserID:     ptr(int64(9)),
				EntityType: "sale",
				EntityID:   ptr(int64(11)),
				DateFrom:   &from,
				DateTo:     &to,
			},
			want: " WHERE company_id = $1 AND id = $2 AND event_type = $3 AND user_id = $4" +
				" AND entity_type = $5 AND entity_id = $6" +
				" AND (created_at AT TIME ZONE 'UTC')::date >= $7::date" +
				" AND (created_at AT TIME ZONE 'UTC')::date <= $8::date",
			wantArgs: []any{int64(7), int64(3), "sale.created", int64(9), "sale", int64(11), "2024-01-01", "2024-01-31"},
		},
		{
			name:     "dates without tenant",
			filter:   domain.AuditFilter{DateTo: &to},
			want:     " WHERE (created_at AT TIME ZONE 'UTC')::date <= $1::date",
			wantArgs: []any{"2024-01-31"},
		},
		{
			name:      "keyset cursor",
			companyID: ptr(int64(7)),
			filter:    domain.AuditFilter{BeforeID: ptr(int64(120)), EventType: "sale.created"},
			want:      " WHERE company_id = $1 AND id < $2 AND event_type = $3",
			wantArgs:  []any{int64(7), int64(120), "sale.created"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := auditWhere(tt.companyID, tt.filter)
			assert.Equal(t, tt.want, w.clause())
			assert.Equal(t, tt.wantArgs, w.args)
		})
	}
}

func TestWhereBuilder_TrailingArgs(t *testing.T) {
	t.Parallel()

	w := &whereBuilder{}
	w.add("event_type = ?", "login")
	assert.Equal(t, "$2", w.arg(50))
	assert.Equal(t, "$3", w.arg(0))
	assert.Equal(t, []any{"login", 50, 0}, w.args)
}

func TestRecordSQL(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		`INSERT INTO "products" ("id", "price") SELECT "id", "price" FROM jsonb_populate_record(NULL::"products", $1::jsonb)`,
		insertRowSQL("products", []string{"id", "price"}),
	)
	assert.Equal(t,
		`UPDATE "products" SET "price" = src."price" FROM jsonb_populate_record(NULL::"products", $1::jsonb) AS src WHERE "products"."id" = $2 AND "products"."company_id" = $3`,
		updateRowSQL("products", []string{"price"}),
	)
}

func TestRecordSQL_QuotesIdentifiers(t *testing.T) {
	t.Parallel()

	got := updateRowSQL(`evil"; DROP TABLE x; --`, []string{`a"b`})
	assert.Contains(t, got, `UPDATE "evil""; DROP TABLE x; --" SET "a""b" = src."a""b"`)
}

func TestSnapshotText(t *testing.T) {
	t.Parallel()

	assert.Nil(t, snapshotText(nil))
	assert.Equal(t, "{}", *snapshotText(payload.NewObject()))

	o := payload.ObjectOf(payload.M("price", payload.String("10.00")), payload.M("id", payload.Int(42)))
	assert.Equal(t, `{"price":"10.00","id":42}`, *snapshotText(o))
}

func TestDecodeSnapshot(t *testing.T) {
	t.Parallel()

	assert.Nil(t, decodeSnapshot(1, "old_data", nil))
	assert.Nil(t, decodeSnapshot(1, "old_data", ptr("not json")))

	empty := decodeSnapshot(1, "old_data", ptr("{}"))
	require.NotNil(t, empty)
	assert.Equal(t, 0, empty.Len())

	o := decodeSnapshot(1, "new_data", ptr(`{"z":1,"a":2}`))
	require.NotNil(t, o)
	assert.Equal(t, []string{"z", "a"}, o.Keys())
}

func TestIsUndefinedTable(t *testing.T) {
	t.Parallel()

	assert.True(t, isUndefinedTable(fmt.Errorf("query: %w", &pgconn.PgError{Code: "42P01"})))
	assert.False(t, isUndefinedTable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUndefinedTable(errors.New("boom")))
	assert.False(t, isUndefinedTable(nil))
}

func TestStorageErr(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := storageErr(cause)
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	require.ErrorIs(t, err, cause)
}
