package domain

import (
	"context"
	"time"

	"github.com/gosuda/trail/internal/payload"
)

// Reserved payload keys carrying the event signature. They are written into
// the stored payload after insert and stripped again on read.
const (
	PayloadKeySignature          = "_signature"
	PayloadKeySignatureTimestamp = "_signature_timestamp"
)

// SignatureTimeLayout is the layout of the timestamp fed into the signature.
const SignatureTimeLayout = "2006-01-02 15:04:05"

// AuditEvent is a single entry of the append-only audit log.
type AuditEvent struct {
	ID                 int64           `json:"id"`
	CompanyID          *int64          `json:"company_id"`
	UserID             *int64          `json:"user_id"`
	EventType          string          `json:"event_type"` // dotted, e.g. "sale.created"
	EntityType         *string         `json:"entity_type"`
	EntityID           *int64          `json:"entity_id"`
	Payload            *payload.Object `json:"payload"`
	IPAddress          *string         `json:"ip_address"`
	CreatedAt          time.Time       `json:"created_at"`
	Signature          string          `json:"signature,omitempty"`
	SignatureTimestamp string          `json:"signature_timestamp,omitempty"`

	// RawPayload is the payload column exactly as stored.
	RawPayload []byte `json:"-"`
}

// AuditFilter narrows audit log queries. Zero values mean "no constraint".
// DateFrom and DateTo are inclusive and compared against the event's UTC date.
// BeforeID keeps only events with a smaller id and switches listing to id order.
type AuditFilter struct {
	EventType  string
	UserID     *int64
	EntityType string
	EntityID   *int64
	ID         *int64
	BeforeID   *int64
	DateFrom   *time.Time
	DateTo     *time.Time
}

// EventStat aggregates audit activity for one event type.
type EventStat struct {
	EventType   string `json:"event_type" yaml:"event_type"`
	Count       int64  `json:"count" yaml:"count"`
	UniqueUsers int64  `json:"unique_users" yaml:"unique_users"`
	ActiveDays  int64  `json:"active_days" yaml:"active_days"`
}

// SignFunc receives the store-assigned id and creation time of a freshly
// inserted event and returns the payload to persist in its place.
type SignFunc func(id int64, createdAt time.Time) ([]byte, error)

// AuditRepository persists audit events. A nil companyID on reads means
// "all tenants".
type AuditRepository interface {
	// Append inserts ev (RawPayload holds the unsigned payload), calls sign
	// with the assigned id and timestamp and stores its result, all within
	// one transaction. ID, CreatedAt and RawPayload are updated on success.
	Append(ctx context.Context, ev *AuditEvent, sign SignFunc) error
	GetByID(ctx context.Context, id int64) (*AuditEvent, error)
	List(ctx context.Context, companyID *int64, filter AuditFilter, limit, offset int) ([]*AuditEvent, error)
	Count(ctx context.Context, companyID *int64, filter AuditFilter) (int64, error)
	Stats(ctx context.Context, companyID *int64, from, to *time.Time) ([]*EventStat, error)
}
