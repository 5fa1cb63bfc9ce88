package audit_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gosuda/trail/internal/domain"
)

// memAuditRepo is an in-memory AuditRepository. Rows are kept as they would
// be stored so tests can tamper with them directly.
type memAuditRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*domain.AuditEvent
	now    time.Time

	appendErr error
	listArgs  struct{ limit, offset int }
}

func newMemAuditRepo() *memAuditRepo {
	return &memAuditRepo{
		rows: map[int64]*domain.AuditEvent{},
		now:  time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC),
	}
}

func (m *memAuditRepo) Append(_ context.Context, ev *domain.AuditEvent, sign domain.SignFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.appendErr != nil {
		return m.appendErr
	}

	m.nextID++
	createdAt := m.now.Add(time.Duration(m.nextID) * time.Second)

	signed, err := sign(m.nextID, createdAt)
	if err != nil {
		return err
	}

	ev.ID = m.nextID
	ev.CreatedAt = createdAt
	ev.RawPayload = signed

	row := *ev
	row.Payload = nil
	row.RawPayload = append([]byte(nil), signed...)
	m.rows[ev.ID] = &row
	return nil
}

func (m *memAuditRepo) GetByID(_ context.Context, id int64) (*domain.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *row
	cp.RawPayload = append([]byte(nil), row.RawPayload...)
	return &cp, nil
}

func (m *memAuditRepo) List(_ context.Context, companyID *int64, _ domain.AuditFilter, limit, offset int) ([]*domain.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listArgs.limit, m.listArgs.offset = limit, offset

	var out []*domain.AuditEvent
	for _, row := range m.rows {
		if companyID != nil && (row.CompanyID == nil || *row.CompanyID != *companyID) {
			continue
		}
		cp := *row
		cp.RawPayload = append([]byte(nil), row.RawPayload...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memAuditRepo) Count(ctx context.Context, companyID *int64, filter domain.AuditFilter) (int64, error) {
	rows, err := m.List(ctx, companyID, filter, 0, 0)
	return int64(len(rows)), err
}

func (m *memAuditRepo) Stats(_ context.Context, _ *int64, _, _ *time.Time) ([]*domain.EventStat, error) {
	return []*domain.EventStat{{EventType: "sale.created", Count: 2, UniqueUsers: 1, ActiveDays: 1}}, nil
}

// tamper rewrites a stored row in place.
func (m *memAuditRepo) tamper(id int64, fn func(row *domain.AuditEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.rows[id])
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.AuditEvent
	err    error
}

func (p *recordingPublisher) PublishAuditEvent(_ context.Context, ev *domain.AuditEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}
