package versioning_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gosuda/trail/internal/domain"
	"github.com/gosuda/trail/internal/payload"
)

type memTable struct {
	columns []string
	rows    map[int64]*payload.Object
}

// memStore is an in-memory versions table plus business tables. WithinTx
// restores the previous state when fn fails.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	versions []*domain.VersionRecord
	tables   map[string]*memTable

	createErr error
	inTx      bool
}

var (
	_ domain.VersionRepository = (*memStore)(nil)
	_ domain.RecordStore       = (*memStore)(nil)
	_ domain.VersionUnitOfWork = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{tables: map[string]*memTable{}}
}

func (m *memStore) addTable(name string, columns ...string) {
	m.tables[name] = &memTable{columns: columns, rows: map[int64]*payload.Object{}}
}

func (m *memStore) putRow(table string, row *payload.Object) {
	m.tables[table].rows[rowID(row)] = row
}

func (m *memStore) row(table string, id int64) (*payload.Object, bool) {
	r, ok := m.tables[table].rows[id]
	return r, ok
}

func rowID(row *payload.Object) int64 {
	v, _ := row.Get("id")
	lit, _ := v.Literal()
	var id int64
	fmt.Sscan(lit, &id)
	return id
}

func (m *memStore) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *memStore) Create(_ context.Context, v *domain.VersionRecord) error {
	defer m.lock()()

	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	v.ID = m.nextID
	v.CreatedAt = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC).Add(time.Duration(m.nextID) * time.Minute)
	stored := *v
	m.versions = append(m.versions, &stored)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id, companyID int64) (*domain.VersionRecord, error) {
	defer m.lock()()

	for _, v := range m.versions {
		if v.ID == id && v.CompanyID == companyID {
			c := *v
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) ListByRecord(_ context.Context, table string, recordID int64, companyID *int64) ([]*domain.VersionRecord, error) {
	defer m.lock()()

	var out []*domain.VersionRecord
	for _, v := range m.versions {
		if v.TableName != table || v.RecordID != recordID {
			continue
		}
		if companyID != nil && v.CompanyID != *companyID {
			continue
		}
		c := *v
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) Columns(_ context.Context, table string) ([]string, error) {
	t, ok := m.tables[table]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t.columns, nil
}

func (m *memStore) InsertRow(_ context.Context, table string, row *payload.Object) error {
	t, ok := m.tables[table]
	if !ok {
		return domain.ErrNotFound
	}
	id := rowID(row)
	if _, exists := t.rows[id]; exists {
		return domain.ErrConflict
	}
	t.rows[id] = row.Clone()
	return nil
}

func (m *memStore) UpdateRow(_ context.Context, table string, recordID, companyID int64, cols *payload.Object) (int64, error) {
	t, ok := m.tables[table]
	if !ok {
		return 0, domain.ErrNotFound
	}
	row, ok := t.rows[recordID]
	if !ok {
		return 0, nil
	}
	if c, ok := row.Get("company_id"); ok {
		if lit, _ := c.Literal(); lit != fmt.Sprint(companyID) {
			return 0, nil
		}
	}
	for _, member := range cols.Members() {
		row.Set(member.Key, member.Value)
	}
	return 1, nil
}

func (m *memStore) WithinTx(_ context.Context, fn func(tx domain.VersionTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	savedVersions := append([]*domain.VersionRecord(nil), m.versions...)
	savedNext := m.nextID
	savedTables := map[string]map[int64]*payload.Object{}
	for name, t := range m.tables {
		rows := make(map[int64]*payload.Object, len(t.rows))
		for id, r := range t.rows {
			rows[id] = r.Clone()
		}
		savedTables[name] = rows
	}

	m.inTx = true
	err := fn(memTx{m})
	m.inTx = false

	if err != nil {
		m.versions = savedVersions
		m.nextID = savedNext
		for name, rows := range savedTables {
			m.tables[name].rows = rows
		}
	}
	return err
}

type memTx struct{ m *memStore }

func (t memTx) Versions() domain.VersionRepository { return t.m }
func (t memTx) Records() domain.RecordStore        { return t.m }

var errDiskFull = errors.New("disk full")
