package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/trail/internal/domain"
	"github.com/gosuda/trail/internal/secrets"
)

//go:embed schema.sql
var schema string

// querier is the subset of pgxpool.Pool and pgx.Tx used by the repositories.
type querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool     *pgxpool.Pool
	audit    *AuditRepo
	versions *VersionRepo
	settings *SettingRepo
}

var _ domain.VersionUnitOfWork = (*Store)(nil)

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", storageErr(err))
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", storageErr(err))
	}

	return &Store{
		pool:     pool,
		audit:    NewAuditRepo(pool),
		versions: NewVersionRepo(pool),
		settings: NewSettingRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("store.Ping: %w", storageErr(err))
	}
	return nil
}

// Migrate creates the audit, version and settings tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("store.Migrate: %w", storageErr(err))
	}
	return nil
}

// WithinTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.VersionTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store.WithinTx: begin: %w", storageErr(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(txRepos{versions: NewVersionRepo(tx), records: NewRecordRepo(tx)}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store.WithinTx: commit: %w", storageErr(err))
	}
	return nil
}

func (s *Store) Audit() domain.AuditRepository       { return s.audit }
func (s *Store) Versions() domain.VersionRepository  { return s.versions }
func (s *Store) Settings() secrets.SettingRepository { return s.settings }

type txRepos struct {
	versions *VersionRepo
	records  *RecordRepo
}

func (t txRepos) Versions() domain.VersionRepository { return t.versions }
func (t txRepos) Records() domain.RecordStore        { return t.records }

// storageErr tags a driver error as a storage failure.
func storageErr(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
}
