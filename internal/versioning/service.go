// Package versioning records before/after snapshots of tracked rows and
// restores earlier snapshots.
package versioning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/trail/internal/domain"
	"github.com/gosuda/trail/internal/payload"
)

var ErrTableRequired = errors.New("versioning: table name is required")

// internalTables hold the service's own state and are never restored into.
var internalTables = map[string]struct{}{ //nolint:gochecknoglobals // fixed set
	"audit_logs":      {},
	"record_versions": {},
	"system_settings": {},
}

// Service is the version recorder and rollback engine.
type Service struct {
	repo    domain.VersionRepository
	uow     domain.VersionUnitOfWork
	tracked map[string]struct{}
}

// NewService creates a Service. Rollbacks are limited to trackedTables;
// an empty list allows every table except the service's own.
func NewService(repo domain.VersionRepository, uow domain.VersionUnitOfWork, trackedTables []string) *Service {
	tracked := make(map[string]struct{}, len(trackedTables))
	for _, t := range trackedTables {
		tracked[t] = struct{}{}
	}
	return &Service{repo: repo, uow: uow, tracked: tracked}
}

// VersionInput describes one mutation of a tracked row.
type VersionInput struct {
	CompanyID int64
	TableName string
	RecordID  int64
	Action    domain.VersionAction
	OldData   *payload.Object // nil for creates
	NewData   *payload.Object // nil for deletes
	UserID    *int64
	IPAddress *string
	Client    domain.ClientInfo
}

// CreateVersion appends a version record and returns its id.
func (s *Service) CreateVersion(ctx context.Context, in VersionInput) (int64, error) {
	if !in.Action.Valid() {
		return 0, fmt.Errorf("versioning.CreateVersion: %w: %q", domain.ErrInvalidAction, in.Action)
	}
	if strings.TrimSpace(in.TableName) == "" {
		return 0, fmt.Errorf("versioning.CreateVersion: %w", ErrTableRequired)
	}

	ip := in.IPAddress
	if ip == nil {
		ip = in.Client.ResolveIP()
	}

	v := &domain.VersionRecord{
		CompanyID: in.CompanyID,
		TableName: in.TableName,
		RecordID:  in.RecordID,
		Action:    in.Action,
		OldData:   in.OldData,
		NewData:   in.NewData,
		UserID:    in.UserID,
		IPAddress: ip,
	}

	if err := s.repo.Create(ctx, v); err != nil {
		log.Error().Err(err).
			Str("table", in.TableName).
			Int64("record_id", in.RecordID).
			Str("action", string(in.Action)).
			Msg("versioning: failed to record version")
		return 0, fmt.Errorf("versioning.CreateVersion: %w", err)
	}

	return v.ID, nil
}

// Record is CreateVersion for callers that must not fail on versioning
// errors. It returns 0 when recording failed.
func (s *Service) Record(ctx context.Context, in VersionInput) int64 {
	id, _ := s.CreateVersion(ctx, in)
	return id
}

// GetVersionHistory returns the version chain of a row, newest first.
func (s *Service) GetVersionHistory(ctx context.Context, tableName string, recordID int64, companyID *int64) ([]*domain.VersionRecord, error) {
	versions, err := s.repo.ListByRecord(ctx, tableName, recordID, companyID)
	if err != nil {
		return nil, fmt.Errorf("versioning.GetVersionHistory: %w", err)
	}
	return versions, nil
}

func (s *Service) GetVersion(ctx context.Context, versionID, companyID int64) (*domain.VersionRecord, error) {
	v, err := s.repo.GetByID(ctx, versionID, companyID)
	if err != nil {
		return nil, fmt.Errorf("versioning.GetVersion: %w", err)
	}
	return v, nil
}

func (s *Service) isTracked(table string) bool {
	if _, internal := internalTables[table]; internal {
		return false
	}
	if len(s.tracked) == 0 {
		return true
	}
	_, ok := s.tracked[table]
	return ok
}
