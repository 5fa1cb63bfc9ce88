package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/trail/internal/domain"
	"github.com/gosuda/trail/internal/payload"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// GetLogs returns events newest first. A nil companyID spans all tenants.
func (s *Service) GetLogs(ctx context.Context, companyID *int64, filter domain.AuditFilter, limit, offset int) ([]*domain.AuditEvent, error) {
	events, err := s.repo.List(ctx, companyID, filter, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("audit.GetLogs: %w", err)
	}

	for _, ev := range events {
		decodeStoredPayload(ev)
	}

	return events, nil
}

func (s *Service) GetLogsCount(ctx context.Context, companyID *int64, filter domain.AuditFilter) (int64, error) {
	n, err := s.repo.Count(ctx, companyID, filter)
	if err != nil {
		return 0, fmt.Errorf("audit.GetLogsCount: %w", err)
	}
	return n, nil
}

// GetEvent returns one event. When companyID is set, events of other tenants
// are reported as not found.
func (s *Service) GetEvent(ctx context.Context, id int64, companyID *int64) (*domain.AuditEvent, error) {
	ev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("audit.GetEvent: %w", err)
	}
	if !sameTenant(companyID, ev.CompanyID) {
		return nil, fmt.Errorf("audit.GetEvent: %w", domain.ErrNotFound)
	}

	decodeStoredPayload(ev)
	return ev, nil
}

// GetEventStats aggregates events per type, busiest first.
func (s *Service) GetEventStats(ctx context.Context, companyID *int64, from, to *time.Time) ([]*domain.EventStat, error) {
	stats, err := s.repo.Stats(ctx, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("audit.GetEventStats: %w", err)
	}
	return stats, nil
}

// decodeStoredPayload fills Payload and the signature fields from
// RawPayload. A payload that does not decode becomes an empty object.
func decodeStoredPayload(ev *domain.AuditEvent) {
	obj, err := payload.ParseObject(ev.RawPayload)
	if err != nil {
		log.Warn().Err(err).Int64("event_id", ev.ID).Msg("audit: stored payload is not a json object")
		ev.Payload = payload.NewObject()
		return
	}

	if v, ok := obj.Get(domain.PayloadKeySignature); ok {
		ev.Signature, _ = v.Str()
		obj.Delete(domain.PayloadKeySignature)
	}
	if v, ok := obj.Get(domain.PayloadKeySignatureTimestamp); ok {
		ev.SignatureTimestamp, _ = v.Str()
		obj.Delete(domain.PayloadKeySignatureTimestamp)
	}

	ev.Payload = obj
}

func sameTenant(scope, actual *int64) bool {
	if scope == nil {
		return true
	}
	return actual != nil && *actual == *scope
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
