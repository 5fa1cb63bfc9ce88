// Package audit writes, reads and verifies the signed audit log.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/sjson"

	"github.com/gosuda/trail/internal/domain"
	"github.com/gosuda/trail/internal/payload"
)

var ErrEventTypeRequired = errors.New("audit: event type is required")

// Publisher fans logged events out to live subscribers.
type Publisher interface {
	PublishAuditEvent(ctx context.Context, ev *domain.AuditEvent) error
}

// Service is the audit log writer, reader and signature verifier.
type Service struct {
	repo      domain.AuditRepository
	signer    *Signer
	publisher Publisher
}

type Option func(*Service)

// WithPublisher publishes every committed event. Publish failures are
// logged and otherwise ignored.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func NewService(repo domain.AuditRepository, signer *Signer, opts ...Option) *Service {
	s := &Service{repo: repo, signer: signer}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EventInput describes an event to log. IPAddress wins over Client when set.
type EventInput struct {
	CompanyID  *int64
	UserID     *int64
	EventType  string
	EntityType *string
	EntityID   *int64
	Payload    *payload.Object
	IPAddress  *string
	Client     domain.ClientInfo
}

// LogEvent appends a signed event and returns its id. The insert and the
// signature are committed together, so an unsigned row is never visible.
func (s *Service) LogEvent(ctx context.Context, in EventInput) (int64, error) {
	if strings.TrimSpace(in.EventType) == "" {
		return 0, fmt.Errorf("audit.LogEvent: %w", ErrEventTypeRequired)
	}

	ip := in.IPAddress
	if ip == nil {
		ip = in.Client.ResolveIP()
	}

	body := in.Payload.Clone()
	for _, key := range []string{domain.PayloadKeySignature, domain.PayloadKeySignatureTimestamp} {
		if body.Delete(key) {
			log.Warn().Str("event_type", in.EventType).Str("key", key).Msg("audit: dropped reserved payload key")
		}
	}
	canonical := body.Canonical()

	ev := &domain.AuditEvent{
		CompanyID:  in.CompanyID,
		UserID:     in.UserID,
		EventType:  in.EventType,
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		Payload:    body,
		IPAddress:  ip,
		RawPayload: canonical,
	}

	err := s.repo.Append(ctx, ev, func(id int64, createdAt time.Time) ([]byte, error) {
		ts := createdAt.UTC().Format(domain.SignatureTimeLayout)
		ev.Signature = s.signer.Sign(id, in.CompanyID, in.EventType, canonical, ts)
		ev.SignatureTimestamp = ts
		return attachSignature(canonical, ev.Signature, ts)
	})
	if err != nil {
		log.Error().Err(err).Str("event_type", in.EventType).Msg("audit: failed to log event")
		return 0, fmt.Errorf("audit.LogEvent: %w", err)
	}

	if s.publisher != nil {
		if pubErr := s.publisher.PublishAuditEvent(ctx, ev); pubErr != nil {
			log.Warn().Err(pubErr).Int64("event_id", ev.ID).Msg("audit: failed to publish event")
		}
	}

	return ev.ID, nil
}

// Record logs an event for callers whose own work must not depend on the
// audit log. It returns 0 when logging failed; the failure is logged.
func (s *Service) Record(ctx context.Context, in EventInput) int64 {
	id, _ := s.LogEvent(ctx, in)
	return id
}

// attachSignature appends the signature fields to the canonical payload.
// Appending keeps the signed bytes intact as a prefix of the stored text.
func attachSignature(canonical []byte, signature, timestamp string) ([]byte, error) {
	out, err := sjson.SetBytes(append([]byte(nil), canonical...), domain.PayloadKeySignature, signature)
	if err != nil {
		return nil, fmt.Errorf("attach signature: %w", err)
	}
	out, err = sjson.SetBytes(out, domain.PayloadKeySignatureTimestamp, timestamp)
	if err != nil {
		return nil, fmt.Errorf("attach signature timestamp: %w", err)
	}
	return out, nil
}
