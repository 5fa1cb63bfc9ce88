package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/gosuda/trail/internal/domain"
)

type PubSub struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &PubSub{client: client}, nil
}

func (ps *PubSub) Close() error {
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("redis.PubSub.Close: %w", err)
	}
	return nil
}

func (ps *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ps.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.Publish: %w", err)
	}
	return nil
}

// PublishAuditEvent broadcasts a committed event on its tenant's audit
// channel.
func (ps *PubSub) PublishAuditEvent(ctx context.Context, ev *domain.AuditEvent) error {
	msg, err := EncodeAuditEvent(ev)
	if err != nil {
		return fmt.Errorf("redis.PubSub.PublishAuditEvent: %w", err)
	}
	return ps.Publish(ctx, AuditChannel(ev.CompanyID), msg)
}

func (ps *PubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := ps.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.PubSub.Subscribe: receive confirmation: %w", err)
	}

	out := make(chan []byte, 64)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cleanup := func() {
		_ = sub.Close()
	}

	return out, cleanup, nil
}

// AuditChannel returns the Redis channel carrying a tenant's audit feed.
// Events without a tenant go to "audit:global".
func AuditChannel(companyID *int64) string {
	if companyID == nil {
		return "audit:global"
	}
	return "audit:" + strconv.FormatInt(*companyID, 10)
}

// AuditFeedMessage is the JSON document published for each audit event.
// The signature stays inside the stored payload and is not broadcast.
type AuditFeedMessage struct {
	ID         int64           `json:"id"`
	CompanyID  *int64          `json:"company_id"`
	UserID     *int64          `json:"user_id"`
	EventType  string          `json:"event_type"`
	EntityType *string         `json:"entity_type"`
	EntityID   *int64          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  string          `json:"created_at"`
}

func EncodeAuditEvent(ev *domain.AuditEvent) ([]byte, error) {
	body := json.RawMessage("{}")
	if ev.Payload != nil {
		body = ev.Payload.Canonical()
	}

	b, err := json.Marshal(AuditFeedMessage{
		ID:         ev.ID,
		CompanyID:  ev.CompanyID,
		UserID:     ev.UserID,
		EventType:  ev.EventType,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		Payload:    body,
		CreatedAt:  ev.CreatedAt.UTC().Format(domain.SignatureTimeLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("encode audit event %d: %w", ev.ID, err)
	}
	return b, nil
}
