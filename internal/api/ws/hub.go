package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/trail/internal/server/middleware"
	redisstore "github.com/gosuda/trail/internal/store/redis"
)

// Subscriber delivers messages published on a channel until cleanup is
// called or ctx ends. *redisstore.PubSub satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Hub streams live audit events over WebSocket, backed by Redis pub/sub.
type Hub struct {
	pubsub Subscriber
}

func NewHub(pubsub Subscriber) *Hub {
	return &Hub{pubsub: pubsub}
}

// ServeAudit streams the caller's audit feed. Members and admins receive
// their own company's events; operators without a company receive events
// logged without one.
func (h *Hub) ServeAudit(w http.ResponseWriter, r *http.Request) {
	companyID, ok := middleware.TenantScope(r.Context())
	if !ok {
		http.Error(w, "missing tenant", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Reads only service control frames; a client close cancels ctx.
	ctx := conn.CloseRead(r.Context())
	channel := redisstore.AuditChannel(companyID)

	messages, cleanup, err := h.pubsub.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
