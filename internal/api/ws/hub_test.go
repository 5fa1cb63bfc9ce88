package ws_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/trail/internal/api/ws"
	"github.com/gosuda/trail/internal/auth"
	"github.com/gosuda/trail/internal/server/middleware"
)

type fakeSubscriber struct {
	mu       sync.Mutex
	channels []string
	feed     chan []byte
	err      error
}

func (f *fakeSubscriber) Subscribe(_ context.Context, channel string) (<-chan []byte, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channel)
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.feed, func() {}, nil
}

func (f *fakeSubscriber) subscribed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.channels...)
}

// withIdentity injects what the Auth middleware would have set.
func withIdentity(companyID *int64, role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.ContextKeyUserRole, role)
		if companyID != nil {
			ctx = context.WithValue(ctx, middleware.ContextKeyCompanyID, *companyID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	return conn
}

func TestServeAudit_StreamsCompanyFeed(t *testing.T) {
	t.Parallel()

	sub := &fakeSubscriber{feed: make(chan []byte, 1)}
	companyID := int64(3)
	srv := httptest.NewServer(withIdentity(&companyID, auth.RoleMember, http.HandlerFunc(ws.NewHub(sub).ServeAudit)))
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.CloseNow()

	sub.feed <- []byte(`{"id":1,"event_type":"sale.created"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	typ, msg, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)
	assert.JSONEq(t, `{"id":1,"event_type":"sale.created"}`, string(msg))
	assert.Equal(t, []string{"audit:3"}, sub.subscribed())
}

func TestServeAudit_OperatorGetsGlobalFeed(t *testing.T) {
	t.Parallel()

	sub := &fakeSubscriber{feed: make(chan []byte)}
	srv := httptest.NewServer(withIdentity(nil, auth.RoleOperator, http.HandlerFunc(ws.NewHub(sub).ServeAudit)))
	defer srv.Close()

	conn := dial(t, srv)
	close(sub.feed)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _, err := conn.Read(ctx)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
	assert.Equal(t, []string{"audit:global"}, sub.subscribed())
}

func TestServeAudit_SubscribeFailure(t *testing.T) {
	t.Parallel()

	sub := &fakeSubscriber{err: errors.New("redis down")}
	companyID := int64(3)
	srv := httptest.NewServer(withIdentity(&companyID, auth.RoleMember, http.HandlerFunc(ws.NewHub(sub).ServeAudit)))
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.CloseNow()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _, err := conn.Read(ctx)
	assert.Equal(t, websocket.StatusInternalError, websocket.CloseStatus(err))
}

func TestServeAudit_NoTenant(t *testing.T) {
	t.Parallel()

	sub := &fakeSubscriber{}
	srv := httptest.NewServer(withIdentity(nil, auth.RoleMember, http.HandlerFunc(ws.NewHub(sub).ServeAudit)))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, sub.subscribed())
}
