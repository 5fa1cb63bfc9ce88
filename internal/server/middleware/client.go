package middleware

import (
	"context"
	"net/http"

	"github.com/gosuda/trail/internal/domain"
)

// ClientInfo records the X-Forwarded-For header and the peer address of the
// request so writers can attribute events to the originating client.
func ClientInfo() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := domain.ClientInfo{
				ForwardedFor: r.Header.Get("X-Forwarded-For"),
				RemoteAddr:   r.RemoteAddr,
			}
			ctx := context.WithValue(r.Context(), ContextKeyClientInfo, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
