package domain

import (
	"net"
	"strings"
)

// ClientInfo is the network context of the caller that triggered a write.
type ClientInfo struct {
	ForwardedFor string // raw X-Forwarded-For header value
	RemoteAddr   string // direct peer address, optionally with port
}

// ResolveIP returns the first entry of the forwarded-for chain, else the
// direct peer address without its port, else nil.
func (c ClientInfo) ResolveIP() *string {
	if c.ForwardedFor != "" {
		first, _, _ := strings.Cut(c.ForwardedFor, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return &ip
		}
	}

	addr := strings.TrimSpace(c.RemoteAddr)
	if addr == "" {
		return nil
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return &addr
}
