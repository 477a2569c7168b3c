// Package netx extracts client addresses for per-client rate limiting.
package netx

import (
	"context"
	"net"
	"net/http"
	"strings"

	"google.golang.org/grpc/peer"
)

// HostOnly strips the port from addr. Values without a port are returned
// unchanged.
func HostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// ClientIP prefers the first X-Forwarded-For entry, then X-Real-IP, then
// the connection's remote address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return HostOnly(r.RemoteAddr)
}

// PeerHost returns the host of the gRPC peer in ctx, or "unknown".
func PeerHost(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	return HostOnly(p.Addr.String())
}
