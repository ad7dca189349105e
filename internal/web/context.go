package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/hobo/internal/core"
)

// WithRequestMetadata stores the client IP and User-Agent in ctx so stored
// files record who parsed them.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return core.ContextWithClient(ctx, ip, r.UserAgent())
}
