package middleware

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/Miraines/jwtauth/internal/infra/ratelimit"
)

var errRateLimited = status.Error(codes.ResourceExhausted, "rate limit exceeded")

// NewRateLimitPerIP limits unary calls per peer host. Calls without peer
// information are rejected.
func NewRateLimitPerIP(limit, burst, cacheSize int, ttl time.Duration) grpc.UnaryServerInterceptor {
	visitors := ratelimit.New(limit, burst, cacheSize, ttl)

	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		p, ok := peer.FromContext(ctx)
		if !ok || p.Addr == nil {
			return nil, errRateLimited
		}
		host, _, err := net.SplitHostPort(p.Addr.String())
		if err != nil {
			host = p.Addr.String()
		}

		if !visitors.Allow(host) {
			return nil, errRateLimited
		}
		return handler(ctx, req)
	}
}
