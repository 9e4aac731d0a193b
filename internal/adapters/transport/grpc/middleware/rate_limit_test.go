package middleware

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func ctxIP(ip string) context.Context {
	return peer.NewContext(context.Background(), &peer.Peer{
		Addr: &net.TCPAddr{IP: net.ParseIP(ip), Port: 42},
	})
}

func okHandler(context.Context, any) (any, error) { return "ok", nil }

func call(intc grpc.UnaryServerInterceptor, ctx context.Context) error {
	_, err := intc(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/test/Call"}, okHandler)
	return err
}

func TestRateLimitPerIP_BurstAllows(t *testing.T) {
	intc := NewRateLimitPerIP(1, 2, 100, time.Hour)
	ctx := ctxIP("192.0.2.1")

	require.NoError(t, call(intc, ctx))
	require.NoError(t, call(intc, ctx))

	err := call(intc, ctx)
	require.Error(t, err)
	require.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestRateLimitPerIP_SeparateCounters(t *testing.T) {
	intc := NewRateLimitPerIP(1, 1, 1000, time.Hour)

	require.NoError(t, call(intc, ctxIP("203.0.113.10")))
	require.Error(t, call(intc, ctxIP("203.0.113.10")))
	require.NoError(t, call(intc, ctxIP("198.51.100.5")))
}

func TestRateLimitPerIP_TTL_Evicts(t *testing.T) {
	ttl := 15 * time.Millisecond
	intc := NewRateLimitPerIP(1, 1, 10, ttl)

	require.NoError(t, call(intc, ctxIP("10.10.10.10")))
	time.Sleep(3 * ttl)
	require.NoError(t, call(intc, ctxIP("10.10.10.10")))
}

func TestRateLimitPerIP_NoPeerRejected(t *testing.T) {
	intc := NewRateLimitPerIP(100, 100, 10, time.Hour)

	err := call(intc, context.Background())
	require.Equal(t, codes.ResourceExhausted, status.Code(err))
}
