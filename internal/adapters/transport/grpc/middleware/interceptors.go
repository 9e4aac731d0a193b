package middleware

import (
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_zap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const (
	visitorCacheSize = 10_000
	visitorTTL       = time.Hour
)

func RecoveryInterceptor() grpc.UnaryServerInterceptor {
	return grpc_recovery.UnaryServerInterceptor()
}

func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return grpc_zap.UnaryServerInterceptor(logger)
}

// ChainUnaryServer builds the unary chain: recovery, logging, metrics (when
// metrics is non-nil) and then the per-peer rate limit. A non-positive limit
// disables rate limiting.
func ChainUnaryServer(logger *zap.Logger, metrics *grpc_prometheus.ServerMetrics, limit, burst int) grpc.UnaryServerInterceptor {
	chain := []grpc.UnaryServerInterceptor{
		RecoveryInterceptor(),
		LoggingInterceptor(logger),
	}
	if metrics != nil {
		chain = append(chain, metrics.UnaryServerInterceptor())
	}
	if limit > 0 {
		chain = append(chain, NewRateLimitPerIP(limit, burst, visitorCacheSize, visitorTTL))
	}
	return grpc_middleware.ChainUnaryServer(chain...)
}
