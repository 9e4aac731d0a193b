package server

import (
	"context"
	"errors"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Miraines/jwtauth/internal/adapters/transport/grpc/middleware"
	"github.com/Miraines/jwtauth/internal/infra/config"
)

const grpcStopTimeout = 5 * time.Second

// GRPCDeps are the pieces served on the gRPC port.
type GRPCDeps struct {
	Health  grpc_health_v1.HealthServer
	Metrics *grpc_prometheus.ServerMetrics
	Logger  *zap.Logger
}

// StartGRPCServer listens on cfg.GRPCAddress and serves until ctx is done.
func StartGRPCServer(ctx context.Context, cfg *config.Config, deps GRPCDeps) error {
	lis, err := net.Listen("tcp", cfg.GRPCAddress)
	if err != nil {
		return err
	}
	return Serve(ctx, lis, cfg, deps)
}

// Serve runs the gRPC server on lis and stops it gracefully once ctx is
// cancelled, forcing a stop after grpcStopTimeout.
func Serve(ctx context.Context, lis net.Listener, cfg *config.Config, deps GRPCDeps) error {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(middleware.ChainUnaryServer(logger, deps.Metrics, cfg.RateLimitRPS, cfg.RateLimitBurst)),
	}
	if cfg.TLSEnabled() {
		creds, err := credentials.NewServerTLSFromFile(cfg.HTTPSCertFile, cfg.HTTPSKeyFile)
		if err != nil {
			_ = lis.Close()
			return err
		}
		opts = append(opts, grpc.Creds(creds))
	}

	grpcServer := grpc.NewServer(opts...)
	grpc_health_v1.RegisterHealthServer(grpcServer, deps.Health)
	reflection.Register(grpcServer)
	if deps.Metrics != nil {
		deps.Metrics.InitializeMetrics(grpcServer)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		serveErr <- grpcServer.Serve(lis)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("stopping gRPC server")

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-time.After(grpcStopTimeout):
		grpcServer.Stop()
	case <-done:
	}
	logger.Info("gRPC server stopped")
	return nil
}
