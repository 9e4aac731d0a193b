package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health-check service name reported next to the
// overall ("") status.
const ServiceName = "jwtauth.Auth"

const (
	defaultProbeInterval = 10 * time.Second
	defaultProbeTimeout  = 2 * time.Second
)

// Probe reports whether a dependency is reachable.
type Probe interface {
	Ping(ctx context.Context) error
}

type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthChecker keeps a grpc health server in sync with its probes. Any
// failing probe turns the service NOT_SERVING.
type HealthChecker struct {
	srv      *health.Server
	probes   map[string]Probe
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
}

func NewHealthChecker(log *zap.Logger, interval time.Duration, probes map[string]Probe) *HealthChecker {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	return &HealthChecker{
		srv:      health.NewServer(),
		probes:   probes,
		interval: interval,
		timeout:  defaultProbeTimeout,
		log:      log,
	}
}

func (h *HealthChecker) Server() grpc_health_v1.HealthServer { return h.srv }

// Check runs every probe once and publishes the result.
func (h *HealthChecker) Check(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	st := grpc_health_v1.HealthCheckResponse_SERVING
	for name, p := range h.probes {
		pctx, cancel := context.WithTimeout(ctx, h.timeout)
		err := p.Ping(pctx)
		cancel()
		if err != nil {
			h.log.Warn("health probe failed", zap.String("probe", name), zap.Error(err))
			st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	h.srv.SetServingStatus("", st)
	h.srv.SetServingStatus(ServiceName, st)
	return st
}

// Run probes on every tick until ctx is done, then marks everything
// NOT_SERVING so in-flight watchers see the shutdown.
func (h *HealthChecker) Run(ctx context.Context) {
	h.Check(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
