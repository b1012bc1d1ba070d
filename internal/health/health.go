// Package health serves the standard gRPC health service for the storefront
// process, driven by dependency pings.
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Checker pings one dependency.
type Checker func(ctx context.Context) error

type Server struct {
	grpc     *grpc.Server
	health   *grpchealth.Server
	checks   map[string]Checker
	interval time.Duration
	timeout  time.Duration
	logger   *logrus.Logger
}

// NewServer registers the health and reflection services. Each check is
// also exposed as its own service name, e.g. "mongo".
func NewServer(checks map[string]Checker, interval time.Duration, logger *logrus.Logger) *Server {
	gs := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	return &Server{
		grpc:     gs,
		health:   hs,
		checks:   checks,
		interval: interval,
		timeout:  2 * time.Second,
		logger:   logger,
	}
}

// Ready runs every check once, publishes the results and returns the first
// failure.
func (s *Server) Ready(ctx context.Context) error {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var failed error
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.checks[name](checkCtx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			s.logger.WithContext(ctx).WithError(err).WithField("check", name).Warn("health check failed")
			if failed == nil {
				failed = fmt.Errorf("%s: %w", name, err)
			}
		}
		s.health.SetServingStatus(name, status)
	}

	overall := healthpb.HealthCheckResponse_SERVING
	if failed != nil {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", overall)
	return failed
}

// Run serves on lis and refreshes statuses every interval until ctx is done.
func (s *Server) Run(ctx context.Context, lis net.Listener) error {
	_ = s.Ready(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpc.Serve(lis)
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			s.grpc.GracefulStop()
			return nil
		case err := <-errCh:
			if errors.Is(err, grpc.ErrServerStopped) {
				return nil
			}
			return err
		case <-ticker.C:
			_ = s.Ready(ctx)
		}
	}
}
