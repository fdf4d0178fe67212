package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const defaultCheckTimeout = 2 * time.Second

// Check tests one dependency. A non-nil error marks the service NOT_SERVING.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// HealthServer answers grpc.health.v1 checks by running dependency checks.
type HealthServer struct {
	healthpb.UnimplementedHealthServer
	serviceName string
	checks      []Check
	timeout     time.Duration
}

func NewHealthServer(serviceName string, checks ...Check) *HealthServer {
	return &HealthServer{
		serviceName: serviceName,
		checks:      checks,
		timeout:     defaultCheckTimeout,
	}
}

func (s *HealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" && svc != s.serviceName {
		return nil, status.Error(codes.NotFound, "unknown service")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	l := loggerWithContext(ctx)
	for _, check := range s.checks {
		if err := check.Fn(ctx); err != nil {
			l.WithError(err).WithField("check", check.Name).Warn("Health check failed")
			return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
		}
	}

	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
