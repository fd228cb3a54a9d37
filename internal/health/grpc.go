package health

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCServer exposes the monitor through the standard gRPC health service so
// orchestrators can check the process without HTTP.
type GRPCServer struct {
	monitor  *Monitor
	port     int
	server   *grpc.Server
	health   *grpchealth.Server
	interval time.Duration
}

// NewGRPCServer creates a gRPC health server.
func NewGRPCServer(monitor *Monitor, port int) *GRPCServer {
	hs := grpchealth.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &GRPCServer{
		monitor:  monitor,
		port:     port,
		server:   srv,
		health:   hs,
		interval: 15 * time.Second,
	}
}

// Start serves until Stop is called, refreshing the serving status from the monitor.
func (g *GRPCServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", g.port))
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}

	go g.refresh(ctx)

	slog.Info("gRPC health server listening", "port", g.port)
	return g.server.Serve(lis)
}

// Stop gracefully stops the server.
func (g *GRPCServer) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}

func (g *GRPCServer) refresh(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		g.Update(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Update sets the overall serving status from the current report.
func (g *GRPCServer) Update(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if Aggregate(g.monitor.CheckHealth(ctx)) == StatusCritical {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus("", status)
}
