package grpc

import (
	"contact-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"net"

	sdkgrpc "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const ServiceName = "contact-relay"

// HealthServer exposes the standard grpc.health.v1 service for probes.
// It is a supervised worker: Run listens on address until ctx is done.
type HealthServer struct {
	log     *slog.Logger
	address string
	health  *health.Server
}

func NewHealthServer(log *slog.Logger, address string) *HealthServer {
	return &HealthServer{log: log, address: address, health: health.NewServer()}
}

func (h *HealthServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", h.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.address, err)
	}
	return h.Serve(ctx, listener)
}

// Serve answers health checks on listener and reports SERVING until ctx is done.
func (h *HealthServer) Serve(ctx context.Context, listener net.Listener) error {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(sdkgrpc.UnaryLoggingInterceptor(h.log)))
	healthpb.RegisterHealthServer(s, h.health)
	h.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	h.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	errChan := make(chan error, 1)
	go func() {
		h.log.Info("Starting gRPC health server", "address", listener.Addr().String())
		if err := s.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC health server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		h.health.Shutdown()
		s.GracefulStop()
		h.log.Info("gRPC health server stopped")
		return nil
	case err := <-errChan:
		h.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
		return err
	}
}

// SetServing flips the status reported for the relay service.
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(ServiceName, status)
}
