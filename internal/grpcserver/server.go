package grpcserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/pobradovic08/netdash/internal/model"
	"github.com/pobradovic08/netdash/internal/tlsutil"
)

// MonitorService is the health-checking service name that tracks the
// monitoring loop.
const MonitorService = "netdash.Monitor"

// Server exposes the standard gRPC health-checking protocol. Its serving
// status follows the monitoring loop.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	listenAddr string
}

// ServerDeps holds the dependencies for the gRPC server.
type ServerDeps struct {
	ListenAddr string
	// CertLoader enables TLS when set.
	CertLoader *tlsutil.CertificateLoader
}

// NewServer creates a gRPC server with keepalive configuration. Both the
// overall status and MonitorService start as NOT_SERVING.
func NewServer(deps ServerDeps) *Server {
	var opts []grpc.ServerOption

	if deps.CertLoader != nil {
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsutil.NewServerTLSConfig(deps.CertLoader))))
	} else {
		slog.Warn("gRPC server starting without TLS")
	}

	opts = append(opts,
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             10 * time.Second,
			PermitWithoutStream: true,
		}),
	)

	s := &Server{
		grpcServer: grpc.NewServer(opts...),
		health:     health.NewServer(),
		listenAddr: deps.ListenAddr,
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)

	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	reflection.Register(s.grpcServer)
	return s
}

func (s *Server) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(MonitorService, st)
}

// CycleCompleted marks the server SERVING once the monitor has produced
// health data.
func (s *Server) CycleCompleted(model.MonitorStatus) {
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
}

// Stopped marks the server NOT_SERVING.
func (s *Server) Stopped() {
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("gRPC listen: %w", err)
	}
	return s.Serve(lis)
}

// Serve accepts connections on lis until Shutdown.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("starting gRPC server", "addr", lis.Addr().String())
	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("gRPC serve: %w", err)
	}
	return nil
}

// Shutdown reports NOT_SERVING to watchers and stops the server, waiting for
// pending RPCs until ctx expires.
func (s *Server) Shutdown(ctx context.Context) {
	slog.Info("shutting down gRPC server")
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}
}
