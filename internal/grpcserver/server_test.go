package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/pobradovic08/netdash/internal/model"
)

func startTestServer(t *testing.T) (*Server, healthpb.HealthClient) {
	t.Helper()

	s := NewServer(ServerDeps{})
	lis := bufconn.Listen(1 << 20)
	go s.Serve(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})
	return s, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestServingStatusFollowsMonitor(t *testing.T) {
	s, client := startTestServer(t)

	for _, svc := range []string{"", MonitorService} {
		if got := check(t, client, svc); got != healthpb.HealthCheckResponse_NOT_SERVING {
			t.Errorf("initial status of %q = %v, want NOT_SERVING", svc, got)
		}
	}

	s.CycleCompleted(model.MonitorStatus{Running: true, Cycles: 1})
	for _, svc := range []string{"", MonitorService} {
		if got := check(t, client, svc); got != healthpb.HealthCheckResponse_SERVING {
			t.Errorf("status of %q after cycle = %v, want SERVING", svc, got)
		}
	}

	s.Stopped()
	if got := check(t, client, MonitorService); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status after stop = %v, want NOT_SERVING", got)
	}
}

func TestUnknownService(t *testing.T) {
	_, client := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "other"}); err == nil {
		t.Fatal("expected NotFound for unknown service")
	}
}
