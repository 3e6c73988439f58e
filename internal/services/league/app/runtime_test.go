package app

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	platformgrpc "github.com/louisbranch/fantasy.league/internal/platform/grpc"
)

func TestServeReportsHealthAndStops(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, listener, RuntimeConfig{
			DBPath:       filepath.Join(t.TempDir(), "nested", "league.db"),
			TickInterval: 10 * time.Millisecond,
			Service:      DefaultConfig(),
		})
	}()

	if err := platformgrpc.Probe(ctx, addr, HealthService, 5*time.Second, t.Logf); err != nil {
		t.Fatalf("probe runtime: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("runtime did not stop")
	}
}

func TestRunRejectsBusyPort(t *testing.T) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	port := listener.Addr().(*net.TCPAddr).Port

	err = Run(context.Background(), RuntimeConfig{Port: port, DBPath: filepath.Join(t.TempDir(), "league.db")})
	if err == nil {
		t.Fatal("expected listen error on a busy port")
	}
}
