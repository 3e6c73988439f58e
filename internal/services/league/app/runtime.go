package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/fantasy.league/internal/platform/discovery"
	"github.com/louisbranch/fantasy.league/internal/platform/timeouts"
	leaguesqlite "github.com/louisbranch/fantasy.league/internal/services/league/storage/sqlite"
)

// HealthService is the health check name the runtime reports under.
const HealthService = "league.runtime"

const (
	defaultLeaguePort = discovery.LeaguePort
	defaultLeagueDB   = "data/league.db"
)

// RuntimeConfig controls league startup and the tick loop.
type RuntimeConfig struct {
	Port         int
	DBPath       string
	TickInterval time.Duration
	Tick         TickOptions
	Service      Config
	// Options customize the service, mainly for tests.
	Options []Option
}

// Run opens the league store, serves gRPC health, and drives the tick loop
// until ctx is canceled.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultLeaguePort
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on league port %d: %w", cfg.Port, err)
	}
	return Serve(ctx, listener, cfg)
}

// Serve runs the league runtime on an existing listener, which it closes.
func Serve(ctx context.Context, listener net.Listener, cfg RuntimeConfig) error {
	defer listener.Close()
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultLeagueDB
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = timeouts.TickInterval
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create league storage dir: %w", err)
		}
	}

	store, err := leaguesqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open league sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close league sqlite store: %v", closeErr)
		}
	}()

	service, err := NewService(store, cfg.Service, cfg.Options...)
	if err != nil {
		return err
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_SERVING)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve league grpc: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return service.RunLoop(gctx, cfg.TickInterval, cfg.Tick)
	})
	g.Go(func() error {
		<-gctx.Done()
		healthServer.Shutdown()
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(timeouts.Shutdown):
			grpcServer.Stop()
		}
		return nil
	})

	log.Printf("league server listening at %v", listener.Addr())
	return g.Wait()
}
