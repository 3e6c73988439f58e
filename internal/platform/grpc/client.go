// Package grpc holds client helpers for checking league runtimes over gRPC.
package grpc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// Stage names the step of a probe that failed.
type Stage string

const (
	StageConnect Stage = "connect"
	StageHealth  Stage = "health"
)

// ProbeError reports which step of reaching a runtime failed.
type ProbeError struct {
	Addr    string
	Service string
	Stage   Stage
	Err     error
}

func (e *ProbeError) Error() string {
	if e == nil {
		return "gRPC probe error"
	}
	return fmt.Sprintf("gRPC %s %s (%q): %v", e.Stage, e.Addr, e.Service, e.Err)
}

func (e *ProbeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Connector creates a client connection; tests substitute failures.
type Connector func(addr string, opts ...gogrpc.DialOption) (*gogrpc.ClientConn, error)

// ClientOptions are the dial options for league clients. Trace context
// propagates when a TracerProvider is registered.
func ClientOptions() []gogrpc.DialOption {
	return []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}

// Connect opens a connection to addr and waits until service reports
// SERVING. The wait is bounded by timeout when positive.
func Connect(ctx context.Context, connect Connector, addr, service string, timeout time.Duration, logf func(string, ...any)) (*gogrpc.ClientConn, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if connect == nil {
		connect = gogrpc.NewClient
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, &ProbeError{Service: service, Stage: StageConnect, Err: fmt.Errorf("address is required")}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := connect(addr, ClientOptions()...)
	if err != nil {
		return nil, &ProbeError{Addr: addr, Service: service, Stage: StageConnect, Err: err}
	}
	if err := WaitServing(ctx, conn, service, logf); err != nil {
		_ = conn.Close()
		return nil, &ProbeError{Addr: addr, Service: service, Stage: StageHealth, Err: err}
	}
	return conn, nil
}

// Probe checks that service at addr is serving and closes the connection.
func Probe(ctx context.Context, addr, service string, timeout time.Duration, logf func(string, ...any)) error {
	conn, err := Connect(ctx, nil, addr, service, timeout, logf)
	if err != nil {
		return err
	}
	return conn.Close()
}

// WaitServing polls the health service with backoff until it reports
// SERVING or ctx ends.
func WaitServing(ctx context.Context, conn *gogrpc.ClientConn, service string, logf func(string, ...any)) error {
	if conn == nil {
		return fmt.Errorf("gRPC connection is not configured")
	}
	client := grpc_health_v1.NewHealthClient(conn)
	backoff := 100 * time.Millisecond
	for {
		callCtx, cancel := context.WithTimeout(ctx, time.Second)
		resp, err := client.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		if err == nil && resp.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING {
			return nil
		}
		if logf != nil {
			if err != nil {
				logf("waiting for %q: %v", service, err)
			} else {
				logf("waiting for %q: status %s", service, resp.GetStatus())
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for %q: %w", service, ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, time.Second)
	}
}
