// Package timeouts defines shared timeout and interval constants.
package timeouts

import "time"

// TickInterval is the default period between lifecycle ticks.
const TickInterval = time.Minute

// Tick caps a single tick pass across all due races.
const Tick = 2 * time.Minute

// Shutdown limits how long the gRPC server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// AdminCommand caps one leaguectl invocation.
const AdminCommand = 10 * time.Minute
