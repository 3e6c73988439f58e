// Package main provides league administration commands.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/fantasy.league/internal/platform/config"
	"github.com/louisbranch/fantasy.league/internal/tools/leaguectl"
)

func main() {
	if err := config.LoadDotenv(); err != nil {
		config.Exitf("Error: %v", err)
	}
	cfg, err := leaguectl.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.ExitCodef(config.ExitUsage, "Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := leaguectl.Run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		config.ExitCodef(leaguectl.ExitCode(err), "Error: %v", err)
	}
}
