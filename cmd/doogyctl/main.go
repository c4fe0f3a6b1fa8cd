// Package main is doogyctl, the Doogybook operator CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/doogybook/backend/internal/cli"
)

// Version is set at build time via -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := cli.NewRootCmd(Version).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
