package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/aibl-labs/aibl-backend/pkg/server"
	"github.com/aibl-labs/aibl-backend/pkg/server/setup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	setupConfig, err := setup.NewConfigFromEnv()
	if err != nil {
		slog.Error("failed to setup", "error", err)
		return
	}

	serverConfig, err := server.NewConfigFromSetup(setupConfig)
	if err != nil {
		slog.Error("failed to configure server", "error", err)
		return
	}

	srv, err := server.NewServer(serverConfig)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		return
	}

	srv.Start(ctx)
}
