package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kilometers.ai/standin/internal/interfaces/cli"
	"kilometers.ai/standin/internal/interfaces/di"
)

func main() {
	container, err := di.NewContainer(di.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx, container.GetCLIContainer())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := container.Shutdown(shutdownCtx); err != nil {
		container.Logger().Error("error during shutdown", "error", err)
	}
}
