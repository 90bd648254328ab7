package main

import (
	"context"
	"os/signal"
	"syscall"

	"onfleet-workers-go/internal/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	container := app.MustBuildDispatcherContainer(ctx)
	app.NewDispatcherRunner().MustRun(container)
}
