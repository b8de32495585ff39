package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"content-analyzer/internal/bootstrap"
	"content-analyzer/internal/cli"
	"content-analyzer/internal/shared/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(func(ctx context.Context) (*cli.Services, error) {
		app, err := bootstrap.Build(ctx, config.Load())
		if err != nil {
			return nil, err
		}
		return &cli.Services{
			Runner: app.Pipeline,
			Sets:   app.CatalogService,
			Store:  app.Store,
			Queue:  app.Queue,
		}, nil
	})
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
