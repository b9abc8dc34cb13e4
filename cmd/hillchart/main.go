// Package main is the entry point for the hillchart CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"hillchart/internal/backend/googletasks"
	"hillchart/internal/backend/sqlstore"
	"hillchart/internal/cli"
	"hillchart/internal/commands"
	"hillchart/internal/config"
	"hillchart/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, openStore,
		cli.WithSource(func(ctx context.Context, cfg *config.Config) (service.TaskSource, error) {
			return googletasks.New(ctx, cfg)
		}),
	)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// openStore opens the SQLite database and brings its schema up to date.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (service.Service, error) {
	store, err := sqlstore.Open(ctx, cfg.Database, sqlstore.Options{
		Policy: cfg.Policy(),
		Logger: log,
	})
	if err != nil {
		return nil, err
	}
	if _, err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate %s: %w", cfg.Database, err)
	}
	return store, nil
}
