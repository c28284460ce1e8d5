package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/binkeyit/storefront/internal/cli"
	"github.com/binkeyit/storefront/internal/client"
	"github.com/binkeyit/storefront/internal/config"
	"github.com/binkeyit/storefront/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(cfg.Client.BaseURL, client.NewFileStore(cfg.Client.CredentialsFile),
		client.WithTimeout(cfg.Client.Timeout()),
		client.WithLogger(logger),
	)

	if err := cli.NewApp(c, os.Stdin, os.Stdout).Run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, cli.ErrUsage) {
			logger.Debug("command failed", zap.Error(err))
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
