package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/config"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve health, metrics and the index API without processing tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runServe(cmd.Context(), cfg, log)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	c := newComponents(log)
	defer c.close()

	if err := c.openSearch(ctx, cfg); err != nil {
		return err
	}
	if err := c.openQueue(ctx, cfg); err != nil {
		return err
	}

	log.Info("Starting search indexer API", logger.Int("port", cfg.Server.Port))
	return newServer(cfg, c, log).Run(ctx)
}
