package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	infragin "github.com/MasterGowen/open-discussions/infrastructure/gin"
	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/api"
	"github.com/MasterGowen/open-discussions/internal/bootstrap"
	"github.com/MasterGowen/open-discussions/internal/config"
	"github.com/MasterGowen/open-discussions/internal/tasks"
)

func workerCommand() *cobra.Command {
	var withServer bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process indexing tasks and run scheduled rebuilds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runWorker(cmd.Context(), cfg, log, withServer)
		},
	}
	cmd.Flags().BoolVar(&withServer, "serve", true, "also serve health, metrics and the index API")
	return cmd
}

func runWorker(ctx context.Context, cfg *config.Config, log logger.Logger, withServer bool) error {
	log.Info("Starting search indexer worker",
		logger.String("version", cfg.Service.Version),
		logger.String("consumer_id", cfg.Worker.ConsumerID),
		logger.Int("concurrency", cfg.Worker.Concurrency),
	)

	c := newComponents(log)
	defer c.close()

	if err := c.openPipeline(ctx, cfg); err != nil {
		return err
	}
	if err := c.openQueue(ctx, cfg); err != nil {
		return err
	}

	consumer, err := bootstrap.NewConsumer(cfg, c.streams, log)
	if err != nil {
		return fmt.Errorf("consumer: %w", err)
	}
	if err = consumer.Initialize(ctx); err != nil {
		return err
	}

	scheduler, err := bootstrap.NewScheduler(cfg, c.producer, log)
	if err != nil {
		return err
	}
	if scheduler != nil {
		scheduler.Start()
		defer scheduler.Stop()
	}

	if withServer {
		server := newServer(cfg, c, log)
		go func() {
			if runErr := server.Run(ctx); runErr != nil {
				log.Error("HTTP server error", logger.Error(runErr))
			}
		}()
	}

	worker := tasks.NewWorker(consumer, c.pipeline.Deps(), tasks.WorkerConfig{
		Concurrency: cfg.Worker.Concurrency,
		Metrics:     c.metrics,
	}, log)
	return worker.Run(ctx)
}

// newServer builds the HTTP server over whatever c has opened.
func newServer(cfg *config.Config, c *components, log logger.Logger) *infragin.Server {
	handler := api.NewHandler(c.indexer, c.producer, c.producer, log)

	checks := map[string]api.Pinger{
		"elasticsearch": c.indexer.Connection(),
		"redis":         c.streams,
	}
	if c.repo != nil {
		checks["database"] = c.repo
	}

	return api.NewServer(handler, api.ServerOptions{
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
		Server:      cfg.Server,
		Metrics:     c.metrics.Handler(),
		Checks:      checks,
	}, log)
}
