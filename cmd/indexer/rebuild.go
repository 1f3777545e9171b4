package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/config"
	"github.com/MasterGowen/open-discussions/internal/tasks"
)

func rebuildCommand() *cobra.Command {
	var (
		async    bool
		priority string
	)

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild every index into a fresh backing index and swap it in",
		Long: `Rebuild creates a new backing index behind the reindex alias, loads every
post, comment, profile and catalog record into it, and swaps the default
alias to it. Writes made during the rebuild go to both aliases.

With --async the rebuild is enqueued for a worker instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if async {
				return enqueueRebuild(cmd.Context(), cfg, log, priority)
			}
			return runRebuild(cmd.Context(), cfg, log)
		},
	}
	cmd.Flags().BoolVar(&async, "async", false, "enqueue the rebuild for a worker")
	cmd.Flags().StringVar(&priority, "priority", "low", "queue priority with --async (high, normal, low)")
	return cmd
}

func runRebuild(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	c := newComponents(log)
	defer c.close()

	if err := c.openPipeline(ctx, cfg); err != nil {
		return err
	}

	report, err := c.pipeline.Rebuilder.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}

	for source, count := range report.Documents {
		log.Info("Loaded documents", logger.String("source", source), logger.Int("count", count))
	}
	log.Info("Rebuild complete",
		logger.String("backing_index", report.BackingIndex),
		logger.Int("failed", report.Failed),
		logger.Duration("duration", report.Duration),
	)
	return nil
}

func enqueueRebuild(ctx context.Context, cfg *config.Config, log logger.Logger, priority string) error {
	p, err := tasks.ParsePriority(priority)
	if err != nil {
		return err
	}

	c := newComponents(log)
	defer c.close()

	if err = c.openQueue(ctx, cfg); err != nil {
		return err
	}

	task, err := tasks.RecreateIndex()
	if err != nil {
		return err
	}
	task.Priority = p

	id, err := c.producer.Enqueue(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue rebuild: %w", err)
	}
	log.Info("Rebuild enqueued", logger.String("message_id", id), logger.String("priority", p.String()))
	return nil
}
