package main

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/bootstrap"
	"github.com/MasterGowen/open-discussions/internal/config"
	"github.com/MasterGowen/open-discussions/internal/database"
	"github.com/MasterGowen/open-discussions/internal/indexing"
	"github.com/MasterGowen/open-discussions/internal/metrics"
	"github.com/MasterGowen/open-discussions/internal/tasks"
)

// components holds what a subcommand opened. close releases all of it.
type components struct {
	metrics  *metrics.Metrics
	db       *sqlx.DB
	repo     *database.Repository
	indexer  *indexing.Indexer
	pipeline *bootstrap.Pipeline
	streams  *tasks.StreamsClient
	producer *tasks.Producer
	log      logger.Logger
}

// openPipeline connects the database and the cluster and builds the
// indexing pipeline.
func newComponents(log logger.Logger) *components {
	return &components{metrics: metrics.New(nil), log: log}
}

func (c *components) openPipeline(ctx context.Context, cfg *config.Config) error {
	db, repo, err := bootstrap.SetupDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	c.db, c.repo = db, repo

	loader := bootstrap.PostLoader(cfg, repo, c.log)
	indexer, err := bootstrap.SetupSearch(ctx, cfg, c.log,
		indexing.WithRecorder(c.metrics),
		indexing.WithPostTreeLoader(loader),
	)
	if err != nil {
		return err
	}
	c.indexer = indexer
	c.pipeline = bootstrap.NewPipeline(cfg, indexer, repo, loader, c.metrics, c.log)
	return nil
}

// openSearch connects only the cluster.
func (c *components) openSearch(ctx context.Context, cfg *config.Config) error {
	indexer, err := bootstrap.SetupSearch(ctx, cfg, c.log, indexing.WithRecorder(c.metrics))
	if err != nil {
		return err
	}
	c.indexer = indexer
	return nil
}

// openQueue connects the task queue.
func (c *components) openQueue(ctx context.Context, cfg *config.Config) error {
	streams, producer, err := bootstrap.SetupQueue(ctx, cfg, c.metrics)
	if err != nil {
		return err
	}
	c.streams, c.producer = streams, producer
	return nil
}

func (c *components) close() {
	var errs []error
	if c.streams != nil {
		errs = append(errs, c.streams.Close())
	}
	if c.db != nil {
		errs = append(errs, c.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		c.log.Warn("Failed to close connections", logger.Error(err))
	}
}
