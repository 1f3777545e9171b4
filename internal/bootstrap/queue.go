package bootstrap

import (
	"context"
	"fmt"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	infraredis "github.com/MasterGowen/open-discussions/infrastructure/redis"
	"github.com/MasterGowen/open-discussions/internal/config"
	"github.com/MasterGowen/open-discussions/internal/metrics"
	"github.com/MasterGowen/open-discussions/internal/tasks"
)

// SetupQueue connects to Redis and builds the task producer. The caller
// closes the returned client.
func SetupQueue(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*tasks.StreamsClient, *tasks.Producer, error) {
	rdb, err := infraredis.NewClient(ctx, cfg.Redis.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}

	streams := tasks.NewStreamsClient(rdb, cfg.Redis.StreamPrefix)
	producer := tasks.NewProducer(streams, tasks.ProducerConfig{
		MaxStreamLen: cfg.Redis.MaxStreamLen,
		Metrics:      m,
	})
	return streams, producer, nil
}

// NewConsumer builds the consumer-group reader for the worker.
func NewConsumer(cfg *config.Config, streams *tasks.StreamsClient, log logger.Logger) (*tasks.Consumer, error) {
	return tasks.NewConsumer(streams, tasks.ConsumerConfig{
		ConsumerGroup: cfg.Worker.ConsumerGroup,
		ConsumerID:    cfg.Worker.ConsumerID,
		BlockTimeout:  cfg.Worker.BlockTimeout,
		BatchSize:     int64(cfg.Worker.BatchSize),
		ClaimMinIdle:  cfg.Worker.ClaimMinIdle,
	}, log)
}

// NewScheduler builds the rebuild scheduler, or returns nil when scheduled
// rebuilds are off.
func NewScheduler(cfg *config.Config, dispatcher tasks.Dispatcher, log logger.Logger) (*tasks.Scheduler, error) {
	if cfg.Rebuild.Schedule == config.ScheduleOff {
		return nil, nil
	}
	return tasks.NewScheduler(cfg.Rebuild.Schedule, dispatcher, log)
}
