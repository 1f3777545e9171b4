package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
)

const (
	defaultConsumerGroup = "search-indexer"
	defaultBlockTimeout  = 5 * time.Second
	defaultBatchSize     = 10
	defaultClaimMinIdle  = 5 * time.Minute
	maxPendingCheck      = 100
)

// Consumer reads tasks from the priority streams through a consumer group.
// Entries stay pending until acknowledged; entries idle longer than
// ClaimMinIdle are reclaimed, so delivery is at least once.
type Consumer struct {
	client        *StreamsClient
	consumerGroup string
	consumerID    string
	blockTimeout  time.Duration
	batchSize     int64
	claimMinIdle  time.Duration
	log           logger.Logger
}

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	ConsumerGroup string
	ConsumerID    string
	BlockTimeout  time.Duration
	BatchSize     int64
	ClaimMinIdle  time.Duration
}

// Delivery is a task read from a stream.
type Delivery struct {
	MessageID  string
	Task       Task
	EnqueuedAt time.Time
}

// NewConsumer creates a Consumer. ConsumerID is required.
func NewConsumer(client *StreamsClient, cfg ConsumerConfig, log logger.Logger) (*Consumer, error) {
	if cfg.ConsumerID == "" {
		return nil, errors.New("consumer ID is required")
	}
	if log == nil {
		log = logger.NewNop()
	}

	c := &Consumer{
		client:        client,
		consumerGroup: cfg.ConsumerGroup,
		consumerID:    cfg.ConsumerID,
		blockTimeout:  cfg.BlockTimeout,
		batchSize:     cfg.BatchSize,
		claimMinIdle:  cfg.ClaimMinIdle,
		log:           log,
	}
	if c.consumerGroup == "" {
		c.consumerGroup = defaultConsumerGroup
	}
	if c.blockTimeout <= 0 {
		c.blockTimeout = defaultBlockTimeout
	}
	if c.batchSize <= 0 {
		c.batchSize = defaultBatchSize
	}
	if c.claimMinIdle <= 0 {
		c.claimMinIdle = defaultClaimMinIdle
	}
	return c, nil
}

// Initialize creates the consumer group on every priority stream.
func (c *Consumer) Initialize(ctx context.Context) error {
	for _, priority := range AllPriorities() {
		stream := c.client.StreamName(priority)
		if err := c.client.CreateConsumerGroup(ctx, stream, c.consumerGroup); err != nil {
			return fmt.Errorf("initialize %s: %w", stream, err)
		}
	}
	return nil
}

// Read returns reclaimed idle entries when there are any, otherwise new
// entries from all streams with high priority first. It blocks up to the
// block timeout and returns nothing when no entry arrived.
func (c *Consumer) Read(ctx context.Context) ([]*Delivery, error) {
	if reclaimed := c.reclaimPending(ctx); len(reclaimed) > 0 {
		return reclaimed, nil
	}

	priorities := AllPriorities()
	streams := make([]string, 0, 2*len(priorities))
	for _, priority := range priorities {
		streams = append(streams, c.client.StreamName(priority))
	}
	for range priorities {
		streams = append(streams, ">")
	}

	result, err := c.client.XReadGroup(ctx, c.consumerGroup, c.consumerID, streams, c.batchSize, c.blockTimeout)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read streams: %w", err)
	}

	var deliveries []*Delivery
	for _, stream := range result {
		priority := c.priorityOf(stream.Stream)
		for _, msg := range stream.Messages {
			if d := c.parse(ctx, stream.Stream, msg, priority); d != nil {
				deliveries = append(deliveries, d)
			}
		}
	}
	return deliveries, nil
}

// Acknowledge removes d from the pending list.
func (c *Consumer) Acknowledge(ctx context.Context, d *Delivery) error {
	if d == nil {
		return errors.New("delivery cannot be nil")
	}
	return c.client.XAck(ctx, c.client.StreamName(d.Task.Priority), c.consumerGroup, d.MessageID)
}

// PendingCount returns the number of unacknowledged entries on a stream.
func (c *Consumer) PendingCount(ctx context.Context, priority Priority) (int, error) {
	pending, err := c.client.XPendingExt(ctx, c.client.StreamName(priority), c.consumerGroup, maxPendingCheck)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("pending count: %w", err)
	}
	return len(pending), nil
}

func (c *Consumer) reclaimPending(ctx context.Context) []*Delivery {
	var reclaimed []*Delivery

	for _, priority := range AllPriorities() {
		stream := c.client.StreamName(priority)

		pending, err := c.client.XPendingExt(ctx, stream, c.consumerGroup, maxPendingCheck)
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				c.log.Warn("Failed to list pending tasks", logger.String("stream", stream), logger.Error(err))
			}
			continue
		}

		var ids []string
		for _, entry := range pending {
			if entry.Idle >= c.claimMinIdle {
				ids = append(ids, entry.ID)
			}
		}
		if len(ids) == 0 {
			continue
		}

		messages, err := c.client.XClaim(ctx, stream, c.consumerGroup, c.consumerID, c.claimMinIdle, ids...)
		if err != nil {
			c.log.Warn("Failed to claim pending tasks", logger.String("stream", stream), logger.Error(err))
			continue
		}

		for _, msg := range messages {
			if d := c.parse(ctx, stream, msg, priority); d != nil {
				reclaimed = append(reclaimed, d)
			}
		}
	}

	return reclaimed
}

// parse decodes an entry. Undecodable entries are acknowledged and dropped
// so they are not reclaimed forever.
func (c *Consumer) parse(ctx context.Context, stream string, msg redis.XMessage, priority Priority) *Delivery {
	raw, ok := msg.Values[TaskField].(string)
	if !ok {
		c.dropMalformed(ctx, stream, msg.ID, errors.New("missing task field"))
		return nil
	}

	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		c.dropMalformed(ctx, stream, msg.ID, err)
		return nil
	}
	task.Priority = priority

	d := &Delivery{MessageID: msg.ID, Task: task}
	if enqueued, hasEnqueued := msg.Values[EnqueuedAtField].(string); hasEnqueued {
		if t, err := time.Parse(time.RFC3339, enqueued); err == nil {
			d.EnqueuedAt = t
		}
	}
	return d
}

func (c *Consumer) dropMalformed(ctx context.Context, stream, id string, cause error) {
	c.log.Error("Dropping malformed task entry",
		logger.String("stream", stream),
		logger.String("message_id", id),
		logger.Error(cause),
	)
	if err := c.client.XAck(ctx, stream, c.consumerGroup, id); err != nil {
		c.log.Warn("Failed to acknowledge malformed entry", logger.String("message_id", id), logger.Error(err))
	}
}

func (c *Consumer) priorityOf(stream string) Priority {
	for _, priority := range AllPriorities() {
		if c.client.StreamName(priority) == stream {
			return priority
		}
	}
	return PriorityNormal
}

// ConsumerGroup returns the consumer group name.
func (c *Consumer) ConsumerGroup() string {
	return c.consumerGroup
}

// ConsumerID returns this consumer's id within the group.
func (c *Consumer) ConsumerID() string {
	return c.consumerID
}
