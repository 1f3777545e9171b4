package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultStreamPrefix = "search"

// StreamsClient wraps a Redis client with the stream commands the queue
// needs.
type StreamsClient struct {
	client *redis.Client
	prefix string
}

// NewStreamsClient wraps client. Stream keys are "<prefix>:tasks:<priority>".
func NewStreamsClient(client *redis.Client, prefix string) *StreamsClient {
	if prefix == "" {
		prefix = defaultStreamPrefix
	}
	return &StreamsClient{client: client, prefix: prefix}
}

// StreamName returns the stream key for a priority.
func (c *StreamsClient) StreamName(priority Priority) string {
	return fmt.Sprintf("%s:tasks:%s", c.prefix, priority.String())
}

// Ping checks that Redis is reachable.
func (c *StreamsClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *StreamsClient) Close() error {
	return c.client.Close()
}

// CreateConsumerGroup creates group on stream, creating the stream if
// needed. An existing group is not an error.
func (c *StreamsClient) CreateConsumerGroup(ctx context.Context, stream, group string) error {
	err := c.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// XAdd appends values to stream, trimming it to roughly maxLen entries.
func (c *StreamsClient) XAdd(ctx context.Context, stream string, maxLen int64, values map[string]any) (string, error) {
	return c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxLen,
		Approx: maxLen > 0,
		Values: values,
	}).Result()
}

// XReadGroup reads new entries for consumer.
func (c *StreamsClient) XReadGroup(
	ctx context.Context, group, consumer string, streams []string, count int64, block time.Duration,
) ([]redis.XStream, error) {
	return c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  streams,
		Count:    count,
		Block:    block,
	}).Result()
}

// XAck acknowledges entries.
func (c *StreamsClient) XAck(ctx context.Context, stream, group string, ids ...string) error {
	return c.client.XAck(ctx, stream, group, ids...).Err()
}

// XPendingExt lists pending entries of group.
func (c *StreamsClient) XPendingExt(ctx context.Context, stream, group string, count int64) ([]redis.XPendingExt, error) {
	return c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  group,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
}

// XClaim transfers idle pending entries to consumer.
func (c *StreamsClient) XClaim(
	ctx context.Context, stream, group, consumer string, minIdle time.Duration, ids ...string,
) ([]redis.XMessage, error) {
	return c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
}

// XLen returns the number of entries in stream.
func (c *StreamsClient) XLen(ctx context.Context, stream string) (int64, error) {
	return c.client.XLen(ctx, stream).Result()
}
