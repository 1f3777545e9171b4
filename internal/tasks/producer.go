package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	// TaskField holds the JSON encoded task in a stream entry.
	TaskField = "task"
	// EnqueuedAtField holds the RFC 3339 enqueue time.
	EnqueuedAtField = "enqueued_at"

	defaultMaxStreamLen = 100000
)

// EnqueueRecorder counts dispatched tasks.
type EnqueueRecorder interface {
	RecordEnqueued(task string)
}

// Producer writes tasks to the priority streams. It implements Dispatcher.
type Producer struct {
	client       *StreamsClient
	maxStreamLen int64
	metrics      EnqueueRecorder
}

// ProducerConfig configures a Producer.
type ProducerConfig struct {
	// MaxStreamLen caps each stream; 0 uses the default.
	MaxStreamLen int64
	Metrics      EnqueueRecorder
}

// NewProducer creates a Producer.
func NewProducer(client *StreamsClient, cfg ProducerConfig) *Producer {
	maxLen := cfg.MaxStreamLen
	if maxLen <= 0 {
		maxLen = defaultMaxStreamLen
	}
	return &Producer{client: client, maxStreamLen: maxLen, metrics: cfg.Metrics}
}

// Dispatch appends task to the stream matching its priority.
func (p *Producer) Dispatch(ctx context.Context, task Task) error {
	_, err := p.Enqueue(ctx, task)
	return err
}

// Enqueue appends task and returns the stream entry id.
func (p *Producer) Enqueue(ctx context.Context, task Task) (string, error) {
	if task.Name == "" {
		return "", ErrEmptyName
	}
	if !task.Priority.IsValid() {
		task.Priority = PriorityNormal
	}

	data, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("serialize task %s: %w", task.Name, err)
	}

	stream := p.client.StreamName(task.Priority)
	id, err := p.client.XAdd(ctx, stream, p.maxStreamLen, map[string]any{
		TaskField:       string(data),
		EnqueuedAtField: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("enqueue %s to %s: %w", task.Name, stream, err)
	}

	if p.metrics != nil {
		p.metrics.RecordEnqueued(task.Name)
	}
	return id, nil
}

// QueueDepths returns the length of every priority stream.
func (p *Producer) QueueDepths(ctx context.Context) (map[Priority]int64, error) {
	depths := make(map[Priority]int64, len(AllPriorities()))
	for _, priority := range AllPriorities() {
		depth, err := p.client.XLen(ctx, p.client.StreamName(priority))
		if err != nil {
			return depths, fmt.Errorf("queue depth %s: %w", priority, err)
		}
		depths[priority] = depth
	}
	return depths, nil
}
