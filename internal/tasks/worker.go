package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/document"
	"github.com/MasterGowen/open-discussions/internal/indexing"
	"github.com/MasterGowen/open-discussions/internal/metrics"
)

// ErrPermanent marks a task that can never succeed. The worker logs and
// acknowledges it instead of leaving it for redelivery.
var ErrPermanent = errors.New("permanent task failure")

// Handler executes one task.
type Handler func(ctx context.Context, task Task) error

// Queue is the delivery side of the task queue.
type Queue interface {
	Read(ctx context.Context) ([]*Delivery, error)
	Acknowledge(ctx context.Context, d *Delivery) error
}

// DocumentIndexer is the part of the indexing API the worker drives.
type DocumentIndexer interface {
	CreateDocument(ctx context.Context, docID string, objectType document.ObjectType,
		fields map[string]any, opts ...indexing.DocOption) error
	UpdateDocumentPartial(ctx context.Context, docID string, fields map[string]any,
		objectType document.ObjectType, opts ...indexing.DocOption) error
	IncrementIntegerField(ctx context.Context, docID, field string, amount int,
		objectType document.ObjectType, opts ...indexing.DocOption) error
	UpdateFieldValuesByQuery(ctx context.Context, query, fieldValues map[string]any,
		objectTypes []document.ObjectType) error
	DeleteDocument(ctx context.Context, docID string, objectType document.ObjectType,
		opts ...indexing.DocOption) error
	IndexPostWithComments(ctx context.Context, postID string) error
}

// ProfileIndexer serializes and upserts forum profiles.
type ProfileIndexer interface {
	UpsertProfile(ctx context.Context, username string) error
}

// CatalogIndexer serializes and upserts catalog records.
type CatalogIndexer interface {
	UpsertCourse(ctx context.Context, id int64) error
	UpsertProgram(ctx context.Context, id int64) error
	UpsertVideo(ctx context.Context, id int64) error
	UpsertUserList(ctx context.Context, id int64) error
	UpsertContentFile(ctx context.Context, id int64) error
	UpsertBootcamp(ctx context.Context, id int64) error
	IndexNewBootcamp(ctx context.Context, id int64) error
	IndexRunContentFiles(ctx context.Context, runID int64) error
	DeleteRunContentFiles(ctx context.Context, runID int64) error
}

// IndexRebuilder runs a full rebuild.
type IndexRebuilder interface {
	Rebuild(ctx context.Context) (*indexing.RebuildReport, error)
}

// TaskRecorder receives task metrics.
type TaskRecorder interface {
	RecordTask(task, outcome string, duration time.Duration)
}

// Deps are the components the built-in handlers call. Handlers for a nil
// dependency are not registered.
type Deps struct {
	Indexer   DocumentIndexer
	Profiles  ProfileIndexer
	Catalog   CatalogIndexer
	Rebuilder IndexRebuilder
}

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	Concurrency int
	// ErrorBackoff is the pause after a failed read.
	ErrorBackoff time.Duration
	Metrics      TaskRecorder
}

// Worker reads tasks from a Queue and routes them to handlers by name.
type Worker struct {
	queue        Queue
	handlers     map[string]Handler
	concurrency  int
	errorBackoff time.Duration
	metrics      TaskRecorder
	tracer       trace.Tracer
	log          logger.Logger
}

// NewWorker creates a Worker with the built-in handlers for deps.
func NewWorker(queue Queue, deps Deps, cfg WorkerConfig, log logger.Logger) *Worker {
	if log == nil {
		log = logger.NewNop()
	}
	w := &Worker{
		queue:        queue,
		handlers:     make(map[string]Handler),
		concurrency:  max(cfg.Concurrency, 1),
		errorBackoff: cfg.ErrorBackoff,
		metrics:      cfg.Metrics,
		tracer:       otel.Tracer("search-indexer/tasks"),
		log:          log,
	}
	if w.errorBackoff <= 0 {
		w.errorBackoff = time.Second
	}
	w.registerBuiltins(deps)
	return w
}

// Register adds or replaces the handler for name.
func (w *Worker) Register(name string, h Handler) {
	w.handlers[name] = h
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Task worker started", logger.Int("concurrency", w.concurrency))

	deliveries := make(chan *Delivery)
	var wg sync.WaitGroup
	for range w.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				w.Process(ctx, d)
			}
		}()
	}

	defer func() {
		close(deliveries)
		wg.Wait()
		w.log.Info("Task worker stopped")
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		batch, err := w.queue.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Error("Failed to read tasks", logger.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.errorBackoff):
			}
			continue
		}

		for _, d := range batch {
			select {
			case deliveries <- d:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Process runs one delivery and acknowledges it unless it failed with a
// retryable error.
func (w *Worker) Process(ctx context.Context, d *Delivery) {
	start := time.Now()
	log := w.log.With(
		logger.String("task", d.Task.Name),
		logger.String("message_id", d.MessageID),
	)

	ctx, span := w.tracer.Start(ctx, "task."+d.Task.Name,
		trace.WithAttributes(
			attribute.String("message_id", d.MessageID),
			attribute.String("priority", d.Task.Priority.String()),
		))
	defer span.End()

	outcome := metrics.OutcomeSuccess
	err := w.handle(ctx, d.Task)
	switch {
	case err == nil:
		log.Debug("Task completed", logger.Duration("duration", time.Since(start)))
	case errors.Is(err, ErrPermanent):
		outcome = metrics.OutcomeSkipped
		span.RecordError(err)
		log.Error("Dropping task", logger.Error(err))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "task failed")
		w.record(d.Task.Name, metrics.OutcomeError, start)
		log.Error("Task failed, leaving it for redelivery", logger.Error(err))
		return
	}

	w.record(d.Task.Name, outcome, start)
	if ackErr := w.queue.Acknowledge(context.WithoutCancel(ctx), d); ackErr != nil {
		log.Error("Failed to acknowledge task", logger.Error(ackErr))
	}
}

func (w *Worker) handle(ctx context.Context, task Task) error {
	handler, ok := w.handlers[task.Name]
	if !ok {
		return fmt.Errorf("%w: unknown task %q", ErrPermanent, task.Name)
	}
	return handler(ctx, task)
}

func (w *Worker) record(name, outcome string, start time.Time) {
	if w.metrics != nil {
		w.metrics.RecordTask(name, outcome, time.Since(start))
	}
}

func permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}
