package indexing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/document"
)

// RebuildSource streams every indexable document of one kind in batches.
type RebuildSource interface {
	// Name labels the source in logs and metrics.
	Name() string
	// Each calls fn with successive batches until the source is exhausted
	// or fn fails.
	Each(ctx context.Context, fn func([]document.Document) error) error
}

// RebuildRecorder receives rebuild metrics.
type RebuildRecorder interface {
	RecordRebuildDocuments(objectType string, count int)
	RecordRebuild(duration time.Duration, success bool)
}

// RebuildReport summarizes a finished rebuild.
type RebuildReport struct {
	BackingIndex string         `json:"backing_index"`
	Documents    map[string]int `json:"documents"`
	Failed       int            `json:"failed"`
	Duration     time.Duration  `json:"duration"`
}

// Rebuilder runs a full blue/green rebuild: create a backing index behind
// the reindex alias, load every source into it, then swap the default alias.
type Rebuilder struct {
	indexer *Indexer
	sources []RebuildSource
	limiter *rate.Limiter
	metrics RebuildRecorder
	tracer  trace.Tracer
	log     logger.Logger
}

// RebuildOption configures a Rebuilder.
type RebuildOption func(*Rebuilder)

// WithBulkRate limits bulk requests to rps per second with the given burst.
// rps <= 0 disables the limit.
func WithBulkRate(rps float64, burst int) RebuildOption {
	return func(r *Rebuilder) {
		if rps <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst <= 0 {
			burst = max(int(rps), 1)
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRebuildRecorder sets the metrics recorder.
func WithRebuildRecorder(m RebuildRecorder) RebuildOption {
	return func(r *Rebuilder) {
		if m != nil {
			r.metrics = m
		}
	}
}

// NewRebuilder creates a Rebuilder over sources.
func NewRebuilder(indexer *Indexer, sources []RebuildSource, log logger.Logger, opts ...RebuildOption) *Rebuilder {
	if log == nil {
		log = logger.NewNop()
	}
	r := &Rebuilder{
		indexer: indexer,
		sources: sources,
		limiter: rate.NewLimiter(rate.Inf, 0),
		metrics: nopRebuildRecorder{},
		tracer:  otel.Tracer("search-indexer/indexing"),
		log:     log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rebuild runs the full rebuild. A failure while loading leaves the new
// index behind the reindex alias and the old default alias serving; running
// Rebuild again starts over with a fresh backing index.
func (r *Rebuilder) Rebuild(ctx context.Context) (report *RebuildReport, err error) {
	start := time.Now()
	report = &RebuildReport{Documents: make(map[string]int)}

	ctx, span := r.tracer.Start(ctx, "index.rebuild")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "rebuild failed")
		}
		span.End()
	}()

	backingIndex, err := r.indexer.CreateBackingIndex(ctx)
	if err != nil {
		r.metrics.RecordRebuild(time.Since(start), false)
		return nil, fmt.Errorf("create backing index: %w", err)
	}
	report.BackingIndex = backingIndex
	span.SetAttributes(attribute.String("backing_index", backingIndex))

	r.log.Info("Rebuild started",
		logger.String("state", string(StateBuilding)),
		logger.String("index", backingIndex),
		logger.Int("sources", len(r.sources)),
	)

	reindexAlias := r.indexer.Connection().ReindexAliasName()
	for _, source := range r.sources {
		if err = r.load(ctx, reindexAlias, source, report); err != nil {
			r.metrics.RecordRebuild(time.Since(start), false)
			r.log.Error("Rebuild failed, default alias left unchanged",
				logger.String("state", string(StateBuilding)),
				logger.String("index", backingIndex),
				logger.String("source", source.Name()),
				logger.Error(err),
			)
			return report, fmt.Errorf("load %s: %w", source.Name(), err)
		}
	}

	if err = r.indexer.SwitchIndices(ctx, backingIndex); err != nil {
		r.metrics.RecordRebuild(time.Since(start), false)
		return report, fmt.Errorf("switch indices: %w", err)
	}

	report.Duration = time.Since(start)
	r.metrics.RecordRebuild(report.Duration, true)
	r.log.Info("Rebuild finished",
		logger.String("index", backingIndex),
		logger.Any("documents", report.Documents),
		logger.Int("failed", report.Failed),
		logger.Duration("duration", report.Duration),
	)
	return report, nil
}

func (r *Rebuilder) load(ctx context.Context, alias string, source RebuildSource, report *RebuildReport) error {
	return source.Each(ctx, func(batch []document.Document) error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		result, err := r.indexer.BulkIndex(ctx, alias, batch)
		if err != nil {
			return err
		}

		report.Documents[source.Name()] += result.Indexed
		report.Failed += len(result.Failures)
		r.metrics.RecordRebuildDocuments(source.Name(), result.Indexed)

		if failure := result.Err(); failure != nil {
			r.log.Error("Bulk load partially failed",
				logger.String("alias", alias),
				logger.String("source", source.Name()),
				logger.Int("failed", len(result.Failures)),
				logger.Error(failure),
			)
		}
		return nil
	})
}

type nopRebuildRecorder struct{}

func (nopRebuildRecorder) RecordRebuildDocuments(string, int) {}
func (nopRebuildRecorder) RecordRebuild(time.Duration, bool) {}
