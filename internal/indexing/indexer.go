// Package indexing writes documents to every active search alias and
// manages the backing indices behind those aliases.
package indexing

import (
	"context"
	"time"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/connection"
	"github.com/MasterGowen/open-discussions/internal/domain"
)

const (
	defaultChunkSize  = 100
	defaultScriptLang = "painless"
	// conflictsProceed keeps update-by-query going past version conflicts.
	conflictsProceed  = "proceed"
)

// Settings tunes the engine requests.
type Settings struct {
	// ChunkSize is the number of documents per bulk request.
	ChunkSize int
	// ScriptLang is the language of scripted updates.
	ScriptLang string
	// Conflicts is the update-by-query conflict mode.
	Conflicts string
}

func (s *Settings) setDefaults() {
	if s.ChunkSize <= 0 {
		s.ChunkSize = defaultChunkSize
	}
	if s.ScriptLang == "" {
		s.ScriptLang = defaultScriptLang
	}
	if s.Conflicts == "" {
		s.Conflicts = conflictsProceed
	}
}

// Recorder receives indexing metrics.
type Recorder interface {
	RecordOperation(operation, objectType, outcome string)
	ObserveOperation(operation string, duration time.Duration)
	RecordVersionConflicts(operation string, count int)
	RecordBulk(succeeded, failed int)
	SetActiveAliases(count int)
}

// PostTreeLoader loads a post and its fully expanded comment tree.
type PostTreeLoader interface {
	PostWithComments(ctx context.Context, postID string) (*domain.Post, []*domain.Comment, error)
}

// Indexer is the indexing API. Every write goes to all active aliases.
type Indexer struct {
	conn     *connection.Manager
	settings Settings
	posts    PostTreeLoader
	metrics  Recorder
	log      logger.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(i *Indexer) {
		if r != nil {
			i.metrics = r
		}
	}
}

// WithPostTreeLoader sets the source used by IndexPostWithComments.
func WithPostTreeLoader(l PostTreeLoader) Option {
	return func(i *Indexer) {
		i.posts = l
	}
}

// New creates an Indexer.
func New(conn *connection.Manager, settings Settings, log logger.Logger, opts ...Option) *Indexer {
	settings.setDefaults()
	if log == nil {
		log = logger.NewNop()
	}

	i := &Indexer{
		conn:     conn,
		settings: settings,
		metrics:  nopRecorder{},
		log:      log,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Connection returns the connection manager.
func (i *Indexer) Connection() *connection.Manager {
	return i.conn
}

// Settings returns the effective settings.
func (i *Indexer) Settings() Settings {
	return i.settings
}

// activeAliases looks up the aliases to write to. An empty result is logged
// and the caller treats the write as a no-op.
func (i *Indexer) activeAliases(ctx context.Context, operation string) ([]string, error) {
	aliases, err := i.conn.ActiveAliases(ctx)
	if err != nil {
		return nil, err
	}
	i.metrics.SetActiveAliases(len(aliases))

	if len(aliases) == 0 {
		i.log.Warn("No active search aliases, skipping write",
			logger.String("operation", operation),
		)
	}
	return aliases, nil
}

func (i *Indexer) observe(operation string, start time.Time) {
	i.metrics.ObserveOperation(operation, time.Since(start))
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, string, string) {}
func (nopRecorder) ObserveOperation(string, time.Duration) {}
func (nopRecorder) RecordVersionConflicts(string, int) {}
func (nopRecorder) RecordBulk(int, int) {}
func (nopRecorder) SetActiveAliases(int) {}
