package bootstrap

import (
	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/catalog"
	"github.com/MasterGowen/open-discussions/internal/config"
	"github.com/MasterGowen/open-discussions/internal/database"
	"github.com/MasterGowen/open-discussions/internal/forum"
	"github.com/MasterGowen/open-discussions/internal/indexing"
	"github.com/MasterGowen/open-discussions/internal/metrics"
	"github.com/MasterGowen/open-discussions/internal/tasks"
)

// Pipeline is the set of components that turn source records into
// documents.
type Pipeline struct {
	Indexer   *indexing.Indexer
	Profiles  *forum.ProfileIndexer
	Catalog   *catalog.Indexer
	Rebuilder *indexing.Rebuilder
}

// PostLoader builds the comment tree loader over the forum database.
func PostLoader(cfg *config.Config, repo *database.Repository, log logger.Logger) *forum.Loader {
	return forum.NewLoader(forum.NewDBSource(repo, 0), cfg.Rebuild.CommentExpansionLimit, log)
}

// NewPipeline wires indexer with the forum and catalog readers over repo.
// indexer must have been built with the same loader as PostLoader returns.
func NewPipeline(
	cfg *config.Config,
	indexer *indexing.Indexer,
	repo *database.Repository,
	loader *forum.Loader,
	m *metrics.Metrics,
	log logger.Logger,
) *Pipeline {
	batch := cfg.Rebuild.BatchSize
	sources := []indexing.RebuildSource{
		forum.NewPostSource(repo, loader, batch, log),
		forum.NewProfileSource(repo, batch, log),
	}
	sources = append(sources, catalog.Sources(repo, batch, log)...)

	var rebuildOpts []indexing.RebuildOption
	rebuildOpts = append(rebuildOpts, indexing.WithBulkRate(cfg.Rebuild.BulkRPS, 0))
	if m != nil {
		rebuildOpts = append(rebuildOpts, indexing.WithRebuildRecorder(m))
	}

	return &Pipeline{
		Indexer:   indexer,
		Profiles:  forum.NewProfileIndexer(repo, indexer, log),
		Catalog:   catalog.NewIndexer(repo, indexer, cfg.Elasticsearch.RetryOnConflict, log),
		Rebuilder: indexing.NewRebuilder(indexer, sources, log, rebuildOpts...),
	}
}

// Deps returns the worker dependencies.
func (p *Pipeline) Deps() tasks.Deps {
	return tasks.Deps{
		Indexer:   p.Indexer,
		Profiles:  p.Profiles,
		Catalog:   p.Catalog,
		Rebuilder: p.Rebuilder,
	}
}
