package bootstrap

import (
	"context"
	"fmt"

	infraes "github.com/MasterGowen/open-discussions/infrastructure/elasticsearch"
	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/config"
	"github.com/MasterGowen/open-discussions/internal/connection"
	"github.com/MasterGowen/open-discussions/internal/indexing"
)

// ConnectionConfig converts the Elasticsearch section to connection settings.
func ConnectionConfig(cfg *config.Config) connection.Config {
	return connection.Config{
		Elasticsearch: infraes.Config{
			URL:        cfg.Elasticsearch.URL,
			Username:   cfg.Elasticsearch.Username,
			Password:   cfg.Elasticsearch.Password,
			APIKey:     cfg.Elasticsearch.APIKey,
			MaxRetries: cfg.Elasticsearch.MaxRetries,
		},
		IndexPrefix: cfg.Elasticsearch.IndexPrefix,
	}
}

// IndexingSettings converts the Elasticsearch section to indexing settings.
func IndexingSettings(cfg *config.Config) indexing.Settings {
	return indexing.Settings{
		ChunkSize:  cfg.Elasticsearch.ChunkSize,
		ScriptLang: cfg.Elasticsearch.ScriptLang,
		Conflicts:  cfg.Elasticsearch.Conflicts,
	}
}

// SetupSearch dials the cluster and builds the indexing API.
func SetupSearch(
	ctx context.Context,
	cfg *config.Config,
	log logger.Logger,
	opts ...indexing.Option,
) (*indexing.Indexer, error) {
	conn, err := connection.Dial(ctx, ConnectionConfig(cfg), log)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: %w", err)
	}
	return indexing.New(conn, IndexingSettings(cfg), log, opts...), nil
}
