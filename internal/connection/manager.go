// Package connection owns the Elasticsearch handle shared by the indexer
// and knows the alias names it writes through.
package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"

	infraes "github.com/MasterGowen/open-discussions/infrastructure/elasticsearch"
	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/document"
)

const (
	defaultAliasSuffix = "default"
	reindexAliasSuffix = "reindexing"
)

// Config holds the settings needed to reach the cluster.
type Config struct {
	Elasticsearch infraes.Config
	IndexPrefix   string
	// SkipPing builds the client without contacting the cluster.
	SkipPing bool
}

// Manager is the process-wide search handle. It is built once at startup
// and passed to every component that talks to the engine.
type Manager struct {
	client *es.Client
	prefix string
	log    logger.Logger
}

// New wraps an existing client.
func New(client *es.Client, indexPrefix string, log logger.Logger) (*Manager, error) {
	if client == nil {
		return nil, &ConfigurationError{Setting: "elasticsearch", Message: "client is required"}
	}
	if strings.TrimSpace(indexPrefix) == "" {
		return nil, &ConfigurationError{Setting: "elasticsearch.index_prefix", Message: "is required"}
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Manager{client: client, prefix: indexPrefix, log: log}, nil
}

// Dial builds the client from cfg and verifies the cluster answers.
func Dial(ctx context.Context, cfg Config, log logger.Logger) (*Manager, error) {
	if strings.TrimSpace(cfg.Elasticsearch.URL) == "" {
		return nil, &ConfigurationError{Setting: "elasticsearch.url", Message: "is required"}
	}
	if strings.TrimSpace(cfg.IndexPrefix) == "" {
		return nil, &ConfigurationError{Setting: "elasticsearch.index_prefix", Message: "is required"}
	}

	var (
		client *es.Client
		err    error
	)
	if cfg.SkipPing {
		client, err = infraes.New(cfg.Elasticsearch)
	} else {
		client, err = infraes.NewClient(ctx, cfg.Elasticsearch, log)
	}
	if err != nil {
		return nil, fmt.Errorf("dial elasticsearch: %w", err)
	}

	return New(client, cfg.IndexPrefix, log)
}

// Client returns the engine client. With verify the default alias must
// already exist; bootstrap and rebuild code passes false.
func (m *Manager) Client(ctx context.Context, verify bool) (*es.Client, error) {
	if !verify {
		return m.client, nil
	}

	exists, err := m.AliasExists(ctx, m.DefaultAliasName())
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDefaultAliasMissing, m.DefaultAliasName())
	}
	return m.client, nil
}

// IndexPrefix returns the configured index name prefix.
func (m *Manager) IndexPrefix() string {
	return m.prefix
}

// DefaultAliasName is the alias readers and steady-state writers use.
func (m *Manager) DefaultAliasName() string {
	return m.aliasName(defaultAliasSuffix)
}

// ReindexAliasName points at the backing index being built by a rebuild.
func (m *Manager) ReindexAliasName() string {
	return m.aliasName(reindexAliasSuffix)
}

func (m *Manager) aliasName(suffix string) string {
	return fmt.Sprintf("%s_%s_%s", m.prefix, document.AliasAllIndices, suffix)
}

// MakeBackingIndexName returns a fresh, unique backing index name.
func (m *Manager) MakeBackingIndexName() string {
	return fmt.Sprintf("%s_%s_%s", m.prefix, document.AliasAllIndices,
		strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// ActiveAliases returns whichever of the default and reindex aliases exist,
// default first. It asks the cluster on every call so writes issued while a
// rebuild starts or finishes land in the right indices.
func (m *Manager) ActiveAliases(ctx context.Context) ([]string, error) {
	var active []string
	for _, alias := range []string{m.DefaultAliasName(), m.ReindexAliasName()} {
		exists, err := m.AliasExists(ctx, alias)
		if err != nil {
			return nil, err
		}
		if exists {
			active = append(active, alias)
		}
	}
	return active, nil
}

// AliasExists reports whether alias exists.
func (m *Manager) AliasExists(ctx context.Context, alias string) (bool, error) {
	res, err := m.client.Indices.ExistsAlias(
		[]string{alias},
		m.client.Indices.ExistsAlias.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("check alias %s: %w", alias, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("check alias %s: unexpected status %s", alias, res.Status())
	}
}

// AliasIndices returns the backing indices alias points to. A missing alias
// yields an empty slice.
func (m *Manager) AliasIndices(ctx context.Context, alias string) ([]string, error) {
	res, err := m.client.Indices.GetAlias(
		m.client.Indices.GetAlias.WithName(alias),
		m.client.Indices.GetAlias.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("get alias %s: %w", alias, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return []string{}, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("get alias %s: unexpected status %s", alias, res.Status())
	}

	var byIndex map[string]json.RawMessage
	if err = json.NewDecoder(res.Body).Decode(&byIndex); err != nil {
		return nil, fmt.Errorf("decode alias %s: %w", alias, err)
	}

	indices := make([]string, 0, len(byIndex))
	for index := range byIndex {
		indices = append(indices, index)
	}
	sort.Strings(indices)
	return indices, nil
}

// Ping checks the cluster answers. It backs the health endpoint.
func (m *Manager) Ping(ctx context.Context) error {
	res, err := m.client.Ping(m.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.New("ping elasticsearch: " + res.Status())
	}
	return nil
}
