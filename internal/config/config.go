// Package config holds the search indexer configuration.
package config

import (
	"time"

	"github.com/google/uuid"

	infraconfig "github.com/MasterGowen/open-discussions/infrastructure/config"
	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	infraredis "github.com/MasterGowen/open-discussions/infrastructure/redis"
)

// Default configuration values.
const (
	defaultServiceName      = "search-indexer"
	defaultServiceVersion   = "1.0.0"
	defaultESURL            = "http://localhost:9200"
	defaultIndexPrefix      = "discussions"
	defaultChunkSize        = 100
	defaultScriptLang       = "painless"
	defaultConflicts        = "proceed"
	defaultESMaxRetries     = 3
	defaultRetryOnConflict  = 3
	defaultDBUser           = "postgres"
	defaultDBName           = "open_discussions"
	defaultRedisAddress     = "localhost:6379"
	defaultStreamPrefix     = "search"
	defaultMaxStreamLen     = 100000
	defaultConsumerGroup    = "search-indexer"
	defaultBatchSize        = 10
	defaultBlockTimeout     = 5 * time.Second
	defaultClaimMinIdle     = 5 * time.Minute
	defaultConcurrency      = 4
	defaultRebuildSchedule  = "@daily"
	defaultBulkRPS          = 10
	defaultExpansionLimit   = 32
	defaultRebuildBatchSize = 100
)

// ScheduleOff disables scheduled rebuilds.
const ScheduleOff = "off"

// Conflict modes of update-by-query.
const (
	ConflictsProceed = "proceed"
	ConflictsAbort   = "abort"
)

// Config holds the indexer configuration.
type Config struct {
	Service       ServiceConfig              `yaml:"service"`
	Elasticsearch ElasticsearchConfig        `yaml:"elasticsearch"`
	Redis         RedisConfig                `yaml:"redis"`
	Database      infraconfig.DatabaseConfig `yaml:"database"`
	Worker        WorkerConfig               `yaml:"worker"`
	Rebuild       RebuildConfig              `yaml:"rebuild"`
	Server        infraconfig.ServerConfig   `yaml:"server"`
	Logging       logger.Config              `yaml:"logging"`
}

// ServiceConfig names the service.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Debug   bool   `env:"APP_DEBUG" yaml:"debug"`
}

// ElasticsearchConfig holds the cluster and indexing settings.
type ElasticsearchConfig struct {
	URL             string `env:"ELASTICSEARCH_URL"      yaml:"url"`
	Username        string `env:"ELASTICSEARCH_USERNAME" yaml:"username"`
	Password        string `env:"ELASTICSEARCH_PASSWORD" yaml:"password"`
	APIKey          string `env:"ELASTICSEARCH_API_KEY"  yaml:"api_key"`
	IndexPrefix     string `env:"ELASTICSEARCH_INDEX"    yaml:"index_prefix"`
	ChunkSize       int    `env:"ELASTICSEARCH_CHUNK"    yaml:"chunk_size"`
	ScriptLang      string `yaml:"script_lang"`
	Conflicts       string `yaml:"conflicts"`
	MaxRetries      int    `yaml:"max_retries"`
	RetryOnConflict int    `yaml:"retry_on_conflict"`
}

// RedisConfig holds the task queue connection and stream settings.
type RedisConfig struct {
	infraredis.Config `yaml:",inline"`

	StreamPrefix string `env:"REDIS_STREAM_PREFIX" yaml:"stream_prefix"`
	MaxStreamLen int64  `yaml:"max_stream_len"`
}

// WorkerConfig holds task worker settings.
type WorkerConfig struct {
	ConsumerGroup string        `yaml:"consumer_group"`
	ConsumerID    string        `env:"WORKER_CONSUMER_ID" yaml:"consumer_id"`
	BatchSize     int           `yaml:"batch_size"`
	BlockTimeout  time.Duration `yaml:"block_timeout"`
	ClaimMinIdle  time.Duration `yaml:"claim_min_idle"`
	Concurrency   int           `env:"WORKER_CONCURRENCY" yaml:"concurrency"`
}

// RebuildConfig holds full rebuild settings.
type RebuildConfig struct {
	// Schedule is a cron spec; ScheduleOff disables scheduled rebuilds.
	Schedule              string  `env:"REBUILD_SCHEDULE" yaml:"schedule"`
	BulkRPS               float64 `yaml:"bulk_rps"`
	BatchSize             int     `yaml:"batch_size"`
	CommentExpansionLimit int     `yaml:"comment_expansion_limit"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	return infraconfig.LoadWithDefaults[Config](path, setDefaults)
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setElasticsearchDefaults(&cfg.Elasticsearch)
	setRedisDefaults(&cfg.Redis)
	setDatabaseDefaults(&cfg.Database)
	setWorkerDefaults(&cfg.Worker, cfg.Service.Name)
	setRebuildDefaults(&cfg.Rebuild)
	cfg.Server.SetDefaults()
	if cfg.Service.Debug {
		cfg.Server.Debug = true
	}
	cfg.Logging.SetDefaults()
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
}

func setElasticsearchDefaults(e *ElasticsearchConfig) {
	if e.URL == "" {
		e.URL = defaultESURL
	}
	if e.IndexPrefix == "" {
		e.IndexPrefix = defaultIndexPrefix
	}
	if e.ChunkSize == 0 {
		e.ChunkSize = defaultChunkSize
	}
	if e.ScriptLang == "" {
		e.ScriptLang = defaultScriptLang
	}
	if e.Conflicts == "" {
		e.Conflicts = defaultConflicts
	}
	if e.MaxRetries == 0 {
		e.MaxRetries = defaultESMaxRetries
	}
	if e.RetryOnConflict == 0 {
		e.RetryOnConflict = defaultRetryOnConflict
	}
}

func setRedisDefaults(r *RedisConfig) {
	if r.Address == "" {
		r.Address = defaultRedisAddress
	}
	if r.StreamPrefix == "" {
		r.StreamPrefix = defaultStreamPrefix
	}
	if r.MaxStreamLen == 0 {
		r.MaxStreamLen = defaultMaxStreamLen
	}
}

func setDatabaseDefaults(d *infraconfig.DatabaseConfig) {
	d.SetDefaults()
	if d.User == "" {
		d.User = defaultDBUser
	}
	if d.Database == "" {
		d.Database = defaultDBName
	}
}

// setWorkerDefaults gives each process its own consumer id unless one is
// configured.
func setWorkerDefaults(w *WorkerConfig, serviceName string) {
	if w.ConsumerGroup == "" {
		w.ConsumerGroup = defaultConsumerGroup
	}
	if w.ConsumerID == "" {
		w.ConsumerID = serviceName + "-" + uuid.NewString()[:8]
	}
	if w.BatchSize == 0 {
		w.BatchSize = defaultBatchSize
	}
	if w.BlockTimeout == 0 {
		w.BlockTimeout = defaultBlockTimeout
	}
	if w.ClaimMinIdle == 0 {
		w.ClaimMinIdle = defaultClaimMinIdle
	}
	if w.Concurrency == 0 {
		w.Concurrency = defaultConcurrency
	}
}

func setRebuildDefaults(r *RebuildConfig) {
	if r.Schedule == "" {
		r.Schedule = defaultRebuildSchedule
	}
	if r.BulkRPS == 0 {
		r.BulkRPS = defaultBulkRPS
	}
	if r.BatchSize == 0 {
		r.BatchSize = defaultRebuildBatchSize
	}
	if r.CommentExpansionLimit == 0 {
		r.CommentExpansionLimit = defaultExpansionLimit
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := infraconfig.ValidateRequired("elasticsearch.url", c.Elasticsearch.URL); err != nil {
		return err
	}
	if err := infraconfig.ValidateRequired("elasticsearch.index_prefix", c.Elasticsearch.IndexPrefix); err != nil {
		return err
	}
	if err := infraconfig.ValidatePositive("elasticsearch.chunk_size", c.Elasticsearch.ChunkSize); err != nil {
		return err
	}
	if c.Elasticsearch.Conflicts != ConflictsProceed && c.Elasticsearch.Conflicts != ConflictsAbort {
		return &infraconfig.ValidationError{Field: "elasticsearch.conflicts", Message: "must be proceed or abort"}
	}
	if err := infraconfig.ValidateRequired("redis.address", c.Redis.Address); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := infraconfig.ValidatePositive("worker.concurrency", c.Worker.Concurrency); err != nil {
		return err
	}
	if err := infraconfig.ValidatePositive("worker.batch_size", c.Worker.BatchSize); err != nil {
		return err
	}
	if err := infraconfig.ValidatePort("server.port", c.Server.Port); err != nil {
		return err
	}
	return infraconfig.ValidateLogLevel(c.Logging.Level)
}
