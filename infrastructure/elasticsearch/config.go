package elasticsearch

import (
	"net/http"
	"time"

	"github.com/MasterGowen/open-discussions/infrastructure/retry"
)

// Config holds Elasticsearch client configuration.
type Config struct {
	// URL is the server URL, e.g. http://elasticsearch:9200.
	URL string
	// Username and Password enable basic auth when both are set.
	Username string
	Password string
	// APIKey takes precedence over basic auth.
	APIKey string
	// TLS configures secure connections.
	TLS *TLSConfig
	// MaxRetries is passed to the transport for per-request retries.
	MaxRetries int
	// PingTimeout bounds each connection verification attempt.
	PingTimeout time.Duration
	// RetryConfig controls connection verification retries.
	RetryConfig *retry.Config
	// Transport replaces the default HTTP transport. Tests use it to stub
	// the cluster.
	Transport http.RoundTripper
}

// TLSConfig holds TLS settings.
type TLSConfig struct {
	Enabled            bool
	InsecureSkipVerify bool
	CertFile           string
	KeyFile            string
	CAFile             string
}

// SetDefaults applies default values to the config if not set.
func (c *Config) SetDefaults() {
	if c.URL == "" {
		c.URL = "http://localhost:9200"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = 5 * time.Second
	}
	if c.RetryConfig == nil {
		c.RetryConfig = &retry.Config{
			MaxAttempts:  5,
			InitialDelay: 2 * time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		}
	}
}
