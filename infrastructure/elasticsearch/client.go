// Package elasticsearch builds go-elasticsearch clients with TLS, auth and a
// verified connection.
package elasticsearch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/infrastructure/retry"
)

// NewClient creates a client and pings the cluster, retrying with
// exponential backoff until it answers or the retry budget runs out.
func NewClient(ctx context.Context, cfg Config, log logger.Logger) (*es.Client, error) {
	client, err := New(cfg)
	if err != nil {
		return nil, err
	}

	cfg.SetDefaults()
	url := normalizeURL(cfg.URL)
	log.Info("Verifying Elasticsearch connection", logger.String("url", url))

	if pingErr := retry.Do(ctx, *cfg.RetryConfig, func() error {
		return ping(ctx, client, cfg.PingTimeout, log)
	}); pingErr != nil {
		return nil, fmt.Errorf("connect to elasticsearch after retries: %w", pingErr)
	}

	log.Info("Elasticsearch connection established", logger.String("url", url))
	return client, nil
}

// New creates a client without contacting the cluster.
func New(cfg Config) (*es.Client, error) {
	cfg.SetDefaults()

	transport := cfg.Transport
	if transport == nil {
		httpTransport, err := createTransport(cfg.TLS)
		if err != nil {
			return nil, err
		}
		transport = httpTransport
	}

	clientConfig := es.Config{
		Addresses:  []string{normalizeURL(cfg.URL)},
		Transport:  transport,
		MaxRetries: cfg.MaxRetries,
	}

	switch {
	case cfg.APIKey != "":
		clientConfig.APIKey = cfg.APIKey
	case cfg.Username != "" && cfg.Password != "":
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	client, err := es.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return client, nil
}

func normalizeURL(url string) string {
	if url == "" {
		return "http://localhost:9200"
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "http://" + url
	}
	return url
}

func createTransport(tlsConfig *TLSConfig) (*http.Transport, error) {
	transport := &http.Transport{}
	if tlsConfig == nil || !tlsConfig.Enabled {
		return transport, nil
	}

	//nolint:gosec // InsecureSkipVerify is an explicit opt-in for local clusters
	tlsClientConfig := &tls.Config{
		InsecureSkipVerify: tlsConfig.InsecureSkipVerify,
	}

	if tlsConfig.CertFile != "" && tlsConfig.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(tlsConfig.CertFile, tlsConfig.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsClientConfig.Certificates = []tls.Certificate{cert}
	}

	if tlsConfig.CAFile != "" {
		pem, err := os.ReadFile(tlsConfig.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", tlsConfig.CAFile)
		}
		tlsClientConfig.RootCAs = pool
	}

	transport.TLSClientConfig = tlsClientConfig
	return transport, nil
}

func ping(ctx context.Context, client *es.Client, timeout time.Duration, log logger.Logger) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := client.Ping(client.Ping.WithContext(pingCtx))
	if err != nil {
		log.Debug("Elasticsearch ping failed", logger.Error(err))
		return fmt.Errorf("ping failed: %w", err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			log.Debug("Failed to close ping response body", logger.Error(closeErr))
		}
	}()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("ping returned error [%s]: %s", res.Status(), string(body))
	}
	return nil
}
