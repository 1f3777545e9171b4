package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MasterGowen/open-discussions/infrastructure/config"
	infragin "github.com/MasterGowen/open-discussions/infrastructure/gin"
	"github.com/MasterGowen/open-discussions/infrastructure/logger"
)

const healthTimeout = 5 * time.Second

// Pinger checks a dependency for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerOptions collects what the HTTP server exposes.
type ServerOptions struct {
	ServiceName string
	Version     string
	Server      config.ServerConfig
	Metrics     http.Handler
	// Checks are reported by /health under their map key.
	Checks map[string]Pinger
}

// NewServer builds the HTTP server with health, metrics and API routes.
func NewServer(handler *Handler, opts ServerOptions, log logger.Logger) *infragin.Server {
	builder := infragin.NewServerBuilder(opts.ServiceName, opts.Server.Port).
		WithLogger(log).
		WithDebug(opts.Server.Debug).
		WithVersion(opts.Version).
		WithTimeouts(opts.Server.ReadTimeout, opts.Server.WriteTimeout).
		WithRoutes(func(router *gin.Engine) {
			SetupRoutes(router, handler, opts.Metrics)
		})

	for name, pinger := range opts.Checks {
		builder = builder.WithHealthCheck(name, infragin.PingChecker(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
			defer cancel()
			return pinger.Ping(ctx)
		}))
	}

	return builder.Build()
}
