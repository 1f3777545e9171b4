package gin_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infragin "github.com/MasterGowen/open-discussions/infrastructure/gin"
	"github.com/MasterGowen/open-discussions/infrastructure/logger"
)

func TestHealth_AllChecksHealthy(t *testing.T) {
	t.Parallel()

	server := infragin.NewServerBuilder("search-indexer", 0).
		WithLogger(logger.NewNop()).
		WithVersion("test").
		WithHealthCheck("elasticsearch", infragin.PingChecker(func() error { return nil })).
		Build()

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body infragin.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, infragin.HealthStatusHealthy, body.Status)
	assert.Equal(t, "search-indexer", body.Service)
	assert.Contains(t, body.Checks, "elasticsearch")
	assert.NotEmpty(t, rec.Header().Get(infragin.RequestIDHeader))
}

func TestHealth_FailingCheckIsUnavailable(t *testing.T) {
	t.Parallel()

	server := infragin.NewServerBuilder("search-indexer", 0).
		WithHealthCheck("redis", infragin.PingChecker(func() error { return errors.New("connection refused") })).
		Build()

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()

	server := infragin.NewServerBuilder("search-indexer", 0).
		WithRoutes(func(r *gin.Engine) {
			r.GET("/boom", func(*gin.Context) { panic("boom") })
		}).
		Build()

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
