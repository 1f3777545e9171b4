package indexing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/connection"
	"github.com/MasterGowen/open-discussions/internal/domain"
	"github.com/MasterGowen/open-discussions/internal/indexing"
	"github.com/MasterGowen/open-discussions/internal/testutil/esfake"
)

const (
	liveIndex = "discussions_all_live"
	nextIndex = "discussions_all_next"
)

type fixture struct {
	indexer *indexing.Indexer
	cluster *esfake.Cluster
	conn    *connection.Manager
	logs    *observer.ObservedLogs
}

func newFixture(t *testing.T, opts ...indexing.Option) *fixture {
	t.Helper()

	cluster := esfake.New()
	client, err := cluster.NewClient()
	require.NoError(t, err)

	core, logs := observer.New(zap.DebugLevel)
	log := logger.NewFromZap(zap.New(core))

	conn, err := connection.New(client, "discussions", log)
	require.NoError(t, err)

	indexer := indexing.New(conn, indexing.Settings{ChunkSize: 2}, log, opts...)
	return &fixture{indexer: indexer, cluster: cluster, conn: conn, logs: logs}
}

// live sets up a steady-state cluster with only the default alias.
func (f *fixture) live() *fixture {
	f.cluster.CreateIndex(liveIndex)
	f.cluster.PutAlias(liveIndex, f.conn.DefaultAliasName())
	return f
}

// rebuilding adds a second index behind the reindex alias.
func (f *fixture) rebuilding() *fixture {
	f.cluster.CreateIndex(nextIndex)
	f.cluster.PutAlias(nextIndex, f.conn.ReindexAliasName())
	return f
}

func (f *fixture) errorLogs(message string) int {
	return f.logs.FilterLevelExact(zap.ErrorLevel).FilterMessage(message).Len()
}

type stubTree struct {
	post     *domain.Post
	comments []*domain.Comment
	err      error
}

func (s *stubTree) PostWithComments(_ context.Context, _ string) (*domain.Post, []*domain.Comment, error) {
	return s.post, s.comments, s.err
}
