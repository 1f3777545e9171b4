package connection_test

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraes "github.com/MasterGowen/open-discussions/infrastructure/elasticsearch"
	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/connection"
	"github.com/MasterGowen/open-discussions/internal/testutil/esfake"
)

func newManager(t *testing.T) (*connection.Manager, *esfake.Cluster) {
	t.Helper()

	cluster := esfake.New()
	client, err := cluster.NewClient()
	require.NoError(t, err)

	manager, err := connection.New(client, "discussions", logger.NewNop())
	require.NoError(t, err)
	return manager, cluster
}

func TestAliasNames(t *testing.T) {
	t.Parallel()

	manager, _ := newManager(t)

	assert.Equal(t, "discussions_all_default", manager.DefaultAliasName())
	assert.Equal(t, "discussions_all_reindexing", manager.ReindexAliasName())
}

func TestMakeBackingIndexName(t *testing.T) {
	t.Parallel()

	manager, _ := newManager(t)

	first := manager.MakeBackingIndexName()
	second := manager.MakeBackingIndexName()

	assert.Regexp(t, regexp.MustCompile(`^discussions_all_[0-9a-f]{32}$`), first)
	assert.NotEqual(t, first, second)
}

func TestActiveAliases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(c *esfake.Cluster)
		expects []string
	}{
		{
			name:    "nothing initialized",
			setup:   func(*esfake.Cluster) {},
			expects: nil,
		},
		{
			name: "default only",
			setup: func(c *esfake.Cluster) {
				c.CreateIndex("live")
				c.PutAlias("live", "discussions_all_default")
			},
			expects: []string{"discussions_all_default"},
		},
		{
			name: "rebuild in progress",
			setup: func(c *esfake.Cluster) {
				c.CreateIndex("live")
				c.CreateIndex("next")
				c.PutAlias("live", "discussions_all_default")
				c.PutAlias("next", "discussions_all_reindexing")
			},
			expects: []string{"discussions_all_default", "discussions_all_reindexing"},
		},
		{
			name: "first build",
			setup: func(c *esfake.Cluster) {
				c.CreateIndex("next")
				c.PutAlias("next", "discussions_all_reindexing")
			},
			expects: []string{"discussions_all_reindexing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			manager, cluster := newManager(t)
			tt.setup(cluster)

			aliases, err := manager.ActiveAliases(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expects, aliases)
		})
	}
}

func TestActiveAliases_AlwaysAsksCluster(t *testing.T) {
	t.Parallel()

	manager, cluster := newManager(t)
	ctx := context.Background()

	aliases, err := manager.ActiveAliases(ctx)
	require.NoError(t, err)
	assert.Empty(t, aliases)

	cluster.CreateIndex("live")
	cluster.PutAlias("live", manager.DefaultAliasName())

	aliases, err = manager.ActiveAliases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{manager.DefaultAliasName()}, aliases)
}

func TestActiveAliases_UnexpectedStatus(t *testing.T) {
	t.Parallel()

	manager, cluster := newManager(t)
	cluster.Fail(http.MethodHead, "/_alias/", http.StatusInternalServerError, "", 0)

	_, err := manager.ActiveAliases(context.Background())
	require.Error(t, err)
}

func TestClient_Verify(t *testing.T) {
	t.Parallel()

	manager, cluster := newManager(t)
	ctx := context.Background()

	client, err := manager.Client(ctx, false)
	require.NoError(t, err)
	assert.NotNil(t, client)

	_, err = manager.Client(ctx, true)
	require.ErrorIs(t, err, connection.ErrDefaultAliasMissing)

	cluster.CreateIndex("live")
	cluster.PutAlias("live", manager.DefaultAliasName())

	client, err = manager.Client(ctx, true)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestAliasIndices(t *testing.T) {
	t.Parallel()

	manager, cluster := newManager(t)
	ctx := context.Background()

	indices, err := manager.AliasIndices(ctx, manager.DefaultAliasName())
	require.NoError(t, err)
	assert.Empty(t, indices)

	cluster.CreateIndex("live")
	cluster.PutAlias("live", manager.DefaultAliasName())

	indices, err = manager.AliasIndices(ctx, manager.DefaultAliasName())
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, indices)
}

func TestNew_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	cluster := esfake.New()
	client, err := cluster.NewClient()
	require.NoError(t, err)

	_, err = connection.New(nil, "discussions", nil)
	var cfgErr *connection.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))

	_, err = connection.New(client, " ", nil)
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "elasticsearch.index_prefix", cfgErr.Setting)
}

func TestDial_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var cfgErr *connection.ConfigurationError

	_, err := connection.Dial(ctx, connection.Config{IndexPrefix: "discussions"}, logger.NewNop())
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "elasticsearch.url", cfgErr.Setting)

	_, err = connection.Dial(ctx, connection.Config{
		Elasticsearch: infraes.Config{URL: "http://localhost:9200"},
	}, logger.NewNop())
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "elasticsearch.index_prefix", cfgErr.Setting)
}

func TestDial_SkipPing(t *testing.T) {
	t.Parallel()

	manager, err := connection.Dial(context.Background(), connection.Config{
		Elasticsearch: infraes.Config{URL: "http://localhost:9200", Transport: esfake.New()},
		IndexPrefix:   "discussions",
		SkipPing:      true,
	}, logger.NewNop())
	require.NoError(t, err)

	require.NoError(t, manager.Ping(context.Background()))
}
