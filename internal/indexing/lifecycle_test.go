package indexing_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MasterGowen/open-discussions/internal/indexing"
)

func TestCreateBackingIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		staleReindexAlias bool
	}{
		{name: "no stale alias", staleReindexAlias: false},
		{name: "stale alias removed", staleReindexAlias: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			if tt.staleReindexAlias {
				f.cluster.CreateIndex("stale")
				f.cluster.PutAlias("stale", f.conn.ReindexAliasName())
			}

			backing, err := f.indexer.CreateBackingIndex(context.Background())
			require.NoError(t, err)

			assert.Regexp(t, `^discussions_all_[0-9a-f]{32}$`, backing)
			assert.True(t, f.cluster.IndexExists(backing))
			assert.Contains(t, f.cluster.IndexBody(backing), "mappings")
			assert.Equal(t, []string{backing}, f.cluster.AliasTargets(f.conn.ReindexAliasName()))

			staleDeletes := f.cluster.RequestsTo(http.MethodDelete, "/_all/_aliases/"+f.conn.ReindexAliasName())
			assert.Len(t, staleDeletes, boolToInt(tt.staleReindexAlias))
		})
	}
}

func TestSwitchIndices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		defaultExists bool
	}{
		{name: "replaces live index", defaultExists: true},
		{name: "first build", defaultExists: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			if tt.defaultExists {
				f.live()
			}
			f.rebuilding()
			f.cluster.ResetRequests()

			require.NoError(t, f.indexer.SwitchIndices(context.Background(), nextIndex))

			aliasUpdates := f.cluster.RequestsTo(http.MethodPost, "/_aliases")
			require.Len(t, aliasUpdates, 1)

			actions := []any{}
			if tt.defaultExists {
				actions = append(actions, map[string]any{
					"remove": map[string]any{"index": liveIndex, "alias": f.conn.DefaultAliasName()},
				})
			}
			actions = append(actions, map[string]any{
				"add": map[string]any{"index": nextIndex, "alias": f.conn.DefaultAliasName()},
			})
			assert.Equal(t, map[string]any{"actions": actions}, aliasUpdates[0].JSON())

			assert.Equal(t, []string{nextIndex}, f.cluster.AliasTargets(f.conn.DefaultAliasName()))
			assert.Empty(t, f.cluster.AliasTargets(f.conn.ReindexAliasName()))
			assert.False(t, f.cluster.IndexExists(liveIndex))
			assert.Len(t, f.cluster.RequestsTo(http.MethodPost, "/"+nextIndex+"/_refresh"), 1)
			assert.Len(t, f.cluster.RequestsTo(http.MethodDelete, "/"+liveIndex), boolToInt(tt.defaultExists))
		})
	}
}

func TestSwitchIndices_MissingOldIndexIsNotFatal(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live().rebuilding()
	f.cluster.Fail(http.MethodDelete, "/"+liveIndex, http.StatusNotFound,
		`{"error":{"type":"index_not_found_exception","reason":"gone"},"status":404}`, 1)

	require.NoError(t, f.indexer.SwitchIndices(context.Background(), nextIndex))
	assert.Equal(t, []string{nextIndex}, f.cluster.AliasTargets(f.conn.DefaultAliasName()))
}

func TestSwitchIndices_FailedSwapKeepsLiveIndex(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live().rebuilding()
	f.cluster.Fail(http.MethodPost, "/_aliases", http.StatusInternalServerError,
		`{"error":{"type":"exception","reason":"boom"},"status":500}`, 0)

	require.Error(t, f.indexer.SwitchIndices(context.Background(), nextIndex))

	assert.Equal(t, []string{liveIndex}, f.cluster.AliasTargets(f.conn.DefaultAliasName()))
	assert.True(t, f.cluster.IndexExists(liveIndex))
}

func TestStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	status, err := f.indexer.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, indexing.StateNoIndex, status.State)

	f.live()
	status, err = f.indexer.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, indexing.StateLive, status.State)
	assert.Equal(t, []string{liveIndex}, status.DefaultIndices)

	f.rebuilding()
	status, err = f.indexer.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, indexing.StateBuilding, status.State)
	assert.Equal(t, []string{nextIndex}, status.ReindexIndices)
}

func TestCountDocuments(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	count, err := f.indexer.CountDocuments(ctx, f.conn.DefaultAliasName())
	require.NoError(t, err)
	assert.Zero(t, count)

	f.live()
	f.cluster.PutDoc(liveIndex, "p_1", map[string]any{})
	f.cluster.PutDoc(liveIndex, "p_2", map[string]any{})

	count, err = f.indexer.CountDocuments(ctx, f.conn.DefaultAliasName())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
