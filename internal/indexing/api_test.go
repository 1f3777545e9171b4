package indexing_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MasterGowen/open-discussions/internal/document"
	"github.com/MasterGowen/open-discussions/internal/indexing"
)

func TestCreateDocument_FansOutToActiveAliases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		setup    func(f *fixture)
		requests int
	}{
		{name: "default only", setup: func(f *fixture) { f.live() }, requests: 1},
		{name: "default and reindex", setup: func(f *fixture) { f.live().rebuilding() }, requests: 2},
		{name: "nothing initialized", setup: func(*fixture) {}, requests: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			tt.setup(f)

			err := f.indexer.CreateDocument(context.Background(), "p_1", document.TypePost, map[string]any{"post_id": "1"})
			require.NoError(t, err)

			creates := f.cluster.RequestsTo(http.MethodPut, "/_create/p_1")
			assert.Len(t, creates, tt.requests)
		})
	}
}

func TestCreateDocument_WritesToBothBackingIndices(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live().rebuilding()

	require.NoError(t, f.indexer.CreateDocument(context.Background(), "c_9", document.TypeComment, map[string]any{"text": "hi"}))

	for _, index := range []string{liveIndex, nextIndex} {
		doc, ok := f.cluster.Doc(index, "c_9")
		require.True(t, ok, index)
		assert.Equal(t, "comment", doc.Source["object_type"])
		assert.Equal(t, "hi", doc.Source["text"])
	}
}

func TestCreateDocument_ConflictIsReturned(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live()
	f.cluster.PutDoc(liveIndex, "p_1", map[string]any{"post_id": "1"})

	err := f.indexer.CreateDocument(context.Background(), "p_1", document.TypePost, map[string]any{"post_id": "1"})

	require.Error(t, err)
	assert.True(t, indexing.IsConflict(err))

	var conflict *indexing.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "version_conflict_engine_exception", conflict.Type)
}

func TestCreateDocument_ReindexOnlyConflictSucceeds(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live().rebuilding()
	f.cluster.PutDoc(nextIndex, "c_1", map[string]any{"text": "bulk loaded"})

	err := f.indexer.CreateDocument(context.Background(), "c_1", document.TypeComment, map[string]any{"text": "hook"})
	require.NoError(t, err)

	live, ok := f.cluster.Doc(liveIndex, "c_1")
	require.True(t, ok)
	assert.Equal(t, "hook", live.Source["text"])
	next, _ := f.cluster.Doc(nextIndex, "c_1")
	assert.Equal(t, "bulk loaded", next.Source["text"])
}

func TestCreateDocument_DefaultConflictDuringRebuildIsReturned(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live().rebuilding()
	f.cluster.PutDoc(liveIndex, "c_1", map[string]any{"text": "old"})

	err := f.indexer.CreateDocument(context.Background(), "c_1", document.TypeComment, map[string]any{"text": "hook"})
	assert.True(t, indexing.IsConflict(err))
}

func TestCreateDocument_RejectsUnknownType(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live()

	err := f.indexer.CreateDocument(context.Background(), "x_1", document.ObjectType("widget"), nil)
	require.Error(t, err)
	assert.Empty(t, f.cluster.RequestsTo("", "/_create/x_1"))
}

func TestUpdateDocumentPartial_MergesFields(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live()
	f.cluster.PutDoc(liveIndex, "c_1", map[string]any{"text": "old", "removed": false})

	err := f.indexer.UpdateDocumentPartial(context.Background(), "c_1", map[string]any{"removed": true}, document.TypeComment)
	require.NoError(t, err)

	doc, ok := f.cluster.Doc(liveIndex, "c_1")
	require.True(t, ok)
	assert.Equal(t, true, doc.Source["removed"])
	assert.Equal(t, "old", doc.Source["text"])

	updates := f.cluster.RequestsTo(http.MethodPost, "/_update/c_1")
	require.Len(t, updates, 1)
	assert.Equal(t, map[string]any{"doc": map[string]any{"removed": true}}, updates[0].JSON())
}

func TestUpdateDocumentPartial_DropsVersionConflict(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live()
	f.cluster.Fail(http.MethodPost, "/_update/", http.StatusConflict,
		`{"error":{"type":"version_conflict_engine_exception","reason":"conflict"},"status":409}`, 1)

	err := f.indexer.UpdateDocumentPartial(context.Background(), "p_1", map[string]any{"text": "new"}, document.TypePost)

	require.NoError(t, err)
	assert.Equal(t, 1, f.errorLogs("Version conflict, dropping update"))
}

func TestUpdateDocumentPartial_MissingDocumentIsDropped(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live()

	err := f.indexer.UpdateDocumentPartial(context.Background(), "p_404", map[string]any{"text": "x"}, document.TypePost)
	require.NoError(t, err)
}

func TestUpdateDocumentPartial_OtherErrorsPropagate(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live()
	f.cluster.Fail(http.MethodPost, "/_update/", http.StatusBadRequest,
		`{"error":{"type":"mapper_parsing_exception","reason":"bad"},"status":400}`, 1)

	err := f.indexer.UpdateDocumentPartial(context.Background(), "p_1", map[string]any{"text": "x"}, document.TypePost)

	var resErr *indexing.ResponseError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, http.StatusBadRequest, resErr.Status)
}

func TestUpdateDocumentPartial_Routing(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live()
	f.cluster.PutDoc(liveIndex, "cf_x", map[string]any{"title": "a"})

	err := f.indexer.UpdateDocumentPartial(context.Background(), "cf_x", map[string]any{"title": "b"},
		document.TypeResourceFile, indexing.WithRouting("co_ocw_x"), indexing.WithRetryOnConflict(3))
	require.NoError(t, err)

	updates := f.cluster.RequestsTo(http.MethodPost, "/_update/cf_x")
	require.Len(t, updates, 1)
	assert.Equal(t, "co_ocw_x", updates[0].Query.Get("routing"))
	assert.Equal(t, "3", updates[0].Query.Get("retry_on_conflict"))
}

func TestIncrementIntegerField_UsesScript(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live()
	f.cluster.PutDoc(liveIndex, "p_1", map[string]any{"num_comments": float64(0)})

	require.NoError(t, f.indexer.IncrementIntegerField(context.Background(), "p_1", "num_comments", 1, document.TypePost))

	updates := f.cluster.RequestsTo(http.MethodPost, "/_update/p_1")
	require.Len(t, updates, 1)
	assert.Equal(t, map[string]any{
		"script": map[string]any{
			"source": "ctx._source.num_comments += params.incr_amount",
			"lang":   "painless",
			"params": map[string]any{"incr_amount": float64(1)},
		},
	}, updates[0].JSON())
}

func TestIncrementIntegerField_Commutative(t *testing.T) {
	t.Parallel()

	orders := [][]int{
		{1, -1, 1},
		{-1, 1, 1},
		{1, 1, -1},
	}

	for _, order := range orders {
		f := newFixture(t).live().rebuilding()
		f.cluster.PutDoc(liveIndex, "p_1", map[string]any{"score": float64(5)})
		f.cluster.PutDoc(nextIndex, "p_1", map[string]any{"score": float64(5)})

		for _, amount := range order {
			require.NoError(t, f.indexer.IncrementIntegerField(context.Background(), "p_1", "score", amount, document.TypePost))
		}

		for _, index := range []string{liveIndex, nextIndex} {
			doc, ok := f.cluster.Doc(index, "p_1")
			require.True(t, ok)
			assert.InDelta(t, 6, doc.Source["score"], 0, "order %v index %s", order, index)
		}
	}
}

func TestIncrementIntegerField_RetriesLostRaces(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live().rebuilding()
	for _, index := range []string{liveIndex, nextIndex} {
		f.cluster.PutDoc(index, "p_1", map[string]any{"num_comments": float64(0)})
	}
	f.cluster.Contend(f.conn.ReindexAliasName()+"/_update/", 1)

	require.NoError(t, f.indexer.IncrementIntegerField(context.Background(), "p_1", "num_comments", 1, document.TypePost))

	for _, index := range []string{liveIndex, nextIndex} {
		doc, ok := f.cluster.Doc(index, "p_1")
		require.True(t, ok)
		assert.InDelta(t, 1, doc.Source["num_comments"], 0, index)
	}

	updates := f.cluster.RequestsTo(http.MethodPost, "/_update/p_1")
	require.Len(t, updates, 2)
	for _, req := range updates {
		assert.Equal(t, "3", req.Query.Get("retry_on_conflict"))
	}
}

func TestIncrementIntegerField_ConflictIsDroppedPerAlias(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live().rebuilding()
	for _, index := range []string{liveIndex, nextIndex} {
		f.cluster.PutDoc(index, "p_1", map[string]any{"num_comments": float64(0)})
	}
	f.cluster.Contend(f.conn.ReindexAliasName()+"/_update/", 2)

	err := f.indexer.IncrementIntegerField(context.Background(), "p_1", "num_comments", 1, document.TypePost,
		indexing.WithRetryOnConflict(1))
	require.NoError(t, err)

	live, _ := f.cluster.Doc(liveIndex, "p_1")
	next, _ := f.cluster.Doc(nextIndex, "p_1")
	assert.InDelta(t, 1, live.Source["num_comments"], 0)
	assert.InDelta(t, 0, next.Source["num_comments"], 0)
	assert.Equal(t, 1, f.errorLogs("Version conflict, dropping update"))

	for _, req := range f.cluster.RequestsTo(http.MethodPost, "/_update/p_1") {
		assert.Equal(t, "1", req.Query.Get("retry_on_conflict"))
	}
}

func TestUpdateFieldValuesByQuery(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live().rebuilding()
	for _, index := range []string{liveIndex, nextIndex} {
		f.cluster.PutDoc(index, "c_1", map[string]any{"object_type": "comment", "post_id": "p1", "parent_post_removed": false})
		f.cluster.PutDoc(index, "c_2", map[string]any{"object_type": "comment", "post_id": "other", "parent_post_removed": false})
		f.cluster.PutDoc(index, "p_p1", map[string]any{"object_type": "post", "post_id": "p1"})
	}

	err := f.indexer.UpdateFieldForAllPostComments(context.Background(), "p1", "parent_post_removed", true)
	require.NoError(t, err)

	for _, index := range []string{liveIndex, nextIndex} {
		c1, _ := f.cluster.Doc(index, "c_1")
		c2, _ := f.cluster.Doc(index, "c_2")
		post, _ := f.cluster.Doc(index, "p_p1")
		assert.Equal(t, true, c1.Source["parent_post_removed"], index)
		assert.Equal(t, false, c2.Source["parent_post_removed"], index)
		assert.NotContains(t, post.Source, "parent_post_removed", index)
	}

	requests := f.cluster.RequestsTo(http.MethodPost, "/_update_by_query")
	require.Len(t, requests, 2)
	for _, req := range requests {
		assert.Equal(t, "proceed", req.Query.Get("conflicts"))
		script, ok := req.JSON()["script"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "ctx._source.parent_post_removed = params.new_value", script["source"])
	}
}

func TestUpdateFieldValuesByQuery_OneRequestPerField(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live()

	err := f.indexer.UpdateFieldValuesByQuery(context.Background(),
		indexing.AuthorQuery("alice"),
		map[string]any{"author_name": "Alice", "author_headline": "Prof", "author_avatar_small": "a.png"},
		[]document.ObjectType{document.TypePost, document.TypeComment},
	)
	require.NoError(t, err)

	requests := f.cluster.RequestsTo(http.MethodPost, "/_update_by_query")
	require.Len(t, requests, 3)

	query, ok := requests[0].JSON()["query"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"bool": map[string]any{
			"must": []any{map[string]any{"match": map[string]any{"author_id": "alice"}}},
			"filter": []any{map[string]any{
				"terms": map[string]any{"object_type": []any{"post", "comment"}},
			}},
		},
	}, query)
}

func TestUpdateFieldValuesByQuery_LogsVersionConflicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		conflicts int
		logged    int
	}{
		{name: "no conflicts", conflicts: 0, logged: 0},
		{name: "conflicts", conflicts: 1, logged: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t).live()
			if tt.conflicts > 0 {
				f.cluster.Fail(http.MethodPost, "/_update_by_query", http.StatusOK,
					`{"total":2,"updated":1,"version_conflicts":1}`, 1)
			}

			err := f.indexer.UpdateFieldValuesByQuery(context.Background(),
				indexing.ChannelQuery("physics"), map[string]any{"channel_title": "Physics"}, nil)

			require.NoError(t, err)
			assert.Equal(t, tt.logged, f.errorLogs("Version conflicts during update by query"))
		})
	}
}

func TestDeleteDocument(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live().rebuilding()
	f.cluster.PutDoc(liveIndex, "u_alice", map[string]any{"author_id": "alice"})

	require.NoError(t, f.indexer.DeleteDocument(context.Background(), "u_alice", document.TypeProfile))

	_, ok := f.cluster.Doc(liveIndex, "u_alice")
	assert.False(t, ok)
	assert.Len(t, f.cluster.RequestsTo(http.MethodDelete, "/_doc/u_alice"), 2)
}

func TestDeleteDocument_MissingIsSuccess(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live()

	require.NoError(t, f.indexer.DeleteDocument(context.Background(), "p_gone", document.TypePost))
	require.NoError(t, f.indexer.DeleteDocument(context.Background(), "p_gone", document.TypePost))
}

func TestDeleteDocument_Routing(t *testing.T) {
	t.Parallel()

	f := newFixture(t).live()

	require.NoError(t, f.indexer.DeleteDocument(context.Background(), "cf_abc", document.TypeCourse,
		indexing.WithRouting("co_ocw_Ni4wMDE")))

	deletes := f.cluster.RequestsTo(http.MethodDelete, "/_doc/cf_abc")
	require.Len(t, deletes, 1)
	assert.Equal(t, "co_ocw_Ni4wMDE", deletes[0].Query.Get("routing"))
}

func TestClearAndCreateIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		alreadyExists bool
		skipMapping   bool
	}{
		{name: "fresh with mapping", alreadyExists: false, skipMapping: false},
		{name: "fresh without mapping", alreadyExists: false, skipMapping: true},
		{name: "existing with mapping", alreadyExists: true, skipMapping: false},
		{name: "existing without mapping", alreadyExists: true, skipMapping: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			if tt.alreadyExists {
				f.cluster.CreateIndex("idx")
				f.cluster.PutDoc("idx", "p_old", map[string]any{})
			}

			require.NoError(t, f.indexer.ClearAndCreateIndex(context.Background(), "idx", tt.skipMapping))

			assert.Len(t, f.cluster.RequestsTo(http.MethodDelete, "/idx"), boolToInt(tt.alreadyExists))
			assert.True(t, f.cluster.IndexExists("idx"))
			assert.Equal(t, 0, f.cluster.DocCount("idx"))

			body := f.cluster.IndexBody("idx")
			assert.Contains(t, body, "settings")
			if tt.skipMapping {
				assert.NotContains(t, body, "mappings")
			} else {
				assert.Contains(t, body, "mappings")
			}
		})
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
