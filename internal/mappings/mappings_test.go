package mappings_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MasterGowen/open-discussions/internal/mappings"
)

func TestMapping_JoinField(t *testing.T) {
	t.Parallel()

	props, ok := mappings.Mapping()["properties"].(map[string]any)
	require.True(t, ok)

	relations, ok := props["resource_relations"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "join", relations["type"])
	assert.Equal(t, map[string]any{"course": "resourcefile"}, relations["relations"])
}

func TestMapping_SharedFields(t *testing.T) {
	t.Parallel()

	props, ok := mappings.Mapping()["properties"].(map[string]any)
	require.True(t, ok)

	for _, field := range []string{"object_type", "post_id", "num_comments", "score", "author_id", "course_id", "runs"} {
		assert.Contains(t, props, field)
	}
}

func TestIndexBody(t *testing.T) {
	t.Parallel()

	full := mappings.IndexBody(false)
	assert.Contains(t, full, "settings")
	assert.Contains(t, full, "mappings")

	settingsOnly := mappings.IndexBody(true)
	assert.Contains(t, settingsOnly, "settings")
	assert.NotContains(t, settingsOnly, "mappings")

	_, err := json.Marshal(full)
	require.NoError(t, err)
}
