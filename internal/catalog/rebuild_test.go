package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MasterGowen/open-discussions/internal/catalog"
	"github.com/MasterGowen/open-discussions/internal/document"
	"github.com/MasterGowen/open-discussions/internal/domain"
)

func TestSources_LoadEveryTable(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	course := testCourse()
	for _, f := range testFiles(course) {
		f.Course, f.Run = nil, nil
		course.Runs[0].ContentFiles = append(course.Runs[0].ContentFiles, *f)
	}
	store.courses[5] = course
	store.videos[1] = &domain.Video{Resource: domain.Resource{ID: 1}, VideoID: "abc", Platform: domain.PlatformYouTube}
	store.videos[2] = &domain.Video{Resource: domain.Resource{ID: 2}}
	store.videos[3] = &domain.Video{Resource: domain.Resource{ID: 3}, VideoID: "def", Platform: domain.PlatformYouTube}
	store.programs[4] = &domain.Program{Resource: domain.Resource{ID: 4}, ProgramID: "micromasters"}

	sources := catalog.Sources(store, 2, nil)

	got := make(map[string][]document.Document)
	var names []string
	for _, src := range sources {
		names = append(names, src.Name())
		require.NoError(t, src.Each(context.Background(), func(docs []document.Document) error {
			got[src.Name()] = append(got[src.Name()], docs...)
			return nil
		}))
	}

	assert.Equal(t, []string{"courses", "bootcamps", "programs", "user_lists", "videos"}, names)

	require.Len(t, got["courses"], 3)
	assert.Equal(t, document.TypeCourse, got["courses"][0].ObjectType())
	assert.Equal(t, document.CourseID("ocw", "6.001"), got["courses"][1].Routing())

	assert.Len(t, got["programs"], 1)
	assert.Empty(t, got["bootcamps"])

	require.Len(t, got["videos"], 2)
	assert.Equal(t, "video_youtube_abc", got["videos"][0].ID())
	assert.Equal(t, "video_youtube_def", got["videos"][1].ID())
}
