package taskhelpers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MasterGowen/open-discussions/internal/document"
	"github.com/MasterGowen/open-discussions/internal/domain"
	"github.com/MasterGowen/open-discussions/internal/indexing"
	"github.com/MasterGowen/open-discussions/internal/taskhelpers"
	"github.com/MasterGowen/open-discussions/internal/tasks"
	"github.com/MasterGowen/open-discussions/internal/tasks/mocks"
)

// recorder collects every dispatched task.
func recorder(t *testing.T) (*taskhelpers.Helpers, *[]tasks.Task) {
	t.Helper()

	ctrl := gomock.NewController(t)
	dispatcher := mocks.NewMockDispatcher(ctrl)

	var dispatched []tasks.Task
	dispatcher.EXPECT().
		Dispatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, task tasks.Task) error {
			dispatched = append(dispatched, task)
			return nil
		}).
		AnyTimes()

	return taskhelpers.New(dispatcher, nil), &dispatched
}

func decode[T any](t *testing.T, task tasks.Task) T {
	t.Helper()
	var args T
	require.NoError(t, task.DecodeArgs(&args))
	return args
}

func testPost() *domain.Post {
	return &domain.Post{
		ID:      "7",
		Title:   "Entropy",
		Kind:    domain.PostKindSelf,
		Text:    "why",
		Channel: domain.Channel{Name: "physics", Title: "Physics", Type: domain.ChannelTypePublic},
		Author:  domain.Author{Username: "alice", Name: "Alice"},
	}
}

func TestIndexNewComment_CreatesCommentAndBumpsPostCount(t *testing.T) {
	t.Parallel()

	helpers, dispatched := recorder(t)
	comment := &domain.Comment{ID: "42", PostID: "7", Text: "because", Post: testPost()}

	require.NoError(t, helpers.IndexNewComment(context.Background(), comment))
	require.Len(t, *dispatched, 2)

	create := (*dispatched)[0]
	assert.Equal(t, tasks.NameCreateDocument, create.Name)
	createArgs := decode[tasks.CreateDocumentArgs](t, create)
	assert.Equal(t, "c_42", createArgs.DocID)
	assert.Equal(t, "comment", createArgs.ObjectType)
	assert.Equal(t, "comment", createArgs.Data["object_type"])
	assert.Equal(t, "because", createArgs.Data["text"])
	assert.Equal(t, "7", createArgs.Data["post_id"])

	increment := (*dispatched)[1]
	assert.Equal(t, tasks.NameIncrementField, increment.Name)
	incArgs := decode[tasks.IncrementArgs](t, increment)
	assert.Equal(t, "p_7", incArgs.DocID)
	assert.Equal(t, "post", incArgs.ObjectType)
	assert.Equal(t, "num_comments", incArgs.Field)
	assert.Equal(t, 1, incArgs.Amount)
}

func TestIndexNewComment_MalformedDispatchesNothing(t *testing.T) {
	t.Parallel()

	helpers, dispatched := recorder(t)

	err := helpers.IndexNewComment(context.Background(), &domain.Comment{ID: "42"})
	require.ErrorIs(t, err, document.ErrMalformed)
	assert.Empty(t, *dispatched)
}

func TestDeleteCourse_RoutesContentFilesToCourse(t *testing.T) {
	t.Parallel()

	helpers, dispatched := recorder(t)
	course := &domain.Course{
		CourseID: "6.001",
		Platform: domain.PlatformOCW,
		Runs: []domain.Run{
			{RunID: "fall", ContentFiles: []domain.ContentFile{{Key: "a.pdf"}, {Key: "b.pdf"}}},
			{RunID: "spring", ContentFiles: []domain.ContentFile{{Key: "c.pdf"}}},
		},
	}

	require.NoError(t, helpers.DeleteCourse(context.Background(), course))
	require.Len(t, *dispatched, 4)

	courseDocID := document.CourseID(domain.PlatformOCW, "6.001")
	first := decode[tasks.DocumentArgs](t, (*dispatched)[0])
	assert.Equal(t, tasks.DocumentArgs{DocID: courseDocID, ObjectType: "course"}, first)

	for i, key := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		task := (*dispatched)[i+1]
		assert.Equal(t, tasks.NameDeleteDocument, task.Name)
		assert.Equal(t, tasks.DocumentArgs{
			DocID:      document.ContentFileID(key),
			ObjectType: "course",
			Routing:    courseDocID,
		}, decode[tasks.DocumentArgs](t, task))
	}
}

func TestUpdatePostRemovalStatus_UpdatesPostAndComments(t *testing.T) {
	t.Parallel()

	helpers, dispatched := recorder(t)
	post := testPost()
	post.BannedBy = "mod"

	require.NoError(t, helpers.UpdatePostRemovalStatus(context.Background(), post))
	require.Len(t, *dispatched, 2)

	partial := decode[tasks.UpdatePartialArgs](t, (*dispatched)[0])
	assert.Equal(t, "p_7", partial.DocID)
	assert.Equal(t, map[string]any{"removed": true}, partial.Fields)

	byQuery := decode[tasks.UpdateByQueryArgs](t, (*dispatched)[1])
	assert.Equal(t, indexing.PostCommentsQuery("7"), byQuery.Query)
	assert.Equal(t, map[string]any{"parent_post_removed": true}, byQuery.FieldValues)
	assert.Equal(t, []string{"comment"}, byQuery.ObjectTypes)
}

func TestSetCommentToDeleted(t *testing.T) {
	t.Parallel()

	helpers, dispatched := recorder(t)

	require.NoError(t, helpers.SetCommentToDeleted(context.Background(), &domain.Comment{ID: "5", PostID: "7"}))
	require.Len(t, *dispatched, 2)

	partial := decode[tasks.UpdatePartialArgs](t, (*dispatched)[0])
	assert.Equal(t, "c_5", partial.DocID)
	assert.Equal(t, map[string]any{"deleted": true}, partial.Fields)

	inc := decode[tasks.IncrementArgs](t, (*dispatched)[1])
	assert.Equal(t, "p_7", inc.DocID)
	assert.Equal(t, -1, inc.Amount)
}

func TestUpdateIndexedScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		objectType document.ObjectType
		action     domain.VoteAction
		wantDocID  string
		wantAmount int
	}{
		{name: "post upvote", objectType: document.TypePost, action: domain.VoteUpvote, wantDocID: "p_1", wantAmount: 1},
		{name: "comment clear upvote", objectType: document.TypeComment, action: domain.VoteClearUpvote, wantDocID: "c_1", wantAmount: -1},
		{name: "clear downvote", objectType: document.TypePost, action: domain.VoteClearDownvote, wantDocID: "p_1", wantAmount: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			helpers, dispatched := recorder(t)
			require.NoError(t, helpers.UpdateIndexedScore(context.Background(), tt.objectType, "1", tt.action))
			require.Len(t, *dispatched, 1)

			args := decode[tasks.IncrementArgs](t, (*dispatched)[0])
			assert.Equal(t, tt.wantDocID, args.DocID)
			assert.Equal(t, "score", args.Field)
			assert.Equal(t, tt.wantAmount, args.Amount)
		})
	}
}

func TestUpdateIndexedScore_UnknownActionIgnored(t *testing.T) {
	t.Parallel()

	helpers, dispatched := recorder(t)

	require.NoError(t, helpers.UpdateIndexedScore(context.Background(), document.TypePost, "1", domain.VoteAction("meh")))
	assert.Empty(t, *dispatched)
}

func TestUpdateAuthorPostsComments(t *testing.T) {
	t.Parallel()

	helpers, dispatched := recorder(t)
	profile := &domain.Profile{Username: "alice", Name: "Alice L.", Headline: "Physicist", AvatarSmall: "s.png"}

	require.NoError(t, helpers.UpdateAuthorPostsComments(context.Background(), profile))
	require.Len(t, *dispatched, 1)

	args := decode[tasks.UpdateByQueryArgs](t, (*dispatched)[0])
	assert.Equal(t, indexing.AuthorQuery("alice"), args.Query)
	assert.Equal(t, map[string]any{
		"author_name":         "Alice L.",
		"author_avatar_small": "s.png",
		"author_headline":     "Physicist",
	}, args.FieldValues)
	assert.Equal(t, []string{"post", "comment"}, args.ObjectTypes)
}

func TestDeleteUserList_UsesListType(t *testing.T) {
	t.Parallel()

	helpers, dispatched := recorder(t)
	list := &domain.UserList{ListType: domain.ListTypeLearningPath}
	list.ID = 3

	require.NoError(t, helpers.DeleteUserList(context.Background(), list))
	require.Len(t, *dispatched, 1)
	assert.Equal(t, tasks.DocumentArgs{DocID: "user_list_3", ObjectType: "learningpath"},
		decode[tasks.DocumentArgs](t, (*dispatched)[0]))
}

func TestUpsertCourse_DispatchesRecordTask(t *testing.T) {
	t.Parallel()

	helpers, dispatched := recorder(t)

	require.NoError(t, helpers.UpsertCourse(context.Background(), 99))
	require.Len(t, *dispatched, 1)
	assert.Equal(t, tasks.NameUpsertCourse, (*dispatched)[0].Name)
	assert.Equal(t, tasks.RecordArgs{ID: 99}, decode[tasks.RecordArgs](t, (*dispatched)[0]))
}

func TestDispatchErrorStopsSequence(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	dispatcher := mocks.NewMockDispatcher(ctrl)
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(errors.New("redis down")).Times(1)

	helpers := taskhelpers.New(dispatcher, nil)
	err := helpers.SetCommentToDeleted(context.Background(), &domain.Comment{ID: "5", PostID: "7"})
	require.ErrorContains(t, err, "redis down")
}
