package forum_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MasterGowen/open-discussions/internal/domain"
	"github.com/MasterGowen/open-discussions/internal/forum"
	forummocks "github.com/MasterGowen/open-discussions/internal/forum/mocks"
	"github.com/MasterGowen/open-discussions/internal/hooks"
	"github.com/MasterGowen/open-discussions/internal/taskhelpers"
	"github.com/MasterGowen/open-discussions/internal/tasks"
	taskmocks "github.com/MasterGowen/open-discussions/internal/tasks/mocks"
)

type serviceFixture struct {
	backend    *forummocks.MockBackend
	dispatcher *taskmocks.MockDispatcher
	service    *forum.Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	backend := forummocks.NewMockBackend(ctrl)
	dispatcher := taskmocks.NewMockDispatcher(ctrl)

	return &serviceFixture{
		backend:    backend,
		dispatcher: dispatcher,
		service: forum.NewService(backend, taskhelpers.New(dispatcher, nil), hooks.NewRunner(nil, nil)),
	}
}

func (f *serviceFixture) expectTasks(names ...string) *[]tasks.Task {
	var got []tasks.Task
	f.dispatcher.EXPECT().
		Dispatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, task tasks.Task) error {
			got = append(got, task)
			return nil
		}).
		Times(len(names))
	return &got
}

func names(ts []tasks.Task) []string {
	out := make([]string, len(ts))
	for i, task := range ts {
		out[i] = task.Name
	}
	return out
}

func servicePost() *domain.Post {
	return &domain.Post{
		ID:      "7",
		Title:   "Entropy",
		Kind:    domain.PostKindSelf,
		Channel: domain.Channel{Name: "physics", Title: "Physics"},
		Author:  domain.Author{Username: "alice"},
	}
}

func TestService_CreateCommentIndexesAfterCommit(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	draft := forum.CommentDraft{PostID: "7", Text: "because", Author: "bob"}
	created := &domain.Comment{ID: "42", PostID: "7", Text: "because", Post: servicePost()}

	f.backend.EXPECT().CreateComment(gomock.Any(), draft).Return(created, nil)
	got := f.expectTasks(tasks.NameCreateDocument, tasks.NameIncrementField)

	comment, err := f.service.CreateComment(context.Background(), draft)
	require.NoError(t, err)
	assert.Same(t, created, comment)
	assert.Equal(t, []string{tasks.NameCreateDocument, tasks.NameIncrementField}, names(*got))
}

func TestService_FailedMutationSkipsHooks(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	boom := errors.New("constraint violation")
	f.backend.EXPECT().CreatePost(gomock.Any(), gomock.Any()).Return(nil, boom)

	_, err := f.service.CreatePost(context.Background(), forum.PostDraft{Title: "x"})
	require.ErrorIs(t, err, boom)
}

func TestService_HookFailureDoesNotFailMutation(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	f.backend.EXPECT().EditPost(gomock.Any(), "7", "new").Return(servicePost(), nil)
	f.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	post, err := f.service.EditPost(context.Background(), "7", "new")
	require.NoError(t, err)
	assert.Equal(t, "7", post.ID)
}

func TestService_ModeratePostUpdatesComments(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	removed := servicePost()
	removed.BannedBy = "mod"
	f.backend.EXPECT().ModeratePost(gomock.Any(), "7", forum.Decision{Moderator: "mod", Remove: true}).Return(removed, nil)
	got := f.expectTasks(tasks.NameUpdatePartial, tasks.NameUpdateFieldValuesByQuery)

	_, err := f.service.ModeratePost(context.Background(), "7", forum.Decision{Moderator: "mod", Remove: true})
	require.NoError(t, err)
	assert.Equal(t, []string{tasks.NameUpdatePartial, tasks.NameUpdateFieldValuesByQuery}, names(*got))

	var args tasks.UpdatePartialArgs
	require.NoError(t, (*got)[0].DecodeArgs(&args))
	assert.Equal(t, map[string]any{"removed": true}, args.Fields)
}

func TestService_VoteCommentIncrementsScore(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	f.backend.EXPECT().VoteComment(gomock.Any(), "42", domain.VoteDownvote).
		Return(&domain.Comment{ID: "42", PostID: "7"}, nil)
	got := f.expectTasks(tasks.NameIncrementField)

	_, err := f.service.VoteComment(context.Background(), "42", domain.VoteDownvote)
	require.NoError(t, err)

	var args tasks.IncrementArgs
	require.NoError(t, (*got)[0].DecodeArgs(&args))
	assert.Equal(t, "c_42", args.DocID)
	assert.Equal(t, "score", args.Field)
	assert.Equal(t, -1, args.Amount)
}

func TestService_UpdateProfilePropagatesAuthorFields(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	profile := &domain.Profile{Username: "alice", Name: "Alice B."}
	f.backend.EXPECT().UpdateProfile(gomock.Any(), profile).Return(profile, nil)
	got := f.expectTasks(tasks.NameUpsertProfile, tasks.NameUpdateFieldValuesByQuery)

	_, err := f.service.UpdateProfile(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, []string{tasks.NameUpsertProfile, tasks.NameUpdateFieldValuesByQuery}, names(*got))
}
