// Package taskhelpers translates forum and catalog change events into
// indexing tasks. Helpers only enqueue work; the worker talks to the search
// engine.
package taskhelpers

import (
	"context"
	"fmt"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/document"
	"github.com/MasterGowen/open-discussions/internal/domain"
	"github.com/MasterGowen/open-discussions/internal/indexing"
	"github.com/MasterGowen/open-discussions/internal/tasks"
)

const (
	fieldNumComments = "num_comments"
	fieldScore       = "score"
)

// Helpers enqueues the indexing tasks for each change event.
type Helpers struct {
	dispatcher tasks.Dispatcher
	log        logger.Logger
}

// New creates Helpers that dispatch through d.
func New(d tasks.Dispatcher, log logger.Logger) *Helpers {
	if log == nil {
		log = logger.NewNop()
	}
	return &Helpers{dispatcher: d, log: log}
}

func (h *Helpers) dispatch(ctx context.Context, build func() (tasks.Task, error)) error {
	task, err := build()
	if err != nil {
		return err
	}
	if err = h.dispatcher.Dispatch(ctx, task); err != nil {
		return fmt.Errorf("dispatch %s: %w", task.Name, err)
	}
	h.log.Debug("Task dispatched", logger.String("task", task.Name))
	return nil
}

func (h *Helpers) dispatchAll(ctx context.Context, builds ...func() (tasks.Task, error)) error {
	for _, build := range builds {
		if err := h.dispatch(ctx, build); err != nil {
			return err
		}
	}
	return nil
}

// IndexNewPost indexes a newly created post.
func (h *Helpers) IndexNewPost(ctx context.Context, post *domain.Post) error {
	doc, err := document.SerializePost(post)
	if err != nil {
		return err
	}
	fields, err := document.Fields(doc)
	if err != nil {
		return err
	}
	return h.dispatch(ctx, func() (tasks.Task, error) {
		return tasks.CreateDocument(doc.ID(), document.TypePost, fields)
	})
}

// IndexNewComment indexes a newly created comment and bumps its post's
// comment count.
func (h *Helpers) IndexNewComment(ctx context.Context, comment *domain.Comment) error {
	doc, err := document.SerializeComment(comment)
	if err != nil {
		return err
	}
	fields, err := document.Fields(doc)
	if err != nil {
		return err
	}
	return h.dispatchAll(ctx,
		func() (tasks.Task, error) {
			return tasks.CreateDocument(doc.ID(), document.TypeComment, fields)
		},
		h.commentCount(doc.PostID, 1),
	)
}

// UpdatePostText reindexes the text of an edited post.
func (h *Helpers) UpdatePostText(ctx context.Context, post *domain.Post) error {
	return h.dispatch(ctx, func() (tasks.Task, error) {
		return tasks.UpdatePartial(document.PostID(post.ID), document.TypePost, document.PostTextFields(post))
	})
}

// UpdateCommentText reindexes the text of an edited comment.
func (h *Helpers) UpdateCommentText(ctx context.Context, comment *domain.Comment) error {
	return h.dispatch(ctx, func() (tasks.Task, error) {
		return tasks.UpdatePartial(document.CommentID(comment.ID), document.TypeComment,
			map[string]any{"text": comment.Text})
	})
}

// UpdatePostRemovalStatus reindexes a post's removal flag and copies it onto
// every comment of the post.
func (h *Helpers) UpdatePostRemovalStatus(ctx context.Context, post *domain.Post) error {
	removed := post.IsRemoved()
	return h.dispatchAll(ctx,
		func() (tasks.Task, error) {
			return tasks.UpdatePartial(document.PostID(post.ID), document.TypePost,
				map[string]any{"removed": removed})
		},
		func() (tasks.Task, error) {
			return tasks.UpdateFieldValuesByQuery(
				indexing.PostCommentsQuery(post.ID),
				map[string]any{"parent_post_removed": removed},
				[]document.ObjectType{document.TypeComment},
			)
		},
	)
}

// UpdateCommentRemovalStatus reindexes a comment's removal flag.
func (h *Helpers) UpdateCommentRemovalStatus(ctx context.Context, comment *domain.Comment) error {
	return h.dispatch(ctx, func() (tasks.Task, error) {
		return tasks.UpdatePartial(document.CommentID(comment.ID), document.TypeComment,
			map[string]any{"removed": comment.IsRemoved()})
	})
}

// SetCommentToDeleted marks a comment deleted and decrements its post's
// comment count.
func (h *Helpers) SetCommentToDeleted(ctx context.Context, comment *domain.Comment) error {
	return h.dispatchAll(ctx,
		func() (tasks.Task, error) {
			return tasks.UpdatePartial(document.CommentID(comment.ID), document.TypeComment,
				map[string]any{"deleted": true})
		},
		h.commentCount(comment.PostID, -1),
	)
}

// IncrementParentPostCommentCount adds one to the comment count of the
// comment's post.
func (h *Helpers) IncrementParentPostCommentCount(ctx context.Context, comment *domain.Comment) error {
	return h.dispatch(ctx, h.commentCount(comment.PostID, 1))
}

// DecrementParentPostCommentCount subtracts one from the comment count of
// the comment's post.
func (h *Helpers) DecrementParentPostCommentCount(ctx context.Context, comment *domain.Comment) error {
	return h.dispatch(ctx, h.commentCount(comment.PostID, -1))
}

func (h *Helpers) commentCount(postID string, amount int) func() (tasks.Task, error) {
	return func() (tasks.Task, error) {
		return tasks.IncrementField(document.PostID(postID), document.TypePost, fieldNumComments, amount)
	}
}

// UpdateIndexedScore applies a vote to the score of a post or comment.
// Actions that do not change the score are ignored.
func (h *Helpers) UpdateIndexedScore(
	ctx context.Context, objectType document.ObjectType, id string, action domain.VoteAction,
) error {
	delta, ok := action.ScoreDelta()
	if !ok {
		h.log.Warn("Ignoring unknown vote action", logger.String("action", string(action)))
		return nil
	}

	var docID string
	switch objectType {
	case document.TypePost:
		docID = document.PostID(id)
	case document.TypeComment:
		docID = document.CommentID(id)
	default:
		return fmt.Errorf("votes are not indexed for %s", objectType)
	}

	return h.dispatch(ctx, func() (tasks.Task, error) {
		return tasks.IncrementField(docID, objectType, fieldScore, delta)
	})
}

// IndexPostWithComments reindexes a post and its whole comment tree.
func (h *Helpers) IndexPostWithComments(ctx context.Context, postID string) error {
	return h.dispatch(ctx, func() (tasks.Task, error) {
		return tasks.IndexPostWithComments(postID)
	})
}

// UpsertProfile reindexes a user's profile.
func (h *Helpers) UpsertProfile(ctx context.Context, username string) error {
	return h.dispatch(ctx, func() (tasks.Task, error) {
		return tasks.UpsertProfile(username)
	})
}

// UpdateAuthorPostsComments copies a profile's display fields onto every
// post and comment the user wrote.
func (h *Helpers) UpdateAuthorPostsComments(ctx context.Context, profile *domain.Profile) error {
	return h.dispatch(ctx, func() (tasks.Task, error) {
		return tasks.UpdateFieldValuesByQuery(
			indexing.AuthorQuery(profile.Username),
			document.AuthorUpdateFields(profile),
			[]document.ObjectType{document.TypePost, document.TypeComment},
		)
	})
}

// UpdateChannelIndex copies a channel's title and type onto every post and
// comment in it.
func (h *Helpers) UpdateChannelIndex(ctx context.Context, channel *domain.Channel) error {
	return h.dispatch(ctx, func() (tasks.Task, error) {
		return tasks.UpdateFieldValuesByQuery(
			indexing.ChannelQuery(channel.Name),
			document.ChannelUpdateFields(channel),
			[]document.ObjectType{document.TypeComment, document.TypePost},
		)
	})
}

// DeleteProfile removes a user's profile document.
func (h *Helpers) DeleteProfile(ctx context.Context, username string) error {
	return h.deleteDocument(ctx, document.ProfileID(username), document.TypeProfile, "")
}

func (h *Helpers) deleteDocument(ctx context.Context, docID string, objectType document.ObjectType, routing string) error {
	return h.dispatch(ctx, func() (tasks.Task, error) {
		return tasks.DeleteDocument(docID, objectType, routing)
	})
}

func (h *Helpers) record(ctx context.Context, name string, id int64) error {
	return h.dispatch(ctx, func() (tasks.Task, error) {
		return tasks.ForRecord(name, id)
	})
}
