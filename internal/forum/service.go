package forum

import (
	"context"

	"github.com/MasterGowen/open-discussions/internal/document"
	"github.com/MasterGowen/open-discussions/internal/domain"
	"github.com/MasterGowen/open-discussions/internal/hooks"
	"github.com/MasterGowen/open-discussions/internal/taskhelpers"
)

// PostDraft is a new post.
type PostDraft struct {
	Channel string
	Title   string
	Kind    string
	Text    string
	URL     string
	Author  string
}

// CommentDraft is a new comment. ParentID is empty for a top-level comment.
type CommentDraft struct {
	PostID   string
	ParentID string
	Text     string
	Author   string
}

// Decision is a moderator's removal or approval.
type Decision struct {
	Moderator string
	Remove    bool
}

// Backend persists forum changes. Returned comments carry their post.
//
//go:generate mockgen -destination=mocks/mock_backend.go -package=mocks github.com/MasterGowen/open-discussions/internal/forum Backend
type Backend interface {
	CreatePost(ctx context.Context, draft PostDraft) (*domain.Post, error)
	EditPost(ctx context.Context, postID, text string) (*domain.Post, error)
	ModeratePost(ctx context.Context, postID string, decision Decision) (*domain.Post, error)
	VotePost(ctx context.Context, postID string, action domain.VoteAction) (*domain.Post, error)

	CreateComment(ctx context.Context, draft CommentDraft) (*domain.Comment, error)
	EditComment(ctx context.Context, commentID, text string) (*domain.Comment, error)
	ModerateComment(ctx context.Context, commentID string, decision Decision) (*domain.Comment, error)
	DeleteComment(ctx context.Context, commentID string) (*domain.Comment, error)
	VoteComment(ctx context.Context, commentID string, action domain.VoteAction) (*domain.Comment, error)

	UpdateProfile(ctx context.Context, profile *domain.Profile) (*domain.Profile, error)
	UpdateChannel(ctx context.Context, channel *domain.Channel) (*domain.Channel, error)
}

// Service applies forum changes through a Backend and enqueues the
// matching index updates once each change is committed.
type Service struct {
	backend Backend
	helpers *taskhelpers.Helpers
	runner  *hooks.Runner
}

// NewService creates a Service.
func NewService(backend Backend, helpers *taskhelpers.Helpers, runner *hooks.Runner) *Service {
	return &Service{backend: backend, helpers: helpers, runner: runner}
}

// CreatePost creates a post and indexes it.
func (s *Service) CreatePost(ctx context.Context, draft PostDraft) (*domain.Post, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.Post, error) { return s.backend.CreatePost(ctx, draft) },
		hooks.Hook[*domain.Post]{Name: "index_new_post", Run: s.helpers.IndexNewPost},
	)
}

// EditPost changes a post's text.
func (s *Service) EditPost(ctx context.Context, postID, text string) (*domain.Post, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.Post, error) { return s.backend.EditPost(ctx, postID, text) },
		hooks.Hook[*domain.Post]{Name: "update_post_text", Run: s.helpers.UpdatePostText},
	)
}

// ModeratePost removes or approves a post. The removal state is copied to
// the post's comments.
func (s *Service) ModeratePost(ctx context.Context, postID string, decision Decision) (*domain.Post, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.Post, error) { return s.backend.ModeratePost(ctx, postID, decision) },
		hooks.Hook[*domain.Post]{Name: "update_post_removal_status", Run: s.helpers.UpdatePostRemovalStatus},
	)
}

// VotePost records a vote on a post.
func (s *Service) VotePost(ctx context.Context, postID string, action domain.VoteAction) (*domain.Post, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.Post, error) { return s.backend.VotePost(ctx, postID, action) },
		hooks.Hook[*domain.Post]{Name: "update_post_score", Run: func(ctx context.Context, post *domain.Post) error {
			return s.helpers.UpdateIndexedScore(ctx, document.TypePost, post.ID, action)
		}},
	)
}

// CreateComment creates a comment, indexes it and bumps the post's
// comment count.
func (s *Service) CreateComment(ctx context.Context, draft CommentDraft) (*domain.Comment, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.Comment, error) { return s.backend.CreateComment(ctx, draft) },
		hooks.Hook[*domain.Comment]{Name: "index_new_comment", Run: s.helpers.IndexNewComment},
	)
}

// EditComment changes a comment's text.
func (s *Service) EditComment(ctx context.Context, commentID, text string) (*domain.Comment, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.Comment, error) { return s.backend.EditComment(ctx, commentID, text) },
		hooks.Hook[*domain.Comment]{Name: "update_comment_text", Run: s.helpers.UpdateCommentText},
	)
}

// ModerateComment removes or approves a comment.
func (s *Service) ModerateComment(ctx context.Context, commentID string, decision Decision) (*domain.Comment, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.Comment, error) {
			return s.backend.ModerateComment(ctx, commentID, decision)
		},
		hooks.Hook[*domain.Comment]{Name: "update_comment_removal_status", Run: s.helpers.UpdateCommentRemovalStatus},
	)
}

// DeleteComment soft-deletes a comment. The document is kept and the
// post's comment count goes down.
func (s *Service) DeleteComment(ctx context.Context, commentID string) (*domain.Comment, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.Comment, error) { return s.backend.DeleteComment(ctx, commentID) },
		hooks.Hook[*domain.Comment]{Name: "set_comment_to_deleted", Run: s.helpers.SetCommentToDeleted},
	)
}

// VoteComment records a vote on a comment.
func (s *Service) VoteComment(ctx context.Context, commentID string, action domain.VoteAction) (*domain.Comment, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.Comment, error) { return s.backend.VoteComment(ctx, commentID, action) },
		hooks.Hook[*domain.Comment]{Name: "update_comment_score", Run: func(ctx context.Context, c *domain.Comment) error {
			return s.helpers.UpdateIndexedScore(ctx, document.TypeComment, c.ID, action)
		}},
	)
}

// UpdateProfile saves a profile, reindexes it and copies the author fields
// onto the user's posts and comments.
func (s *Service) UpdateProfile(ctx context.Context, profile *domain.Profile) (*domain.Profile, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.Profile, error) { return s.backend.UpdateProfile(ctx, profile) },
		hooks.Hook[*domain.Profile]{Name: "upsert_profile", Run: func(ctx context.Context, p *domain.Profile) error {
			return s.helpers.UpsertProfile(ctx, p.Username)
		}},
		hooks.Hook[*domain.Profile]{Name: "update_author_posts_comments", Run: s.helpers.UpdateAuthorPostsComments},
	)
}

// UpdateChannel saves a channel and copies its title and type onto its
// posts and comments.
func (s *Service) UpdateChannel(ctx context.Context, channel *domain.Channel) (*domain.Channel, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.Channel, error) { return s.backend.UpdateChannel(ctx, channel) },
		hooks.Hook[*domain.Channel]{Name: "update_channel_index", Run: s.helpers.UpdateChannelIndex},
	)
}
