package database

import (
	"context"
	"fmt"

	"github.com/MasterGowen/open-discussions/internal/domain"
)

const postColumns = `
	p.post_id, p.title, p.slug, p.post_kind,
	COALESCE(p.text, '') AS text,
	COALESCE(p.article_html, '') AS article_html,
	COALESCE(p.url, '') AS url,
	COALESCE(p.thumbnail_url, '') AS thumbnail_url,
	p.score, p.num_comments, p.deleted, p.created_on,
	p.author_username,
	COALESCE(p.author_name, '') AS author_name,
	COALESCE(p.author_headline, '') AS author_headline,
	COALESCE(p.author_avatar_small, '') AS author_avatar_small,
	COALESCE(p.banned_by, '') AS banned_by,
	COALESCE(p.approved_by, '') AS approved_by,
	c.name AS "channel.name",
	c.title AS "channel.title",
	c.channel_type AS "channel.channel_type"`

const commentColumns = `
	comment_id, post_id,
	COALESCE(parent_id, '') AS parent_id,
	COALESCE(text, '') AS text,
	score, deleted, created_on,
	author_username,
	COALESCE(author_name, '') AS author_name,
	COALESCE(author_headline, '') AS author_headline,
	COALESCE(author_avatar_small, '') AS author_avatar_small,
	COALESCE(banned_by, '') AS banned_by,
	COALESCE(approved_by, '') AS approved_by`

// Post loads a post with its channel.
func (r *Repository) Post(ctx context.Context, postID string) (*domain.Post, error) {
	query := `SELECT ` + postColumns + `
		FROM posts p
		JOIN channels c ON c.id = p.channel_id
		WHERE p.post_id = $1`

	var post domain.Post
	if err := r.get(ctx, &post, "post "+postID, query, postID); err != nil {
		return nil, err
	}
	return &post, nil
}

// CommentPage loads up to limit comments of a post in thread order,
// starting at offset, and the total number of comments on the post.
func (r *Repository) CommentPage(ctx context.Context, postID string, offset, limit int) ([]*domain.Comment, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM comments WHERE post_id = $1`, postID); err != nil {
		return nil, 0, fmt.Errorf("count comments of %s: %w", postID, err)
	}
	if offset >= total {
		return nil, total, nil
	}

	query := `SELECT ` + commentColumns + `
		FROM comments
		WHERE post_id = $1
		ORDER BY created_on, comment_id
		LIMIT $2 OFFSET $3`

	var comments []*domain.Comment
	if err := r.db.SelectContext(ctx, &comments, query, postID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("load comments of %s: %w", postID, err)
	}
	return comments, total, nil
}

// PostIDs returns up to limit post ids greater than after, in order.
func (r *Repository) PostIDs(ctx context.Context, after string, limit int) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		`SELECT post_id FROM posts WHERE post_id > $1 ORDER BY post_id LIMIT $2`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return ids, nil
}

// Profile loads a profile and the names of the channels the user belongs to.
func (r *Repository) Profile(ctx context.Context, username string) (*domain.Profile, error) {
	query := `SELECT username,
			COALESCE(name, '') AS name,
			COALESCE(headline, '') AS headline,
			COALESCE(bio, '') AS bio,
			COALESCE(avatar_small, '') AS avatar_small,
			COALESCE(avatar_medium, '') AS avatar_medium
		FROM profiles
		WHERE username = $1`

	var profile domain.Profile
	if err := r.get(ctx, &profile, "profile "+username, query, username); err != nil {
		return nil, err
	}

	err := r.db.SelectContext(ctx, &profile.ChannelMemberships, `
		SELECT c.name
		FROM channel_memberships m
		JOIN channels c ON c.id = m.channel_id
		WHERE m.username = $1
		ORDER BY c.name`, username)
	if err != nil {
		return nil, fmt.Errorf("load channel memberships of %s: %w", username, err)
	}
	return &profile, nil
}

// Usernames returns up to limit usernames greater than after, in order.
func (r *Repository) Usernames(ctx context.Context, after string, limit int) ([]string, error) {
	var names []string
	err := r.db.SelectContext(ctx, &names,
		`SELECT username FROM profiles WHERE username > $1 ORDER BY username LIMIT $2`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return names, nil
}
