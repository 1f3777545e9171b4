// Package domain holds the source-of-truth entities the indexer reads from
// the forum and the course catalog.
package domain

import "time"

// Post kinds.
const (
	PostKindSelf    = "self"
	PostKindLink    = "link"
	PostKindArticle = "article"
)

// Channel types.
const (
	ChannelTypePublic     = "public"
	ChannelTypeRestricted = "restricted"
	ChannelTypePrivate    = "private"
)

// DeletedText replaces the body of a deleted post or comment.
const DeletedText = "[deleted]"

// VoteAction is a change to a user's vote on a post or comment.
type VoteAction string

const (
	VoteUpvote        VoteAction = "upvote"
	VoteClearUpvote   VoteAction = "clear_upvote"
	VoteDownvote      VoteAction = "downvote"
	VoteClearDownvote VoteAction = "clear_downvote"
)

// ScoreDelta returns the signed change a vote action makes to a score.
// Unknown actions return false.
func (a VoteAction) ScoreDelta() (int, bool) {
	switch a {
	case VoteUpvote, VoteClearDownvote:
		return 1, true
	case VoteDownvote, VoteClearUpvote:
		return -1, true
	default:
		return 0, false
	}
}

// Author is the denormalized author data carried by posts and comments.
type Author struct {
	Username    string `db:"author_username"`
	Name        string `db:"author_name"`
	Headline    string `db:"author_headline"`
	AvatarSmall string `db:"author_avatar_small"`
}

// Channel is a forum channel.
type Channel struct {
	Name  string `db:"name"`
	Title string `db:"title"`
	Type  string `db:"channel_type"`
}

// Moderation holds the moderator decisions on a post or comment.
type Moderation struct {
	BannedBy   string `db:"banned_by"`
	ApprovedBy string `db:"approved_by"`
}

// IsRemoved reports whether a moderator removed the object and nobody
// approved it since.
func (m Moderation) IsRemoved() bool {
	return m.BannedBy != "" && m.ApprovedBy != m.BannedBy
}

// Post is a forum submission.
type Post struct {
	ID           string    `db:"post_id"`
	Title        string    `db:"title"`
	Slug         string    `db:"slug"`
	Kind         string    `db:"post_kind"`
	Text         string    `db:"text"`
	ArticleHTML  string    `db:"article_html"`
	URL          string    `db:"url"`
	ThumbnailURL string    `db:"thumbnail_url"`
	Score        int       `db:"score"`
	NumComments  int       `db:"num_comments"`
	Deleted      bool      `db:"deleted"`
	Created      time.Time `db:"created_on"`

	Author
	Moderation
	Channel Channel `db:"channel"`
}

// Comment is a reply to a post or to another comment.
type Comment struct {
	ID       string    `db:"comment_id"`
	PostID   string    `db:"post_id"`
	ParentID string    `db:"parent_id"`
	Text     string    `db:"text"`
	Score    int       `db:"score"`
	Deleted  bool      `db:"deleted"`
	Created  time.Time `db:"created_on"`

	Author
	Moderation

	// Post is the parent post. It is filled in by the tree loader.
	Post *Post `db:"-"`
}

// Profile is a forum user's public profile.
type Profile struct {
	Username           string   `db:"username"`
	Name               string   `db:"name"`
	Headline           string   `db:"headline"`
	Bio                string   `db:"bio"`
	AvatarSmall        string   `db:"avatar_small"`
	AvatarMedium       string   `db:"avatar_medium"`
	ChannelMemberships []string `db:"-"`
}
