package document

import (
	"time"

	"github.com/MasterGowen/open-discussions/internal/domain"
)

// AuthorFields are the denormalized author fields of posts and comments.
type AuthorFields struct {
	AuthorID          string `json:"author_id"`
	AuthorName        string `json:"author_name"`
	AuthorHeadline    string `json:"author_headline"`
	AuthorAvatarSmall string `json:"author_avatar_small"`
}

// ChannelFields are the denormalized channel fields of posts and comments.
type ChannelFields struct {
	ChannelName  string `json:"channel_name"`
	ChannelTitle string `json:"channel_title"`
	ChannelType  string `json:"channel_type"`
}

// PostDocument is the document of a forum post.
type PostDocument struct {
	Base
	AuthorFields
	ChannelFields

	PostID        string    `json:"post_id"`
	PostTitle     string    `json:"post_title"`
	PostSlug      string    `json:"post_slug"`
	PostType      string    `json:"post_type"`
	PostLinkURL   string    `json:"post_link_url,omitempty"`
	PostLinkImage string    `json:"post_link_image,omitempty"`
	Text          string    `json:"text"`
	PlainText     string    `json:"plain_text"`
	Score         int       `json:"score"`
	NumComments   int       `json:"num_comments"`
	Created       time.Time `json:"created"`
	Removed       bool      `json:"removed"`
	Deleted       bool      `json:"deleted"`
}

// ID implements Document.
func (d *PostDocument) ID() string { return PostID(d.PostID) }

// Routing implements Document.
func (d *PostDocument) Routing() string { return "" }

// CommentDocument is the document of a forum comment.
type CommentDocument struct {
	Base
	AuthorFields
	ChannelFields

	CommentID         string    `json:"comment_id"`
	ParentCommentID   string    `json:"parent_comment_id,omitempty"`
	PostID            string    `json:"post_id"`
	PostTitle         string    `json:"post_title"`
	PostSlug          string    `json:"post_slug"`
	Text              string    `json:"text"`
	Score             int       `json:"score"`
	Created           time.Time `json:"created"`
	Removed           bool      `json:"removed"`
	Deleted           bool      `json:"deleted"`
	ParentPostRemoved bool      `json:"parent_post_removed"`
}

// ID implements Document.
func (d *CommentDocument) ID() string { return CommentID(d.CommentID) }

// Routing implements Document.
func (d *CommentDocument) Routing() string { return "" }

// ProfileDocument is the document of a user profile.
type ProfileDocument struct {
	Base

	AuthorID                string   `json:"author_id"`
	AuthorName              string   `json:"author_name"`
	AuthorAvatarSmall       string   `json:"author_avatar_small"`
	AuthorAvatarMedium      string   `json:"author_avatar_medium"`
	AuthorBio               string   `json:"author_bio"`
	AuthorHeadline          string   `json:"author_headline"`
	AuthorChannelMembership []string `json:"author_channel_membership"`
}

// ID implements Document.
func (d *ProfileDocument) ID() string { return ProfileID(d.AuthorID) }

// Routing implements Document.
func (d *ProfileDocument) Routing() string { return "" }

// PostTextFields returns the partial update sent when a post's text changes.
func PostTextFields(post *domain.Post) map[string]any {
	return map[string]any{
		"text":       post.Text,
		"plain_text": PlainText(post.ArticleHTML),
	}
}

// SerializePost builds the document of post.
func SerializePost(post *domain.Post) (*PostDocument, error) {
	if post == nil || post.ID == "" {
		return nil, malformed(TypePost, "missing post id")
	}
	if post.Channel.Name == "" {
		return nil, malformed(TypePost, "post %s has no channel", post.ID)
	}

	doc := &PostDocument{
		Base:          Base{Type: TypePost},
		AuthorFields:  authorFields(post.Author),
		ChannelFields: channelFields(post.Channel),
		PostID:        post.ID,
		PostTitle:     post.Title,
		PostSlug:      post.Slug,
		PostType:      post.Kind,
		Text:          post.Text,
		PlainText:     PlainText(post.ArticleHTML),
		Score:         post.Score,
		NumComments:   post.NumComments,
		Created:       post.Created.UTC(),
		Removed:       post.IsRemoved(),
		Deleted:       post.Deleted,
	}
	if post.Kind == domain.PostKindLink {
		doc.PostLinkURL = post.URL
		doc.PostLinkImage = post.ThumbnailURL
	}
	if doc.PlainText == "" {
		doc.PlainText = post.Text
	}

	return doc, nil
}

// SerializeComment builds the document of comment. The comment's parent
// post must be loaded.
func SerializeComment(comment *domain.Comment) (*CommentDocument, error) {
	if comment == nil {
		return nil, malformed(TypeComment, "missing comment id")
	}
	return SerializeCommentOf(comment.Post, comment)
}

// SerializeCommentOf builds the document of comment as a reply under post,
// leaving comment untouched.
func SerializeCommentOf(post *domain.Post, comment *domain.Comment) (*CommentDocument, error) {
	if comment == nil || comment.ID == "" {
		return nil, malformed(TypeComment, "missing comment id")
	}
	if post == nil {
		return nil, malformed(TypeComment, "comment %s has no parent post", comment.ID)
	}

	doc := &CommentDocument{
		Base:              Base{Type: TypeComment},
		AuthorFields:      authorFields(comment.Author),
		ChannelFields:     channelFields(post.Channel),
		CommentID:         comment.ID,
		ParentCommentID:   comment.ParentID,
		PostID:            post.ID,
		PostTitle:         post.Title,
		PostSlug:          post.Slug,
		Text:              comment.Text,
		Score:             comment.Score,
		Created:           comment.Created.UTC(),
		Removed:           comment.IsRemoved(),
		Deleted:           comment.Deleted,
		ParentPostRemoved: post.IsRemoved(),
	}

	return doc, nil
}

// SerializeProfile builds the document of profile.
func SerializeProfile(profile *domain.Profile) (*ProfileDocument, error) {
	if profile == nil || profile.Username == "" {
		return nil, malformed(TypeProfile, "missing username")
	}

	memberships := profile.ChannelMemberships
	if memberships == nil {
		memberships = []string{}
	}

	return &ProfileDocument{
		Base:                    Base{Type: TypeProfile},
		AuthorID:                profile.Username,
		AuthorName:              profile.Name,
		AuthorAvatarSmall:       profile.AvatarSmall,
		AuthorAvatarMedium:      profile.AvatarMedium,
		AuthorBio:               profile.Bio,
		AuthorHeadline:          profile.Headline,
		AuthorChannelMembership: memberships,
	}, nil
}

// AuthorUpdateFields returns the author fields copied onto every post and
// comment by the profile's owner.
func AuthorUpdateFields(profile *domain.Profile) map[string]any {
	return map[string]any{
		"author_name":         profile.Name,
		"author_avatar_small": profile.AvatarSmall,
		"author_headline":     profile.Headline,
	}
}

// ChannelUpdateFields returns the channel fields copied onto every post and
// comment in the channel.
func ChannelUpdateFields(channel *domain.Channel) map[string]any {
	return map[string]any{
		"channel_title": channel.Title,
		"channel_type":  channel.Type,
	}
}

func authorFields(a domain.Author) AuthorFields {
	return AuthorFields{
		AuthorID:          a.Username,
		AuthorName:        a.Name,
		AuthorHeadline:    a.Headline,
		AuthorAvatarSmall: a.AvatarSmall,
	}
}

func channelFields(c domain.Channel) ChannelFields {
	return ChannelFields{
		ChannelName:  c.Name,
		ChannelTitle: c.Title,
		ChannelType:  c.Type,
	}
}
