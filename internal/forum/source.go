// Package forum reads posts, comment trees and profiles for indexing and
// wraps forum mutations with post-commit indexing hooks.
package forum

import (
	"context"

	"github.com/MasterGowen/open-discussions/internal/domain"
)

const defaultPageSize = 200

// MoreRef is a placeholder for comments a page did not include.
type MoreRef struct {
	PostID string
	Offset int
	Count  int
}

// Page is one batch of comments and the placeholders for the rest.
type Page struct {
	Comments []*domain.Comment
	More     []MoreRef
}

// Source reads posts and their comments page by page.
type Source interface {
	GetPost(ctx context.Context, postID string) (*domain.Post, error)
	TopLevelComments(ctx context.Context, postID string) (*Page, error)
	ExpandMore(ctx context.Context, ref MoreRef) (*Page, error)
}

// CommentStore is the storage the database source reads from.
type CommentStore interface {
	Post(ctx context.Context, postID string) (*domain.Post, error)
	CommentPage(ctx context.Context, postID string, offset, limit int) ([]*domain.Comment, int, error)
}

// DBSource serves comment pages from the forum database.
type DBSource struct {
	store    CommentStore
	pageSize int
}

// NewDBSource creates a DBSource. pageSize <= 0 uses the default.
func NewDBSource(store CommentStore, pageSize int) *DBSource {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &DBSource{store: store, pageSize: pageSize}
}

// GetPost implements Source.
func (s *DBSource) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	return s.store.Post(ctx, postID)
}

// TopLevelComments implements Source.
func (s *DBSource) TopLevelComments(ctx context.Context, postID string) (*Page, error) {
	comments, total, err := s.store.CommentPage(ctx, postID, 0, s.pageSize)
	if err != nil {
		return nil, err
	}
	return newPage(postID, comments, len(comments), total), nil
}

// ExpandMore implements Source. At most one page is loaded; anything left
// over is returned as a new placeholder.
func (s *DBSource) ExpandMore(ctx context.Context, ref MoreRef) (*Page, error) {
	limit := min(ref.Count, s.pageSize)
	if limit <= 0 {
		return &Page{}, nil
	}

	comments, total, err := s.store.CommentPage(ctx, ref.PostID, ref.Offset, limit)
	if err != nil {
		return nil, err
	}
	return newPage(ref.PostID, comments, ref.Offset+len(comments), min(total, ref.Offset+ref.Count)), nil
}

// newPage wraps comments and adds a placeholder for [next, end).
func newPage(postID string, comments []*domain.Comment, next, end int) *Page {
	page := &Page{Comments: comments}
	if len(comments) > 0 && next < end {
		page.More = []MoreRef{{PostID: postID, Offset: next, Count: end - next}}
	}
	return page
}
