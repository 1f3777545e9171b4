package forum

import (
	"context"
	"fmt"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/domain"
)

// DefaultExpansionLimit caps the placeholders expanded for one post.
const DefaultExpansionLimit = 32

// Tree is a flattened comment tree.
type Tree struct {
	Comments []*domain.Comment
	// Expanded is the number of placeholders that were loaded.
	Expanded int
	// Truncated is set when placeholders were left unexpanded.
	Truncated bool
}

// FlattenComments loads every comment of a post, expanding at most limit
// "more comments" placeholders breadth first. Comments are returned once
// each, in load order. limit <= 0 uses DefaultExpansionLimit.
func FlattenComments(ctx context.Context, src Source, postID string, limit int) (*Tree, error) {
	if limit <= 0 {
		limit = DefaultExpansionLimit
	}

	page, err := src.TopLevelComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("load comments of %s: %w", postID, err)
	}

	tree := &Tree{}
	seen := make(map[string]struct{})
	tree.add(seen, page.Comments)

	pending := append([]MoreRef(nil), page.More...)
	for len(pending) > 0 {
		if tree.Expanded >= limit {
			tree.Truncated = true
			break
		}
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		ref := pending[0]
		pending = pending[1:]

		more, expandErr := src.ExpandMore(ctx, ref)
		if expandErr != nil {
			return nil, fmt.Errorf("expand comments of %s at %d: %w", postID, ref.Offset, expandErr)
		}
		tree.Expanded++
		tree.add(seen, more.Comments)
		pending = append(pending, more.More...)
	}

	return tree, nil
}

func (t *Tree) add(seen map[string]struct{}, comments []*domain.Comment) {
	for _, c := range comments {
		if c == nil {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		t.Comments = append(t.Comments, c)
	}
}

// Loader loads posts with their flattened comment trees.
type Loader struct {
	src   Source
	limit int
	log   logger.Logger
}

// NewLoader creates a Loader expanding at most limit placeholders per post.
func NewLoader(src Source, limit int, log logger.Logger) *Loader {
	if log == nil {
		log = logger.NewNop()
	}
	return &Loader{src: src, limit: limit, log: log}
}

// PostWithComments loads a post and its comments. Each comment points back
// at the post.
func (l *Loader) PostWithComments(ctx context.Context, postID string) (*domain.Post, []*domain.Comment, error) {
	post, err := l.src.GetPost(ctx, postID)
	if err != nil {
		return nil, nil, err
	}

	tree, err := FlattenComments(ctx, l.src, postID, l.limit)
	if err != nil {
		return nil, nil, err
	}
	if tree.Truncated {
		l.log.Warn("Comment tree truncated at expansion limit",
			logger.String("post_id", postID),
			logger.Int("expanded", tree.Expanded),
			logger.Int("comments", len(tree.Comments)),
		)
	}

	for _, c := range tree.Comments {
		c.Post = post
	}
	return post, tree.Comments, nil
}
