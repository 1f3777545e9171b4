package forum

import (
	"context"
	"errors"
	"fmt"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/database"
	"github.com/MasterGowen/open-discussions/internal/document"
	"github.com/MasterGowen/open-discussions/internal/domain"
	"github.com/MasterGowen/open-discussions/internal/indexing"
)

const defaultBatchSize = 100

// PostLister lists post ids in ascending order.
type PostLister interface {
	PostIDs(ctx context.Context, after string, limit int) ([]string, error)
}

// ProfileLister lists and loads profiles.
type ProfileLister interface {
	ProfileStore
	Usernames(ctx context.Context, after string, limit int) ([]string, error)
}

// PostSource feeds every post and its comments to a rebuild.
type PostSource struct {
	ids    PostLister
	loader indexing.PostTreeLoader
	batch  int
	log    logger.Logger
}

// NewPostSource creates a PostSource reading batch posts at a time.
func NewPostSource(ids PostLister, loader indexing.PostTreeLoader, batch int, log logger.Logger) *PostSource {
	if batch <= 0 {
		batch = defaultBatchSize
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &PostSource{ids: ids, loader: loader, batch: batch, log: log}
}

// Name implements indexing.RebuildSource.
func (s *PostSource) Name() string { return "posts" }

// Each implements indexing.RebuildSource. Posts deleted while the rebuild
// runs are skipped.
func (s *PostSource) Each(ctx context.Context, fn func([]document.Document) error) error {
	after := ""
	for {
		ids, err := s.ids.PostIDs(ctx, after, s.batch)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		var docs []document.Document
		for _, id := range ids {
			post, comments, loadErr := s.loader.PostWithComments(ctx, id)
			if errors.Is(loadErr, database.ErrNotFound) {
				s.log.Warn("Post vanished during rebuild", logger.String("post_id", id))
				continue
			}
			if loadErr != nil {
				return fmt.Errorf("load post %s: %w", id, loadErr)
			}
			docs = append(docs, serializeTree(post, comments, s.log)...)
		}

		if err = fn(docs); err != nil {
			return err
		}
		if len(ids) < s.batch {
			return nil
		}
		after = ids[len(ids)-1]
	}
}

// ProfileSource feeds every profile to a rebuild.
type ProfileSource struct {
	store ProfileLister
	batch int
	log   logger.Logger
}

// NewProfileSource creates a ProfileSource reading batch profiles at a time.
func NewProfileSource(store ProfileLister, batch int, log logger.Logger) *ProfileSource {
	if batch <= 0 {
		batch = defaultBatchSize
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ProfileSource{store: store, batch: batch, log: log}
}

// Name implements indexing.RebuildSource.
func (s *ProfileSource) Name() string { return "profiles" }

// Each implements indexing.RebuildSource.
func (s *ProfileSource) Each(ctx context.Context, fn func([]document.Document) error) error {
	after := ""
	for {
		names, err := s.store.Usernames(ctx, after, s.batch)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return nil
		}

		docs := make([]document.Document, 0, len(names))
		for _, name := range names {
			profile, loadErr := s.store.Profile(ctx, name)
			if errors.Is(loadErr, database.ErrNotFound) {
				continue
			}
			if loadErr != nil {
				return fmt.Errorf("load profile %s: %w", name, loadErr)
			}

			doc, serErr := document.SerializeProfile(profile)
			if serErr != nil {
				s.log.Error("Skipping malformed profile", logger.String("username", name), logger.Error(serErr))
				continue
			}
			docs = append(docs, doc)
		}

		if err = fn(docs); err != nil {
			return err
		}
		if len(names) < s.batch {
			return nil
		}
		after = names[len(names)-1]
	}
}

func serializeTree(post *domain.Post, comments []*domain.Comment, log logger.Logger) []document.Document {
	postDoc, err := document.SerializePost(post)
	if err != nil {
		log.Error("Skipping malformed post", logger.Error(err))
		return nil
	}

	docs := make([]document.Document, 0, len(comments)+1)
	docs = append(docs, postDoc)
	for _, c := range comments {
		doc, serErr := document.SerializeCommentOf(post, c)
		if serErr != nil {
			log.Error("Skipping malformed comment", logger.String("post_id", post.ID), logger.Error(serErr))
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}
