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
	"github.com/MasterGowen/open-discussions/internal/tasks"
)

// ProfileStore loads profiles.
type ProfileStore interface {
	Profile(ctx context.Context, username string) (*domain.Profile, error)
}

// Upserter writes whole documents.
type Upserter interface {
	UpsertDocument(ctx context.Context, docID string, objectType document.ObjectType,
		fields map[string]any, opts ...indexing.DocOption) error
}

// ProfileIndexer indexes user profiles.
type ProfileIndexer struct {
	store   ProfileStore
	indexer Upserter
	log     logger.Logger
}

// NewProfileIndexer creates a ProfileIndexer.
func NewProfileIndexer(store ProfileStore, indexer Upserter, log logger.Logger) *ProfileIndexer {
	if log == nil {
		log = logger.NewNop()
	}
	return &ProfileIndexer{store: store, indexer: indexer, log: log}
}

// UpsertProfile loads, serializes and upserts a profile. A profile that no
// longer exists or cannot be serialized fails permanently.
func (p *ProfileIndexer) UpsertProfile(ctx context.Context, username string) error {
	profile, err := p.store.Profile(ctx, username)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("%w: %w", tasks.ErrPermanent, err)
	}
	if err != nil {
		return err
	}

	doc, err := document.SerializeProfile(profile)
	if err != nil {
		return fmt.Errorf("%w: %w", tasks.ErrPermanent, err)
	}
	fields, err := document.Fields(doc)
	if err != nil {
		return err
	}

	if err = p.indexer.UpsertDocument(ctx, doc.ID(), doc.ObjectType(), fields); err != nil {
		return err
	}
	p.log.Debug("Profile indexed", logger.String("username", username))
	return nil
}
