// Package catalog indexes course catalog records and wraps catalog ETL
// writes with post-commit indexing hooks.
package catalog

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

const defaultRetryOnConflict = 3

// Store loads catalog records.
type Store interface {
	Course(ctx context.Context, id int64, withFiles bool) (*domain.Course, error)
	Bootcamp(ctx context.Context, id int64) (*domain.Bootcamp, error)
	Program(ctx context.Context, id int64) (*domain.Program, error)
	UserList(ctx context.Context, id int64) (*domain.UserList, error)
	Video(ctx context.Context, id int64) (*domain.Video, error)
	ContentFile(ctx context.Context, id int64) (*domain.ContentFile, error)
	RunContentFiles(ctx context.Context, runID int64) ([]*domain.ContentFile, error)
}

// Writer is the part of the indexing API catalog records are written with.
type Writer interface {
	CreateDocument(ctx context.Context, docID string, objectType document.ObjectType,
		fields map[string]any, opts ...indexing.DocOption) error
	UpsertDocument(ctx context.Context, docID string, objectType document.ObjectType,
		fields map[string]any, opts ...indexing.DocOption) error
	DeleteDocument(ctx context.Context, docID string, objectType document.ObjectType,
		opts ...indexing.DocOption) error
}

// Indexer loads catalog records by id and writes their documents.
type Indexer struct {
	store           Store
	writer          Writer
	retryOnConflict int
	log             logger.Logger
}

// NewIndexer creates an Indexer. retryOnConflict <= 0 uses the default.
func NewIndexer(store Store, writer Writer, retryOnConflict int, log logger.Logger) *Indexer {
	if retryOnConflict <= 0 {
		retryOnConflict = defaultRetryOnConflict
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Indexer{store: store, writer: writer, retryOnConflict: retryOnConflict, log: log}
}

// UpsertCourse indexes a course.
func (i *Indexer) UpsertCourse(ctx context.Context, id int64) error {
	course, err := i.store.Course(ctx, id, false)
	if err != nil {
		return loadError(err)
	}
	doc, err := document.SerializeCourse(course)
	if err != nil {
		return fmt.Errorf("%w: %w", tasks.ErrPermanent, err)
	}
	return i.upsert(ctx, doc)
}

// UpsertProgram indexes a program.
func (i *Indexer) UpsertProgram(ctx context.Context, id int64) error {
	program, err := i.store.Program(ctx, id)
	if err != nil {
		return loadError(err)
	}
	doc, err := document.SerializeProgram(program)
	if err != nil {
		return fmt.Errorf("%w: %w", tasks.ErrPermanent, err)
	}
	return i.upsert(ctx, doc)
}

// UpsertVideo indexes a video.
func (i *Indexer) UpsertVideo(ctx context.Context, id int64) error {
	video, err := i.store.Video(ctx, id)
	if err != nil {
		return loadError(err)
	}
	doc, err := document.SerializeVideo(video)
	if err != nil {
		return fmt.Errorf("%w: %w", tasks.ErrPermanent, err)
	}
	return i.upsert(ctx, doc)
}

// UpsertUserList indexes a user list or learning path.
func (i *Indexer) UpsertUserList(ctx context.Context, id int64) error {
	list, err := i.store.UserList(ctx, id)
	if err != nil {
		return loadError(err)
	}
	doc, err := document.SerializeUserList(list)
	if err != nil {
		return fmt.Errorf("%w: %w", tasks.ErrPermanent, err)
	}
	return i.upsert(ctx, doc)
}

// UpsertBootcamp indexes a bootcamp.
func (i *Indexer) UpsertBootcamp(ctx context.Context, id int64) error {
	bootcamp, err := i.store.Bootcamp(ctx, id)
	if err != nil {
		return loadError(err)
	}
	doc, err := document.SerializeBootcamp(bootcamp)
	if err != nil {
		return fmt.Errorf("%w: %w", tasks.ErrPermanent, err)
	}
	return i.upsert(ctx, doc)
}

// UpsertContentFile indexes a content file on its course's shard.
func (i *Indexer) UpsertContentFile(ctx context.Context, id int64) error {
	file, err := i.store.ContentFile(ctx, id)
	if err != nil {
		return loadError(err)
	}
	doc, err := document.SerializeContentFile(file)
	if err != nil {
		return fmt.Errorf("%w: %w", tasks.ErrPermanent, err)
	}
	return i.upsert(ctx, doc)
}

// IndexNewBootcamp creates the document of a new bootcamp. A document
// that already exists counts as indexed.
func (i *Indexer) IndexNewBootcamp(ctx context.Context, id int64) error {
	bootcamp, err := i.store.Bootcamp(ctx, id)
	if err != nil {
		return loadError(err)
	}

	doc, err := document.SerializeBootcamp(bootcamp)
	if err != nil {
		return fmt.Errorf("%w: %w", tasks.ErrPermanent, err)
	}
	fields, err := document.Fields(doc)
	if err != nil {
		return err
	}

	err = i.writer.CreateDocument(ctx, doc.ID(), doc.ObjectType(), fields)
	if indexing.IsConflict(err) {
		i.log.Info("Bootcamp already indexed", logger.String("doc_id", doc.ID()))
		return nil
	}
	return err
}

// IndexRunContentFiles indexes every content file of a course run.
// Malformed files are skipped.
func (i *Indexer) IndexRunContentFiles(ctx context.Context, runID int64) error {
	files, err := i.store.RunContentFiles(ctx, runID)
	if err != nil {
		return loadError(err)
	}

	indexed := 0
	for _, file := range files {
		doc, serErr := document.SerializeContentFile(file)
		if serErr != nil {
			i.log.Error("Skipping malformed content file",
				logger.Int64("run_id", runID),
				logger.Error(serErr),
			)
			continue
		}
		if err = i.upsert(ctx, doc); err != nil {
			return err
		}
		indexed++
	}

	i.log.Info("Indexed run content files",
		logger.Int64("run_id", runID),
		logger.Int("files", indexed),
	)
	return nil
}

// DeleteRunContentFiles removes every content file of a course run.
func (i *Indexer) DeleteRunContentFiles(ctx context.Context, runID int64) error {
	files, err := i.store.RunContentFiles(ctx, runID)
	if err != nil {
		return loadError(err)
	}

	deleted := 0
	for _, file := range files {
		if file.Course == nil {
			i.log.Error("Skipping content file without course",
				logger.Int64("run_id", runID),
				logger.Int64("id", file.ID),
			)
			continue
		}
		routing := document.CourseID(file.Course.Platform, file.Course.CourseID)
		err = i.writer.DeleteDocument(ctx, document.ContentFileID(file.Key), document.TypeResourceFile,
			indexing.WithRouting(routing))
		if err != nil {
			return err
		}
		deleted++
	}

	i.log.Info("Deleted run content files",
		logger.Int64("run_id", runID),
		logger.Int("files", deleted),
	)
	return nil
}

func (i *Indexer) upsert(ctx context.Context, doc document.Document) error {
	fields, err := document.Fields(doc)
	if err != nil {
		return err
	}

	opts := []indexing.DocOption{indexing.WithRetryOnConflict(i.retryOnConflict)}
	if routing := doc.Routing(); routing != "" {
		opts = append(opts, indexing.WithRouting(routing))
	}
	return i.writer.UpsertDocument(ctx, doc.ID(), doc.ObjectType(), fields, opts...)
}

// loadError marks a record that no longer exists as permanently failed.
func loadError(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("%w: %w", tasks.ErrPermanent, err)
	}
	return err
}
