package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/database"
	"github.com/MasterGowen/open-discussions/internal/document"
	"github.com/MasterGowen/open-discussions/internal/indexing"
)

const defaultBatchSize = 100

// Lister lists published record ids of a catalog table.
type Lister interface {
	PublishedIDs(ctx context.Context, table database.Table, after int64, limit int) ([]int64, error)
}

// SourceStore lists and loads catalog records.
type SourceStore interface {
	Store
	Lister
}

type loadFunc func(ctx context.Context, id int64) ([]document.Document, error)

// recordSource feeds the published records of one table to a rebuild.
type recordSource struct {
	name  string
	table database.Table
	ids   Lister
	load  loadFunc
	batch int
	log   logger.Logger
}

// Sources returns a rebuild source per catalog table. Courses are loaded
// with their content files.
func Sources(store SourceStore, batch int, log logger.Logger) []indexing.RebuildSource {
	if batch <= 0 {
		batch = defaultBatchSize
	}
	if log == nil {
		log = logger.NewNop()
	}

	newSource := func(name string, table database.Table, load loadFunc) indexing.RebuildSource {
		return &recordSource{name: name, table: table, ids: store, load: load, batch: batch, log: log}
	}

	return []indexing.RebuildSource{
		newSource("courses", database.TableCourses, func(ctx context.Context, id int64) ([]document.Document, error) {
			course, err := store.Course(ctx, id, true)
			if err != nil {
				return nil, err
			}
			doc, err := document.SerializeCourse(course)
			if err != nil {
				return nil, err
			}

			docs := []document.Document{doc}
			for r := range course.Runs {
				run := &course.Runs[r]
				for f := range run.ContentFiles {
					file := &run.ContentFiles[f]
					file.Course, file.Run = course, run
					fileDoc, fileErr := document.SerializeContentFile(file)
					if fileErr != nil {
						log.Error("Skipping malformed content file", logger.Int64("id", file.ID), logger.Error(fileErr))
						continue
					}
					docs = append(docs, fileDoc)
				}
			}
			return docs, nil
		}),
		newSource("bootcamps", database.TableBootcamps, func(ctx context.Context, id int64) ([]document.Document, error) {
			bootcamp, err := store.Bootcamp(ctx, id)
			if err != nil {
				return nil, err
			}
			doc, err := document.SerializeBootcamp(bootcamp)
			if err != nil {
				return nil, err
			}
			return []document.Document{doc}, nil
		}),
		newSource("programs", database.TablePrograms, func(ctx context.Context, id int64) ([]document.Document, error) {
			program, err := store.Program(ctx, id)
			if err != nil {
				return nil, err
			}
			doc, err := document.SerializeProgram(program)
			if err != nil {
				return nil, err
			}
			return []document.Document{doc}, nil
		}),
		newSource("user_lists", database.TableUserLists, func(ctx context.Context, id int64) ([]document.Document, error) {
			list, err := store.UserList(ctx, id)
			if err != nil {
				return nil, err
			}
			doc, err := document.SerializeUserList(list)
			if err != nil {
				return nil, err
			}
			return []document.Document{doc}, nil
		}),
		newSource("videos", database.TableVideos, func(ctx context.Context, id int64) ([]document.Document, error) {
			video, err := store.Video(ctx, id)
			if err != nil {
				return nil, err
			}
			doc, err := document.SerializeVideo(video)
			if err != nil {
				return nil, err
			}
			return []document.Document{doc}, nil
		}),
	}
}

// Name implements indexing.RebuildSource.
func (s *recordSource) Name() string { return s.name }

// Each implements indexing.RebuildSource. Records that vanish or cannot be
// serialized are skipped.
func (s *recordSource) Each(ctx context.Context, fn func([]document.Document) error) error {
	var after int64
	for {
		ids, err := s.ids.PublishedIDs(ctx, s.table, after, s.batch)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		var docs []document.Document
		for _, id := range ids {
			loaded, loadErr := s.load(ctx, id)
			switch {
			case errors.Is(loadErr, database.ErrNotFound):
				continue
			case errors.Is(loadErr, document.ErrMalformed):
				s.log.Error("Skipping malformed record",
					logger.String("source", s.name),
					logger.Int64("id", id),
					logger.Error(loadErr),
				)
				continue
			case loadErr != nil:
				return fmt.Errorf("load %s %d: %w", s.name, id, loadErr)
			}
			docs = append(docs, loaded...)
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
