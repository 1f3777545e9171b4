package catalog_test

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/MasterGowen/open-discussions/internal/database"
	"github.com/MasterGowen/open-discussions/internal/document"
	"github.com/MasterGowen/open-discussions/internal/domain"
	"github.com/MasterGowen/open-discussions/internal/indexing"
)

func notFound(what string, id int64) error {
	return fmt.Errorf("%s %d: %w", what, id, database.ErrNotFound)
}

// memoryStore serves catalog records from maps.
type memoryStore struct {
	courses   map[int64]*domain.Course
	bootcamps map[int64]*domain.Bootcamp
	programs  map[int64]*domain.Program
	lists     map[int64]*domain.UserList
	videos    map[int64]*domain.Video
	files     map[int64][]*domain.ContentFile
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		courses:   map[int64]*domain.Course{},
		bootcamps: map[int64]*domain.Bootcamp{},
		programs:  map[int64]*domain.Program{},
		lists:     map[int64]*domain.UserList{},
		videos:    map[int64]*domain.Video{},
		files:     map[int64][]*domain.ContentFile{},
	}
}

func get[T any](m map[int64]*T, what string, id int64) (*T, error) {
	v, ok := m[id]
	if !ok {
		return nil, notFound(what, id)
	}
	return v, nil
}

func (s *memoryStore) Course(_ context.Context, id int64, _ bool) (*domain.Course, error) {
	return get(s.courses, "course", id)
}

func (s *memoryStore) Bootcamp(_ context.Context, id int64) (*domain.Bootcamp, error) {
	return get(s.bootcamps, "bootcamp", id)
}

func (s *memoryStore) Program(_ context.Context, id int64) (*domain.Program, error) {
	return get(s.programs, "program", id)
}

func (s *memoryStore) UserList(_ context.Context, id int64) (*domain.UserList, error) {
	return get(s.lists, "user list", id)
}

func (s *memoryStore) Video(_ context.Context, id int64) (*domain.Video, error) {
	return get(s.videos, "video", id)
}

func (s *memoryStore) ContentFile(_ context.Context, id int64) (*domain.ContentFile, error) {
	for _, files := range s.files {
		for _, f := range files {
			if f.ID == id {
				return f, nil
			}
		}
	}
	return nil, notFound("content file", id)
}

func (s *memoryStore) RunContentFiles(_ context.Context, runID int64) ([]*domain.ContentFile, error) {
	return s.files[runID], nil
}

func (s *memoryStore) PublishedIDs(_ context.Context, table database.Table, after int64, limit int) ([]int64, error) {
	var ids []int64
	switch table {
	case database.TableCourses:
		ids = slices.Collect(maps.Keys(s.courses))
	case database.TableBootcamps:
		ids = slices.Collect(maps.Keys(s.bootcamps))
	case database.TablePrograms:
		ids = slices.Collect(maps.Keys(s.programs))
	case database.TableUserLists:
		ids = slices.Collect(maps.Keys(s.lists))
	case database.TableVideos:
		ids = slices.Collect(maps.Keys(s.videos))
	}
	slices.Sort(ids)

	var out []int64
	for _, id := range ids {
		if id > after && len(out) < limit {
			out = append(out, id)
		}
	}
	return out, nil
}

type write struct {
	op         string
	docID      string
	objectType document.ObjectType
	fields     map[string]any
	routing    string
}

// recordingWriter records every write. createErr is returned by creates.
type recordingWriter struct {
	writes    []write
	createErr error
}

func (w *recordingWriter) CreateDocument(
	_ context.Context, docID string, objectType document.ObjectType, fields map[string]any, opts ...indexing.DocOption,
) error {
	w.writes = append(w.writes, write{"create", docID, objectType, fields, indexing.RoutingOf(opts...)})
	return w.createErr
}

func (w *recordingWriter) UpsertDocument(
	_ context.Context, docID string, objectType document.ObjectType, fields map[string]any, opts ...indexing.DocOption,
) error {
	w.writes = append(w.writes, write{"upsert", docID, objectType, fields, indexing.RoutingOf(opts...)})
	return nil
}

func (w *recordingWriter) DeleteDocument(
	_ context.Context, docID string, objectType document.ObjectType, opts ...indexing.DocOption,
) error {
	w.writes = append(w.writes, write{"delete", docID, objectType, nil, indexing.RoutingOf(opts...)})
	return nil
}

func testCourse() *domain.Course {
	run := domain.Run{ID: 11, RunID: "fall-2026", Title: "Fall", Published: true}
	return &domain.Course{
		Resource: domain.Resource{ID: 5, Title: "Intro to CS", Published: true},
		CourseID: "6.001",
		Platform: domain.PlatformOCW,
		Runs:     []domain.Run{run},
	}
}

func testFiles(course *domain.Course) []*domain.ContentFile {
	run := &course.Runs[0]
	return []*domain.ContentFile{
		{ID: 1, RunID: run.ID, Key: "courses/6.001/lecture1.pdf", Title: "Lecture 1", Course: course, Run: run},
		{ID: 2, RunID: run.ID, Key: "courses/6.001/lecture2.pdf", Title: "Lecture 2", Course: course, Run: run},
	}
}
