package taskhelpers

import (
	"context"

	"github.com/MasterGowen/open-discussions/internal/document"
	"github.com/MasterGowen/open-discussions/internal/domain"
	"github.com/MasterGowen/open-discussions/internal/tasks"
)

// UpsertCourse reindexes a course.
func (h *Helpers) UpsertCourse(ctx context.Context, id int64) error {
	return h.record(ctx, tasks.NameUpsertCourse, id)
}

// UpsertProgram reindexes a program.
func (h *Helpers) UpsertProgram(ctx context.Context, id int64) error {
	return h.record(ctx, tasks.NameUpsertProgram, id)
}

// UpsertVideo reindexes a video.
func (h *Helpers) UpsertVideo(ctx context.Context, id int64) error {
	return h.record(ctx, tasks.NameUpsertVideo, id)
}

// UpsertUserList reindexes a user list or learning path.
func (h *Helpers) UpsertUserList(ctx context.Context, id int64) error {
	return h.record(ctx, tasks.NameUpsertUserList, id)
}

// UpsertContentFile reindexes a content file.
func (h *Helpers) UpsertContentFile(ctx context.Context, id int64) error {
	return h.record(ctx, tasks.NameUpsertContentFile, id)
}

// UpsertBootcamp reindexes a bootcamp.
func (h *Helpers) UpsertBootcamp(ctx context.Context, id int64) error {
	return h.record(ctx, tasks.NameUpsertBootcamp, id)
}

// IndexNewBootcamp indexes a newly created bootcamp.
func (h *Helpers) IndexNewBootcamp(ctx context.Context, id int64) error {
	return h.record(ctx, tasks.NameIndexNewBootcamp, id)
}

// IndexRunContentFiles indexes every content file of a run.
func (h *Helpers) IndexRunContentFiles(ctx context.Context, runID int64) error {
	return h.record(ctx, tasks.NameIndexRunContentFiles, runID)
}

// DeleteRunContentFiles removes every content file of a run.
func (h *Helpers) DeleteRunContentFiles(ctx context.Context, runID int64) error {
	return h.record(ctx, tasks.NameDeleteRunContentFiles, runID)
}

// DeleteCourse removes a course and every content file of its runs. Content
// files live on the course's shard, so their deletes are routed to the
// course document id.
func (h *Helpers) DeleteCourse(ctx context.Context, course *domain.Course) error {
	courseDocID := document.CourseID(course.Platform, course.CourseID)
	if err := h.deleteDocument(ctx, courseDocID, document.TypeCourse, ""); err != nil {
		return err
	}

	for _, run := range course.Runs {
		for _, file := range run.ContentFiles {
			if err := h.deleteDocument(ctx, document.ContentFileID(file.Key), document.TypeCourse, courseDocID); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteContentFile removes one content file.
func (h *Helpers) DeleteContentFile(ctx context.Context, file *domain.ContentFile, course *domain.Course) error {
	return h.deleteDocument(ctx, document.ContentFileID(file.Key), document.TypeResourceFile,
		document.CourseID(course.Platform, course.CourseID))
}

// DeleteBootcamp removes a bootcamp.
func (h *Helpers) DeleteBootcamp(ctx context.Context, bootcamp *domain.Bootcamp) error {
	return h.deleteDocument(ctx, document.BootcampID(bootcamp.CourseID), document.TypeBootcamp, "")
}

// DeleteProgram removes a program.
func (h *Helpers) DeleteProgram(ctx context.Context, program *domain.Program) error {
	return h.deleteDocument(ctx, document.ProgramID(program.ID), document.TypeProgram, "")
}

// DeleteUserList removes a user list or learning path.
func (h *Helpers) DeleteUserList(ctx context.Context, list *domain.UserList) error {
	objectType := document.TypeUserList
	if list.ListType == domain.ListTypeLearningPath {
		objectType = document.TypeLearningPath
	}
	return h.deleteDocument(ctx, document.UserListID(list.ID), objectType, "")
}

// DeleteVideo removes a video.
func (h *Helpers) DeleteVideo(ctx context.Context, video *domain.Video) error {
	return h.deleteDocument(ctx, document.VideoID(video.Platform, video.VideoID), document.TypeVideo, "")
}
