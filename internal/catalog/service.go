package catalog

import (
	"context"

	"github.com/MasterGowen/open-discussions/internal/domain"
	"github.com/MasterGowen/open-discussions/internal/hooks"
	"github.com/MasterGowen/open-discussions/internal/taskhelpers"
)

// Backend persists catalog records produced by the ETL pipelines.
type Backend interface {
	SaveCourse(ctx context.Context, course *domain.Course) (*domain.Course, error)
	SaveBootcamp(ctx context.Context, bootcamp *domain.Bootcamp) (*domain.Bootcamp, error)
	SaveProgram(ctx context.Context, program *domain.Program) (*domain.Program, error)
	SaveUserList(ctx context.Context, list *domain.UserList) (*domain.UserList, error)
	DeleteUserList(ctx context.Context, id int64) (*domain.UserList, error)
	SaveVideo(ctx context.Context, video *domain.Video) (*domain.Video, error)
	SaveRunContentFiles(ctx context.Context, runID int64, files []domain.ContentFile) (*domain.Run, error)
}

// Service saves catalog records and keeps their documents in step:
// published records are upserted and unpublished ones deleted.
type Service struct {
	backend Backend
	helpers *taskhelpers.Helpers
	runner  *hooks.Runner
}

// NewService creates a Service.
func NewService(backend Backend, helpers *taskhelpers.Helpers, runner *hooks.Runner) *Service {
	return &Service{backend: backend, helpers: helpers, runner: runner}
}

// SaveCourse saves a course. Unpublishing a course also removes its
// content files.
func (s *Service) SaveCourse(ctx context.Context, course *domain.Course) (*domain.Course, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.Course, error) { return s.backend.SaveCourse(ctx, course) },
		hooks.Hook[*domain.Course]{Name: "index_course", Run: func(ctx context.Context, c *domain.Course) error {
			if c.Published {
				return s.helpers.UpsertCourse(ctx, c.ID)
			}
			return s.helpers.DeleteCourse(ctx, c)
		}},
	)
}

// CreateBootcamp saves a new bootcamp and creates its document.
func (s *Service) CreateBootcamp(ctx context.Context, bootcamp *domain.Bootcamp) (*domain.Bootcamp, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.Bootcamp, error) { return s.backend.SaveBootcamp(ctx, bootcamp) },
		hooks.Hook[*domain.Bootcamp]{Name: "index_new_bootcamp", Run: func(ctx context.Context, b *domain.Bootcamp) error {
			if !b.Published {
				return nil
			}
			return s.helpers.IndexNewBootcamp(ctx, b.ID)
		}},
	)
}

// SaveBootcamp saves an existing bootcamp.
func (s *Service) SaveBootcamp(ctx context.Context, bootcamp *domain.Bootcamp) (*domain.Bootcamp, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.Bootcamp, error) { return s.backend.SaveBootcamp(ctx, bootcamp) },
		hooks.Hook[*domain.Bootcamp]{Name: "index_bootcamp", Run: func(ctx context.Context, b *domain.Bootcamp) error {
			if b.Published {
				return s.helpers.UpsertBootcamp(ctx, b.ID)
			}
			return s.helpers.DeleteBootcamp(ctx, b)
		}},
	)
}

// SaveProgram saves a program.
func (s *Service) SaveProgram(ctx context.Context, program *domain.Program) (*domain.Program, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.Program, error) { return s.backend.SaveProgram(ctx, program) },
		hooks.Hook[*domain.Program]{Name: "index_program", Run: func(ctx context.Context, p *domain.Program) error {
			if p.Published {
				return s.helpers.UpsertProgram(ctx, p.ID)
			}
			return s.helpers.DeleteProgram(ctx, p)
		}},
	)
}

// SaveUserList saves a user list. Private lists are not searchable.
func (s *Service) SaveUserList(ctx context.Context, list *domain.UserList) (*domain.UserList, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.UserList, error) { return s.backend.SaveUserList(ctx, list) },
		hooks.Hook[*domain.UserList]{Name: "index_user_list", Run: func(ctx context.Context, l *domain.UserList) error {
			if l.Published && l.PrivacyLevel != domain.PrivacyPrivate {
				return s.helpers.UpsertUserList(ctx, l.ID)
			}
			return s.helpers.DeleteUserList(ctx, l)
		}},
	)
}

// DeleteUserList deletes a user list.
func (s *Service) DeleteUserList(ctx context.Context, id int64) (*domain.UserList, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.UserList, error) { return s.backend.DeleteUserList(ctx, id) },
		hooks.Hook[*domain.UserList]{Name: "delete_user_list", Run: s.helpers.DeleteUserList},
	)
}

// SaveVideo saves a video.
func (s *Service) SaveVideo(ctx context.Context, video *domain.Video) (*domain.Video, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.Video, error) { return s.backend.SaveVideo(ctx, video) },
		hooks.Hook[*domain.Video]{Name: "index_video", Run: func(ctx context.Context, v *domain.Video) error {
			if v.Published {
				return s.helpers.UpsertVideo(ctx, v.ID)
			}
			return s.helpers.DeleteVideo(ctx, v)
		}},
	)
}

// SaveRunContentFiles saves the files extracted from a course run and
// indexes them, or removes them when the run is unpublished.
func (s *Service) SaveRunContentFiles(ctx context.Context, runID int64, files []domain.ContentFile) (*domain.Run, error) {
	return hooks.Persist(ctx, s.runner,
		func(ctx context.Context) (*domain.Run, error) { return s.backend.SaveRunContentFiles(ctx, runID, files) },
		hooks.Hook[*domain.Run]{Name: "index_run_content_files", Run: func(ctx context.Context, r *domain.Run) error {
			if r.Published {
				return s.helpers.IndexRunContentFiles(ctx, r.ID)
			}
			return s.helpers.DeleteRunContentFiles(ctx, r.ID)
		}},
	)
}
