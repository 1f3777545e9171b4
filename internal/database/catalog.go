package database

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lib/pq"

	"github.com/MasterGowen/open-discussions/internal/domain"
)

// Table names a catalog table that can be listed for a rebuild.
type Table string

// Catalog tables.
const (
	TableCourses   Table = "courses"
	TableBootcamps Table = "bootcamps"
	TablePrograms  Table = "programs"
	TableUserLists Table = "user_lists"
	TableVideos    Table = "videos"
)

// Owner kinds of runs, tags and list items.
const (
	ownerCourse   = "course"
	ownerBootcamp = "bootcamp"
	ownerProgram  = "program"
	ownerUserList = "userlist"
	ownerVideo    = "video"
)

const resourceColumns = `
	id, title,
	COALESCE(short_description, '') AS short_description,
	COALESCE(full_description, '') AS full_description,
	COALESCE(image_src, '') AS image_src,
	COALESCE(url, '') AS url,
	published, last_modified`

const runColumns = `
	id, run_id, platform,
	COALESCE(title, '') AS title,
	COALESCE(semester, '') AS semester,
	COALESCE(year, 0) AS year,
	COALESCE(level, '') AS level,
	COALESCE(availability, '') AS availability,
	COALESCE(language, '') AS language,
	start_date, end_date, published`

const contentFileColumns = `
	id, run_id, key,
	COALESCE(uid, '') AS uid,
	COALESCE(title, '') AS title,
	COALESCE(description, '') AS description,
	COALESCE(content, '') AS content,
	COALESCE(url, '') AS url,
	COALESCE(short_url, '') AS short_url,
	COALESCE(file_type, '') AS file_type,
	COALESCE(content_type, '') AS content_type,
	published`

// PublishedIDs returns up to limit ids of published rows of table greater
// than after, in order.
func (r *Repository) PublishedIDs(ctx context.Context, table Table, after int64, limit int) ([]int64, error) {
	switch table {
	case TableCourses, TableBootcamps, TablePrograms, TableUserLists, TableVideos:
	default:
		return nil, fmt.Errorf("unknown catalog table %q", table)
	}

	var ids []int64
	query := `SELECT id FROM ` + string(table) + ` WHERE published AND id > $1 ORDER BY id LIMIT $2`
	if err := r.db.SelectContext(ctx, &ids, query, after, limit); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return ids, nil
}

// Course loads a course with its tags and runs. Content files are loaded
// only when withFiles is set.
func (r *Repository) Course(ctx context.Context, id int64, withFiles bool) (*domain.Course, error) {
	query := `SELECT ` + resourceColumns + `, course_id, platform,
			COALESCE(program_type, '') AS program_type,
			COALESCE(program_name, '') AS program_name,
			featured
		FROM courses
		WHERE id = $1`

	var course domain.Course
	if err := r.get(ctx, &course, "course "+strconv.FormatInt(id, 10), query, id); err != nil {
		return nil, err
	}

	var err error
	if err = r.loadTags(ctx, ownerCourse, &course.Resource); err != nil {
		return nil, err
	}
	if course.Runs, err = r.runs(ctx, ownerCourse, id); err != nil {
		return nil, err
	}
	if withFiles {
		if err = r.loadContentFiles(ctx, course.Runs); err != nil {
			return nil, err
		}
	}
	return &course, nil
}

// Bootcamp loads a bootcamp with its tags and runs.
func (r *Repository) Bootcamp(ctx context.Context, id int64) (*domain.Bootcamp, error) {
	query := `SELECT ` + resourceColumns + `, course_id, COALESCE(location, '') AS location
		FROM bootcamps
		WHERE id = $1`

	var bootcamp domain.Bootcamp
	if err := r.get(ctx, &bootcamp, "bootcamp "+strconv.FormatInt(id, 10), query, id); err != nil {
		return nil, err
	}

	var err error
	if err = r.loadTags(ctx, ownerBootcamp, &bootcamp.Resource); err != nil {
		return nil, err
	}
	if bootcamp.Runs, err = r.runs(ctx, ownerBootcamp, id); err != nil {
		return nil, err
	}
	return &bootcamp, nil
}

// Program loads a program with its tags and items.
func (r *Repository) Program(ctx context.Context, id int64) (*domain.Program, error) {
	query := `SELECT ` + resourceColumns + `, program_id
		FROM programs
		WHERE id = $1`

	var program domain.Program
	if err := r.get(ctx, &program, "program "+strconv.FormatInt(id, 10), query, id); err != nil {
		return nil, err
	}

	var err error
	if err = r.loadTags(ctx, ownerProgram, &program.Resource); err != nil {
		return nil, err
	}
	if program.Items, err = r.listItems(ctx, ownerProgram, id); err != nil {
		return nil, err
	}
	return &program, nil
}

// UserList loads a user list with its tags and items.
func (r *Repository) UserList(ctx context.Context, id int64) (*domain.UserList, error) {
	query := `SELECT ` + resourceColumns + `, author, privacy_level, list_type
		FROM user_lists
		WHERE id = $1`

	var list domain.UserList
	if err := r.get(ctx, &list, "user list "+strconv.FormatInt(id, 10), query, id); err != nil {
		return nil, err
	}

	var err error
	if err = r.loadTags(ctx, ownerUserList, &list.Resource); err != nil {
		return nil, err
	}
	if list.Items, err = r.listItems(ctx, ownerUserList, id); err != nil {
		return nil, err
	}
	return &list, nil
}

// Video loads a video with its tags.
func (r *Repository) Video(ctx context.Context, id int64) (*domain.Video, error) {
	query := `SELECT ` + resourceColumns + `, video_id, platform,
			COALESCE(duration, '') AS duration,
			COALESCE(transcript, '') AS transcript
		FROM videos
		WHERE id = $1`

	var video domain.Video
	if err := r.get(ctx, &video, "video "+strconv.FormatInt(id, 10), query, id); err != nil {
		return nil, err
	}
	if err := r.loadTags(ctx, ownerVideo, &video.Resource); err != nil {
		return nil, err
	}
	return &video, nil
}

// ContentFile loads a content file with its run and owning course.
func (r *Repository) ContentFile(ctx context.Context, id int64) (*domain.ContentFile, error) {
	query := `SELECT ` + contentFileColumns + ` FROM content_files WHERE id = $1`

	var file domain.ContentFile
	if err := r.get(ctx, &file, "content file "+strconv.FormatInt(id, 10), query, id); err != nil {
		return nil, err
	}

	files, err := r.attachRun(ctx, file.RunID, []domain.ContentFile{file})
	if err != nil {
		return nil, err
	}
	return files[0], nil
}

// RunContentFiles loads every content file of a course run with the run
// and course attached.
func (r *Repository) RunContentFiles(ctx context.Context, runID int64) ([]*domain.ContentFile, error) {
	var files []domain.ContentFile
	query := `SELECT ` + contentFileColumns + ` FROM content_files WHERE run_id = $1 ORDER BY id`
	if err := r.db.SelectContext(ctx, &files, query, runID); err != nil {
		return nil, fmt.Errorf("load content files of run %d: %w", runID, err)
	}
	if len(files) == 0 {
		return nil, nil
	}
	return r.attachRun(ctx, runID, files)
}

func (r *Repository) attachRun(ctx context.Context, runID int64, files []domain.ContentFile) ([]*domain.ContentFile, error) {
	var owner struct {
		CourseID int64 `db:"object_id"`
	}
	err := r.get(ctx, &owner, "run "+strconv.FormatInt(runID, 10),
		`SELECT object_id FROM runs WHERE id = $1 AND object_type = $2`, runID, ownerCourse)
	if err != nil {
		return nil, err
	}

	course, err := r.Course(ctx, owner.CourseID, false)
	if err != nil {
		return nil, err
	}

	var run *domain.Run
	for i := range course.Runs {
		if course.Runs[i].ID == runID {
			run = &course.Runs[i]
		}
	}
	if run == nil {
		return nil, fmt.Errorf("run %d of course %d: %w", runID, course.ID, ErrNotFound)
	}

	out := make([]*domain.ContentFile, len(files))
	for i := range files {
		files[i].Course = course
		files[i].Run = run
		out[i] = &files[i]
	}
	return out, nil
}

func (r *Repository) loadTags(ctx context.Context, owner string, res *domain.Resource) error {
	var topics, offeredBy []string
	err := r.db.QueryRowxContext(ctx, `
		SELECT COALESCE(topics, '{}'), COALESCE(offered_by, '{}')
		FROM resource_tags
		WHERE object_type = $1 AND object_id = $2`, owner, res.ID).
		Scan(pq.Array(&topics), pq.Array(&offeredBy))
	if err != nil && !isNoRows(err) {
		return fmt.Errorf("load tags of %s %d: %w", owner, res.ID, err)
	}
	res.Topics = topics
	res.OfferedBy = offeredBy
	return nil
}

func (r *Repository) runs(ctx context.Context, owner string, ownerID int64) ([]domain.Run, error) {
	var runs []domain.Run
	query := `SELECT ` + runColumns + `
		FROM runs
		WHERE object_type = $1 AND object_id = $2
		ORDER BY id`
	if err := r.db.SelectContext(ctx, &runs, query, owner, ownerID); err != nil {
		return nil, fmt.Errorf("load runs of %s %d: %w", owner, ownerID, err)
	}
	if len(runs) == 0 {
		return runs, nil
	}

	ids := make([]int64, len(runs))
	byID := make(map[int64]*domain.Run, len(runs))
	for i := range runs {
		ids[i] = runs[i].ID
		byID[runs[i].ID] = &runs[i]
	}

	var prices []struct {
		RunID int64   `db:"run_id"`
		Price float64 `db:"price"`
		Mode  string  `db:"mode"`
	}
	if err := r.db.SelectContext(ctx, &prices,
		`SELECT run_id, price, mode FROM run_prices WHERE run_id = ANY($1) ORDER BY run_id, price`,
		pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load run prices: %w", err)
	}
	for _, p := range prices {
		run := byID[p.RunID]
		run.Prices = append(run.Prices, domain.Price{Price: p.Price, Mode: p.Mode})
	}

	var instructors []struct {
		RunID int64  `db:"run_id"`
		Name  string `db:"name"`
	}
	if err := r.db.SelectContext(ctx, &instructors,
		`SELECT run_id, name FROM run_instructors WHERE run_id = ANY($1) ORDER BY run_id, position`,
		pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load run instructors: %w", err)
	}
	for _, in := range instructors {
		run := byID[in.RunID]
		run.Instructors = append(run.Instructors, in.Name)
	}

	return runs, nil
}

func (r *Repository) loadContentFiles(ctx context.Context, runs []domain.Run) error {
	if len(runs) == 0 {
		return nil
	}

	ids := make([]int64, len(runs))
	byID := make(map[int64]*domain.Run, len(runs))
	for i := range runs {
		ids[i] = runs[i].ID
		byID[runs[i].ID] = &runs[i]
	}

	var files []domain.ContentFile
	query := `SELECT ` + contentFileColumns + ` FROM content_files WHERE run_id = ANY($1) ORDER BY id`
	if err := r.db.SelectContext(ctx, &files, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load content files: %w", err)
	}
	for _, f := range files {
		run := byID[f.RunID]
		run.ContentFiles = append(run.ContentFiles, f)
	}
	return nil
}

func (r *Repository) listItems(ctx context.Context, owner string, listID int64) ([]domain.ListItem, error) {
	var items []domain.ListItem
	err := r.db.SelectContext(ctx, &items, `
		SELECT object_type, object_id, position
		FROM list_items
		WHERE list_type = $1 AND list_id = $2
		ORDER BY position`, owner, listID)
	if err != nil {
		return nil, fmt.Errorf("load items of %s %d: %w", owner, listID, err)
	}
	return items, nil
}
