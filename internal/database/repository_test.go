package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MasterGowen/open-discussions/internal/database"
	"github.com/MasterGowen/open-discussions/internal/domain"
)

var (
	postColumns = []string{
		"post_id", "title", "slug", "post_kind", "text", "article_html", "url", "thumbnail_url",
		"score", "num_comments", "deleted", "created_on",
		"author_username", "author_name", "author_headline", "author_avatar_small",
		"banned_by", "approved_by",
		"channel.name", "channel.title", "channel.channel_type",
	}
	commentColumns = []string{
		"comment_id", "post_id", "parent_id", "text", "score", "deleted", "created_on",
		"author_username", "author_name", "author_headline", "author_avatar_small",
		"banned_by", "approved_by",
	}
	resourceColumns = []string{
		"id", "title", "short_description", "full_description", "image_src", "url", "published", "last_modified",
	}
	runColumns = []string{
		"id", "run_id", "platform", "title", "semester", "year", "level", "availability", "language",
		"start_date", "end_date", "published",
	}
)

func newRepo(t *testing.T) (*database.Repository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = mockDB.Close()
	})

	return database.NewRepository(sqlx.NewDb(mockDB, "postgres")), mock
}

func TestRepository_Post(t *testing.T) {
	t.Parallel()

	repo, mock := newRepo(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .+ FROM posts p JOIN channels c .+ WHERE p.post_id = \\$1").
		WithArgs("7").
		WillReturnRows(sqlmock.NewRows(postColumns).AddRow(
			"7", "Entropy", "entropy", "self", "why", "", "", "",
			3, 2, false, created,
			"alice", "Alice", "Physicist", "a.png",
			"mod", "",
			"physics", "Physics", "public",
		))

	post, err := repo.Post(context.Background(), "7")
	require.NoError(t, err)

	assert.Equal(t, "Entropy", post.Title)
	assert.Equal(t, 2, post.NumComments)
	assert.Equal(t, "alice", post.Author.Username)
	assert.Equal(t, domain.Channel{Name: "physics", Title: "Physics", Type: "public"}, post.Channel)
	assert.True(t, post.IsRemoved())
	assert.Equal(t, created, post.Created)
}

func TestRepository_PostNotFound(t *testing.T) {
	t.Parallel()

	repo, mock := newRepo(t)
	mock.ExpectQuery("FROM posts").WithArgs("404").WillReturnRows(sqlmock.NewRows(postColumns))

	_, err := repo.Post(context.Background(), "404")
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestRepository_CommentPage(t *testing.T) {
	t.Parallel()

	repo, mock := newRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM comments WHERE post_id = \\$1").
		WithArgs("7").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery("SELECT .+ FROM comments WHERE post_id = \\$1 ORDER BY created_on, comment_id LIMIT \\$2 OFFSET \\$3").
		WithArgs("7", int64(2), int64(0)).
		WillReturnRows(sqlmock.NewRows(commentColumns).
			AddRow("a", "7", "", "first", 1, false, now, "bob", "Bob", "", "", "", "").
			AddRow("b", "7", "a", "reply", 0, true, now, "carol", "", "", "", "", ""))

	comments, total, err := repo.CommentPage(context.Background(), "7", 0, 2)
	require.NoError(t, err)

	assert.Equal(t, 5, total)
	require.Len(t, comments, 2)
	assert.Equal(t, "a", comments[1].ParentID)
	assert.True(t, comments[1].Deleted)
	assert.Nil(t, comments[0].Post)
}

func TestRepository_CommentPagePastEnd(t *testing.T) {
	t.Parallel()

	repo, mock := newRepo(t)
	mock.ExpectQuery("SELECT COUNT").WithArgs("7").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	comments, total, err := repo.CommentPage(context.Background(), "7", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Empty(t, comments)
}

func TestRepository_Profile(t *testing.T) {
	t.Parallel()

	repo, mock := newRepo(t)

	mock.ExpectQuery("FROM profiles WHERE username = \\$1").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"username", "name", "headline", "bio", "avatar_small", "avatar_medium"}).
			AddRow("alice", "Alice", "Physicist", "Hi", "s.png", "m.png"))
	mock.ExpectQuery("FROM channel_memberships m").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("chemistry").AddRow("physics"))

	profile, err := repo.Profile(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.Name)
	assert.Equal(t, []string{"chemistry", "physics"}, profile.ChannelMemberships)
}

func TestRepository_CourseWithRuns(t *testing.T) {
	t.Parallel()

	repo, mock := newRepo(t)
	modified := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .+ FROM courses WHERE id = \\$1").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(append(resourceColumns,
			"course_id", "platform", "program_type", "program_name", "featured")).
			AddRow(int64(5), "Intro to CS", "short", "full", "", "https://ocw/6.001", true, modified,
				"6.001", "ocw", "", "", false))
	mock.ExpectQuery("FROM resource_tags").
		WithArgs("course", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"topics", "offered_by"}).AddRow("{math,physics}", "{OCW}"))
	mock.ExpectQuery("FROM runs WHERE object_type = \\$1 AND object_id = \\$2").
		WithArgs("course", int64(5)).
		WillReturnRows(sqlmock.NewRows(runColumns).
			AddRow(int64(11), "fall-2026", "ocw", "Fall", "Fall", 2026, "", "", "en", start, nil, true))
	mock.ExpectQuery("FROM run_prices WHERE run_id = ANY\\(\\$1\\)").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"run_id", "price", "mode"}).AddRow(int64(11), 0.0, "audit"))
	mock.ExpectQuery("FROM run_instructors WHERE run_id = ANY\\(\\$1\\)").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"run_id", "name"}).AddRow(int64(11), "Hal Abelson"))

	course, err := repo.Course(context.Background(), 5, false)
	require.NoError(t, err)

	assert.Equal(t, "6.001", course.CourseID)
	assert.Equal(t, []string{"math", "physics"}, course.Topics)
	assert.Equal(t, []string{"OCW"}, course.OfferedBy)
	require.Len(t, course.Runs, 1)

	run := course.Runs[0]
	assert.Equal(t, "fall-2026", run.RunID)
	require.NotNil(t, run.StartDate)
	assert.Equal(t, start, *run.StartDate)
	assert.Nil(t, run.EndDate)
	assert.Equal(t, []domain.Price{{Price: 0, Mode: "audit"}}, run.Prices)
	assert.Equal(t, []string{"Hal Abelson"}, run.Instructors)
	assert.Empty(t, run.ContentFiles)
}

func TestRepository_PublishedIDs(t *testing.T) {
	t.Parallel()

	repo, mock := newRepo(t)
	mock.ExpectQuery("SELECT id FROM videos WHERE published AND id > \\$1 ORDER BY id LIMIT \\$2").
		WithArgs(int64(10), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)).AddRow(int64(14)))

	ids, err := repo.PublishedIDs(context.Background(), database.TableVideos, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 14}, ids)
}

func TestRepository_PublishedIDsRejectsUnknownTable(t *testing.T) {
	t.Parallel()

	repo, _ := newRepo(t)

	_, err := repo.PublishedIDs(context.Background(), database.Table("users; DROP TABLE posts"), 0, 10)
	require.Error(t, err)
}

func TestRepository_ContentFileNotFound(t *testing.T) {
	t.Parallel()

	repo, mock := newRepo(t)
	mock.ExpectQuery("FROM content_files WHERE id = \\$1").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.ContentFile(context.Background(), 3)
	require.ErrorIs(t, err, database.ErrNotFound)
}
