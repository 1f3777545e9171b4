package document_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MasterGowen/open-discussions/internal/document"
)

func TestDocumentIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "post", got: document.PostID("2a"), want: "p_2a"},
		{name: "comment", got: document.CommentID("7f"), want: "c_7f"},
		{name: "profile", got: document.ProfileID("01BRJ"), want: "u_01BRJ"},
		{name: "course", got: document.CourseID("ocw", "6.001"), want: "co_ocw_Ni4wMDE"},
		{name: "course with slash", got: document.CourseID("mitx", "MITx+6.00.1x/2T"), want: "co_mitx_TUlUeCs2LjAwLjF4LzJU"},
		{name: "content file", got: document.ContentFileID("courses/6-001/file.pdf"), want: "cf_Y291cnNlcy82LTAwMS9maWxlLnBkZg"},
		{name: "bootcamp", got: document.BootcampID("bc-1"), want: "bootcamp_bc-1"},
		{name: "program", got: document.ProgramID(12), want: "program_12"},
		{name: "user list", got: document.UserListID(3), want: "user_list_3"},
		{name: "video", got: document.VideoID("youtube", "dQw4w9"), want: "video_youtube_dQw4w9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestCourseID_IsStable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, document.CourseID("ocw", "6.001"), document.CourseID("ocw", "6.001"))
	assert.NotEqual(t, document.CourseID("ocw", "6.001"), document.CourseID("mitx", "6.001"))
}

func TestParseObjectType(t *testing.T) {
	t.Parallel()

	got, err := document.ParseObjectType("comment")
	assert.NoError(t, err)
	assert.Equal(t, document.TypeComment, got)

	_, err = document.ParseObjectType("widget")
	assert.Error(t, err)

	types, err := document.ParseObjectTypes([]string{"post", "comment"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"post", "comment"}, document.Strings(types))
}
