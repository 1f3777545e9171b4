package document

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// PostID returns the document id of a post.
func PostID(postID string) string {
	return "p_" + postID
}

// CommentID returns the document id of a comment.
func CommentID(commentID string) string {
	return "c_" + commentID
}

// ProfileID returns the document id of a user profile.
func ProfileID(username string) string {
	return "u_" + username
}

// CourseID returns the document id of a course. Course ids may contain
// characters that are not safe in a document id, so they are encoded.
func CourseID(platform, courseID string) string {
	return fmt.Sprintf("co_%s_%s", platform, encodeKey(courseID))
}

// ContentFileID returns the document id of a content file from its storage key.
func ContentFileID(key string) string {
	return "cf_" + encodeKey(key)
}

// BootcampID returns the document id of a bootcamp.
func BootcampID(courseID string) string {
	return "bootcamp_" + courseID
}

// ProgramID returns the document id of a program.
func ProgramID(id int64) string {
	return "program_" + strconv.FormatInt(id, 10)
}

// UserListID returns the document id of a user list or learning path.
func UserListID(id int64) string {
	return "user_list_" + strconv.FormatInt(id, 10)
}

// VideoID returns the document id of a video.
func VideoID(platform, videoID string) string {
	return fmt.Sprintf("video_%s_%s", platform, videoID)
}

func encodeKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}
