package domain

import "time"

// Platforms.
const (
	PlatformOCW       = "ocw"
	PlatformMITx      = "mitx"
	PlatformBootcamps = "bootcamps"
	PlatformYouTube   = "youtube"
)

// User list kinds.
const (
	ListTypeUserList     = "userlist"
	ListTypeLearningPath = "learningpath"
)

// Privacy levels.
const (
	PrivacyPrivate    = "private"
	PrivacyUnlisted   = "unlisted"
	PrivacyPublicList = "public"
)

// Resource is the shared metadata of every catalog record.
type Resource struct {
	ID               int64     `db:"id"`
	Title            string    `db:"title"`
	ShortDescription string    `db:"short_description"`
	FullDescription  string    `db:"full_description"`
	ImageSrc         string    `db:"image_src"`
	URL              string    `db:"url"`
	Published        bool      `db:"published"`
	LastModified     time.Time `db:"last_modified"`
	Topics           []string  `db:"-"`
	OfferedBy        []string  `db:"-"`
}

// Course is a catalog course identified by platform and course id.
type Course struct {
	Resource

	CourseID    string `db:"course_id"`
	Platform    string `db:"platform"`
	ProgramType string `db:"program_type"`
	ProgramName string `db:"program_name"`
	Featured    bool   `db:"featured"`
	Runs        []Run  `db:"-"`
}

// Run is one offering of a course or bootcamp.
type Run struct {
	ID           int64      `db:"id"`
	RunID        string     `db:"run_id"`
	Platform     string     `db:"platform"`
	Title        string     `db:"title"`
	Semester     string     `db:"semester"`
	Year         int        `db:"year"`
	Level        string     `db:"level"`
	Availability string     `db:"availability"`
	Language     string     `db:"language"`
	StartDate    *time.Time `db:"start_date"`
	EndDate      *time.Time `db:"end_date"`
	Published    bool       `db:"published"`
	Instructors  []string   `db:"-"`
	Prices       []Price    `db:"-"`

	ContentFiles []ContentFile `db:"-"`
}

// Price is a run price for one enrollment mode.
type Price struct {
	Price float64 `db:"price"`
	Mode  string  `db:"mode"`
}

// ContentFile is a file extracted from a course run.
type ContentFile struct {
	ID          int64  `db:"id"`
	RunID       int64  `db:"run_id"`
	Key         string `db:"key"`
	UID         string `db:"uid"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Content     string `db:"content"`
	URL         string `db:"url"`
	ShortURL    string `db:"short_url"`
	FileType    string `db:"file_type"`
	ContentType string `db:"content_type"`
	Published   bool   `db:"published"`

	// Course is the owning course. Content files are indexed as children of
	// the course document.
	Course *Course `db:"-"`
	Run    *Run    `db:"-"`
}

// Bootcamp is a paid intensive course.
type Bootcamp struct {
	Resource

	CourseID string `db:"course_id"`
	Location string `db:"location"`
	Runs     []Run  `db:"-"`
}

// ListItem references a catalog object from a program or user list.
type ListItem struct {
	ObjectType string `db:"object_type"`
	ObjectID   int64  `db:"object_id"`
	Position   int    `db:"position"`
}

// Program is a curated sequence of courses.
type Program struct {
	Resource

	ProgramID string     `db:"program_id"`
	Items     []ListItem `db:"-"`
}

// UserList is a list of catalog objects curated by a user.
type UserList struct {
	Resource

	Author       string     `db:"author"`
	PrivacyLevel string     `db:"privacy_level"`
	ListType     string     `db:"list_type"`
	Items        []ListItem `db:"-"`
}

// Video is a catalog video.
type Video struct {
	Resource

	VideoID    string `db:"video_id"`
	Platform   string `db:"platform"`
	Duration   string `db:"duration"`
	Transcript string `db:"transcript"`
}
