package document

import (
	"time"

	"github.com/MasterGowen/open-discussions/internal/domain"
)

// Join relation names of the resource_relations field.
const (
	RelationCourse       = "course"
	RelationResourceFile = "resourcefile"
)

// Relation is the value of the resource_relations join field.
type Relation struct {
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

// ResourceFields are shared by every catalog document.
type ResourceFields struct {
	DBID             int64      `json:"id"`
	Title            string     `json:"title"`
	ShortDescription string     `json:"short_description"`
	FullDescription  string     `json:"full_description,omitempty"`
	ImageSrc         string     `json:"image_src,omitempty"`
	URL              string     `json:"url,omitempty"`
	Published        bool       `json:"published"`
	LastModified     *time.Time `json:"last_modified,omitempty"`
	Topics           []string   `json:"topics"`
	OfferedBy        []string   `json:"offered_by"`
}

// RunFields is one nested run of a course or bootcamp document.
type RunFields struct {
	ID           int64      `json:"id"`
	RunID        string     `json:"run_id"`
	Title        string     `json:"title"`
	Semester     string     `json:"semester,omitempty"`
	Year         int        `json:"year,omitempty"`
	Level        string     `json:"level,omitempty"`
	Availability string     `json:"availability,omitempty"`
	Language     string     `json:"language,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Instructors  []string   `json:"instructors"`
	Prices       []Price    `json:"prices"`
	Published    bool       `json:"published"`
}

// Price is a nested run price.
type Price struct {
	Price float64 `json:"price"`
	Mode  string  `json:"mode"`
}

// ItemFields is a nested program or user list item.
type ItemFields struct {
	ObjectType string `json:"object_type"`
	ObjectID   int64  `json:"object_id"`
	Position   int    `json:"position"`
}

// CourseDocument is the document of a catalog course. It is the parent of
// its content file documents.
type CourseDocument struct {
	Base
	ResourceFields

	CourseID          string      `json:"course_id"`
	Platform          string      `json:"platform"`
	ProgramType       string      `json:"program_type,omitempty"`
	ProgramName       string      `json:"program_name,omitempty"`
	Featured          bool        `json:"featured"`
	Runs              []RunFields `json:"runs"`
	ResourceRelations Relation    `json:"resource_relations"`
}

// ID implements Document.
func (d *CourseDocument) ID() string { return CourseID(d.Platform, d.CourseID) }

// Routing implements Document.
func (d *CourseDocument) Routing() string { return "" }

// ContentFileDocument is the document of a file extracted from a course
// run. It is routed to its course document.
type ContentFileDocument struct {
	Base

	DBID              int64    `json:"id"`
	Key               string   `json:"key"`
	UID               string   `json:"uid,omitempty"`
	Title             string   `json:"title"`
	ShortDescription  string   `json:"short_description"`
	Content           string   `json:"content"`
	URL               string   `json:"url,omitempty"`
	ShortURL          string   `json:"short_url,omitempty"`
	FileType          string   `json:"file_type,omitempty"`
	ContentType       string   `json:"content_type,omitempty"`
	CourseID          string   `json:"course_id"`
	Platform          string   `json:"platform"`
	RunID             string   `json:"run_id"`
	RunTitle          string   `json:"run_title"`
	Semester          string   `json:"semester,omitempty"`
	Year              int      `json:"year,omitempty"`
	Topics            []string `json:"topics"`
	ResourceRelations Relation `json:"resource_relations"`

	courseDocID string
}

// ID implements Document.
func (d *ContentFileDocument) ID() string { return ContentFileID(d.Key) }

// Routing implements Document.
func (d *ContentFileDocument) Routing() string { return d.courseDocID }

// BootcampDocument is the document of a bootcamp.
type BootcampDocument struct {
	Base
	ResourceFields

	CourseID string      `json:"course_id"`
	Location string      `json:"location,omitempty"`
	Runs     []RunFields `json:"runs"`
}

// ID implements Document.
func (d *BootcampDocument) ID() string { return BootcampID(d.CourseID) }

// Routing implements Document.
func (d *BootcampDocument) Routing() string { return "" }

// ProgramDocument is the document of a program.
type ProgramDocument struct {
	Base
	ResourceFields

	ProgramID string       `json:"program_id,omitempty"`
	Items     []ItemFields `json:"items"`
}

// ID implements Document.
func (d *ProgramDocument) ID() string { return ProgramID(d.DBID) }

// Routing implements Document.
func (d *ProgramDocument) Routing() string { return "" }

// UserListDocument is the document of a user list or learning path.
type UserListDocument struct {
	Base
	ResourceFields

	Author       string       `json:"author"`
	PrivacyLevel string       `json:"privacy_level"`
	ListType     string       `json:"list_type"`
	Items        []ItemFields `json:"items"`
}

// ID implements Document.
func (d *UserListDocument) ID() string { return UserListID(d.DBID) }

// Routing implements Document.
func (d *UserListDocument) Routing() string { return "" }

// VideoDocument is the document of a video.
type VideoDocument struct {
	Base
	ResourceFields

	VideoID    string `json:"video_id"`
	Platform   string `json:"platform"`
	Duration   string `json:"duration,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// ID implements Document.
func (d *VideoDocument) ID() string { return VideoID(d.Platform, d.VideoID) }

// Routing implements Document.
func (d *VideoDocument) Routing() string { return "" }

// SerializeCourse builds the document of course.
func SerializeCourse(course *domain.Course) (*CourseDocument, error) {
	if course == nil || course.CourseID == "" || course.Platform == "" {
		return nil, malformed(TypeCourse, "missing platform or course id")
	}

	return &CourseDocument{
		Base:              Base{Type: TypeCourse},
		ResourceFields:    resourceFields(course.Resource),
		CourseID:          course.CourseID,
		Platform:          course.Platform,
		ProgramType:       course.ProgramType,
		ProgramName:       course.ProgramName,
		Featured:          course.Featured,
		Runs:              runFields(course.Runs),
		ResourceRelations: Relation{Name: RelationCourse},
	}, nil
}

// SerializeContentFile builds the document of file. The owning course and
// run must be loaded.
func SerializeContentFile(file *domain.ContentFile) (*ContentFileDocument, error) {
	if file == nil || file.Key == "" {
		return nil, malformed(TypeResourceFile, "missing storage key")
	}
	if file.Course == nil || file.Run == nil {
		return nil, malformed(TypeResourceFile, "content file %s has no course run", file.Key)
	}

	courseDocID := CourseID(file.Course.Platform, file.Course.CourseID)
	topics := file.Course.Topics
	if topics == nil {
		topics = []string{}
	}

	return &ContentFileDocument{
		Base:              Base{Type: TypeResourceFile},
		DBID:              file.ID,
		Key:               file.Key,
		UID:               file.UID,
		Title:             file.Title,
		ShortDescription:  file.Description,
		Content:           file.Content,
		URL:               file.URL,
		ShortURL:          file.ShortURL,
		FileType:          file.FileType,
		ContentType:       file.ContentType,
		CourseID:          file.Course.CourseID,
		Platform:          file.Course.Platform,
		RunID:             file.Run.RunID,
		RunTitle:          file.Run.Title,
		Semester:          file.Run.Semester,
		Year:              file.Run.Year,
		Topics:            topics,
		ResourceRelations: Relation{Name: RelationResourceFile, Parent: courseDocID},
		courseDocID:       courseDocID,
	}, nil
}

// SerializeBootcamp builds the document of bootcamp.
func SerializeBootcamp(bootcamp *domain.Bootcamp) (*BootcampDocument, error) {
	if bootcamp == nil || bootcamp.CourseID == "" {
		return nil, malformed(TypeBootcamp, "missing course id")
	}

	return &BootcampDocument{
		Base:           Base{Type: TypeBootcamp},
		ResourceFields: resourceFields(bootcamp.Resource),
		CourseID:       bootcamp.CourseID,
		Location:       bootcamp.Location,
		Runs:           runFields(bootcamp.Runs),
	}, nil
}

// SerializeProgram builds the document of program.
func SerializeProgram(program *domain.Program) (*ProgramDocument, error) {
	if program == nil || program.ID == 0 {
		return nil, malformed(TypeProgram, "missing id")
	}

	return &ProgramDocument{
		Base:           Base{Type: TypeProgram},
		ResourceFields: resourceFields(program.Resource),
		ProgramID:      program.ProgramID,
		Items:          itemFields(program.Items),
	}, nil
}

// SerializeUserList builds the document of list. Learning paths get their
// own object type.
func SerializeUserList(list *domain.UserList) (*UserListDocument, error) {
	if list == nil || list.ID == 0 {
		return nil, malformed(TypeUserList, "missing id")
	}

	objectType := TypeUserList
	if list.ListType == domain.ListTypeLearningPath {
		objectType = TypeLearningPath
	}

	return &UserListDocument{
		Base:           Base{Type: objectType},
		ResourceFields: resourceFields(list.Resource),
		Author:         list.Author,
		PrivacyLevel:   list.PrivacyLevel,
		ListType:       list.ListType,
		Items:          itemFields(list.Items),
	}, nil
}

// SerializeVideo builds the document of video.
func SerializeVideo(video *domain.Video) (*VideoDocument, error) {
	if video == nil || video.VideoID == "" || video.Platform == "" {
		return nil, malformed(TypeVideo, "missing platform or video id")
	}

	return &VideoDocument{
		Base:           Base{Type: TypeVideo},
		ResourceFields: resourceFields(video.Resource),
		VideoID:        video.VideoID,
		Platform:       video.Platform,
		Duration:       video.Duration,
		Transcript:     video.Transcript,
	}, nil
}

func resourceFields(r domain.Resource) ResourceFields {
	fields := ResourceFields{
		DBID:             r.ID,
		Title:            r.Title,
		ShortDescription: r.ShortDescription,
		FullDescription:  r.FullDescription,
		ImageSrc:         r.ImageSrc,
		URL:              r.URL,
		Published:        r.Published,
		Topics:           nonNil(r.Topics),
		OfferedBy:        nonNil(r.OfferedBy),
	}
	if !r.LastModified.IsZero() {
		modified := r.LastModified.UTC()
		fields.LastModified = &modified
	}
	return fields
}

func runFields(runs []domain.Run) []RunFields {
	out := make([]RunFields, 0, len(runs))
	for i := range runs {
		run := &runs[i]
		prices := make([]Price, 0, len(run.Prices))
		for _, p := range run.Prices {
			prices = append(prices, Price{Price: p.Price, Mode: p.Mode})
		}
		out = append(out, RunFields{
			ID:           run.ID,
			RunID:        run.RunID,
			Title:        run.Title,
			Semester:     run.Semester,
			Year:         run.Year,
			Level:        run.Level,
			Availability: run.Availability,
			Language:     run.Language,
			StartDate:    run.StartDate,
			EndDate:      run.EndDate,
			Instructors:  nonNil(run.Instructors),
			Prices:       prices,
			Published:    run.Published,
		})
	}
	return out
}

func itemFields(items []domain.ListItem) []ItemFields {
	out := make([]ItemFields, 0, len(items))
	for _, item := range items {
		out = append(out, ItemFields{
			ObjectType: item.ObjectType,
			ObjectID:   item.ObjectID,
			Position:   item.Position,
		})
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
