// Package tasks carries indexing work from the write path to the worker
// over Redis Streams.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/MasterGowen/open-discussions/internal/document"
)

// Task names.
const (
	NameCreateDocument           = "create_document"
	NameUpdatePartial            = "update_document_with_partial"
	NameIncrementField           = "increment_document_integer_field"
	NameUpdateFieldValuesByQuery = "update_field_values_by_query"
	NameDeleteDocument           = "delete_document"
	NameIndexPostWithComments    = "index_post_with_comments"
	NameUpsertProfile            = "upsert_profile"
	NameUpsertCourse             = "upsert_course"
	NameUpsertProgram            = "upsert_program"
	NameUpsertVideo              = "upsert_video"
	NameUpsertUserList           = "upsert_user_list"
	NameUpsertContentFile        = "upsert_content_file"
	NameUpsertBootcamp           = "upsert_bootcamp"
	NameIndexNewBootcamp         = "index_new_bootcamp"
	NameIndexRunContentFiles     = "index_run_content_files"
	NameDeleteRunContentFiles    = "delete_run_content_files"
	NameRecreateIndex            = "recreate_index"
)

// ErrEmptyName is returned when dispatching a task without a name.
var ErrEmptyName = errors.New("task name is required")

// Task is a named unit of work with loosely typed arguments. Args survive a
// JSON round trip, so numbers come back as float64 and are normalized by
// DecodeArgs.
type Task struct {
	Name     string         `json:"name"`
	Args     map[string]any `json:"args"`
	Priority Priority       `json:"-"`
}

// Dispatcher enqueues tasks for asynchronous execution.
//
//go:generate mockgen -destination=mocks/mock_dispatcher.go -package=mocks github.com/MasterGowen/open-discussions/internal/tasks Dispatcher
type Dispatcher interface {
	Dispatch(ctx context.Context, task Task) error
}

// DocumentArgs addresses a single document.
type DocumentArgs struct {
	DocID      string `mapstructure:"doc_id"`
	ObjectType string `mapstructure:"object_type"`
	Routing    string `mapstructure:"routing,omitempty"`
}

// CreateDocumentArgs are the arguments of create_document.
type CreateDocumentArgs struct {
	DocumentArgs `mapstructure:",squash"`

	Data map[string]any `mapstructure:"data"`
}

// UpdatePartialArgs are the arguments of update_document_with_partial.
type UpdatePartialArgs struct {
	DocumentArgs `mapstructure:",squash"`

	Fields          map[string]any `mapstructure:"fields"`
	RetryOnConflict int            `mapstructure:"retry_on_conflict,omitempty"`
}

// IncrementArgs are the arguments of increment_document_integer_field.
type IncrementArgs struct {
	DocumentArgs `mapstructure:",squash"`

	Field           string `mapstructure:"field"`
	Amount          int    `mapstructure:"amount"`
	RetryOnConflict int    `mapstructure:"retry_on_conflict,omitempty"`
}

// UpdateByQueryArgs are the arguments of update_field_values_by_query.
type UpdateByQueryArgs struct {
	Query       map[string]any `mapstructure:"query"`
	FieldValues map[string]any `mapstructure:"field_values"`
	ObjectTypes []string       `mapstructure:"object_types"`
}

// PostArgs identifies a forum post.
type PostArgs struct {
	PostID string `mapstructure:"post_id"`
}

// ProfileArgs identifies a forum user.
type ProfileArgs struct {
	Username string `mapstructure:"username"`
}

// RecordArgs identifies a catalog row by primary key.
type RecordArgs struct {
	ID int64 `mapstructure:"id"`
}

// NewTask encodes args into a Task at normal priority.
func NewTask(name string, args any) (Task, error) {
	if name == "" {
		return Task{}, ErrEmptyName
	}
	encoded := make(map[string]any)
	if args != nil {
		if err := mapstructure.Decode(args, &encoded); err != nil {
			return Task{}, fmt.Errorf("encode %s args: %w", name, err)
		}
	}
	return Task{Name: name, Args: encoded, Priority: PriorityNormal}, nil
}

// DecodeArgs decodes t.Args into out.
func (t Task) DecodeArgs(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ZeroFields:       true,
	})
	if err != nil {
		return err
	}
	if err = decoder.Decode(t.Args); err != nil {
		return fmt.Errorf("decode %s args: %w", t.Name, err)
	}
	return nil
}

// Type parses the object_type argument.
func (a DocumentArgs) Type() (document.ObjectType, error) {
	return document.ParseObjectType(a.ObjectType)
}
