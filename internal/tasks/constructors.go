package tasks

import "github.com/MasterGowen/open-discussions/internal/document"

// CreateDocument builds a create_document task.
func CreateDocument(docID string, objectType document.ObjectType, data map[string]any) (Task, error) {
	return NewTask(NameCreateDocument, CreateDocumentArgs{
		DocumentArgs: DocumentArgs{DocID: docID, ObjectType: objectType.String()},
		Data:         data,
	})
}

// UpdatePartial builds an update_document_with_partial task.
func UpdatePartial(docID string, objectType document.ObjectType, fields map[string]any) (Task, error) {
	return NewTask(NameUpdatePartial, UpdatePartialArgs{
		DocumentArgs: DocumentArgs{DocID: docID, ObjectType: objectType.String()},
		Fields:       fields,
	})
}

// IncrementField builds an increment_document_integer_field task.
func IncrementField(docID string, objectType document.ObjectType, field string, amount int) (Task, error) {
	return NewTask(NameIncrementField, IncrementArgs{
		DocumentArgs: DocumentArgs{DocID: docID, ObjectType: objectType.String()},
		Field:        field,
		Amount:       amount,
	})
}

// UpdateFieldValuesByQuery builds an update_field_values_by_query task.
func UpdateFieldValuesByQuery(query, fieldValues map[string]any, objectTypes []document.ObjectType) (Task, error) {
	return NewTask(NameUpdateFieldValuesByQuery, UpdateByQueryArgs{
		Query:       query,
		FieldValues: fieldValues,
		ObjectTypes: document.Strings(objectTypes),
	})
}

// DeleteDocument builds a delete_document task. routing may be empty.
func DeleteDocument(docID string, objectType document.ObjectType, routing string) (Task, error) {
	return NewTask(NameDeleteDocument, DocumentArgs{
		DocID:      docID,
		ObjectType: objectType.String(),
		Routing:    routing,
	})
}

// IndexPostWithComments builds an index_post_with_comments task.
func IndexPostWithComments(postID string) (Task, error) {
	return NewTask(NameIndexPostWithComments, PostArgs{PostID: postID})
}

// UpsertProfile builds an upsert_profile task.
func UpsertProfile(username string) (Task, error) {
	return NewTask(NameUpsertProfile, ProfileArgs{Username: username})
}

// ForRecord builds a task that takes a single catalog id, such as
// upsert_course or index_run_content_files.
func ForRecord(name string, id int64) (Task, error) {
	return NewTask(name, RecordArgs{ID: id})
}

// RecreateIndex builds a low priority recreate_index task.
func RecreateIndex() (Task, error) {
	t, err := NewTask(NameRecreateIndex, nil)
	t.Priority = PriorityLow
	return t, err
}
