// Package document maps forum and catalog entities to search documents.
//
// Each object type has its own document struct. Callers work with the
// Document interface and convert to a generic field map only at the engine
// boundary through Fields.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned when an entity lacks an attribute its document
// requires.
var ErrMalformed = errors.New("malformed entity")

// Document is a serialized entity ready to be written to the index.
type Document interface {
	// ID is the deterministic document id.
	ID() string
	// ObjectType is the object_type field of the document.
	ObjectType() ObjectType
	// Routing is the shard routing key, empty for the default.
	Routing() string

	document()
}

// Base carries the fields every document has.
type Base struct {
	Type ObjectType `json:"object_type"`
}

// ObjectType implements Document.
func (b Base) ObjectType() ObjectType { return b.Type }

func (Base) document() {}

// Fields returns the field map written to the engine for doc. The map
// always contains object_type.
func Fields(doc Document) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal %s document %s: %w", doc.ObjectType(), doc.ID(), err)
	}

	fields := make(map[string]any)
	if err = json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode %s document %s: %w", doc.ObjectType(), doc.ID(), err)
	}
	fields["object_type"] = string(doc.ObjectType())

	return fields, nil
}

func malformed(objectType ObjectType, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformed, objectType, fmt.Sprintf(format, args...))
}
