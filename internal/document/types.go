package document

import "fmt"

// ObjectType is the kind of entity a document was serialized from. It is
// stored in every document's object_type field and never changes.
type ObjectType string

const (
	TypePost         ObjectType = "post"
	TypeComment      ObjectType = "comment"
	TypeProfile      ObjectType = "profile"
	TypeCourse       ObjectType = "course"
	TypeBootcamp     ObjectType = "bootcamp"
	TypeProgram      ObjectType = "program"
	TypeUserList     ObjectType = "userlist"
	TypeLearningPath ObjectType = "learningpath"
	TypeVideo        ObjectType = "video"
	TypeResourceFile ObjectType = "resourcefile"
)

// AliasAllIndices names the single global index every object type lives in.
const AliasAllIndices = "all"

// GlobalDocType is the mapping type on the wire.
const GlobalDocType = "_doc"

// ObjectTypes lists every valid object type.
var ObjectTypes = []ObjectType{
	TypePost,
	TypeComment,
	TypeProfile,
	TypeCourse,
	TypeBootcamp,
	TypeProgram,
	TypeUserList,
	TypeLearningPath,
	TypeVideo,
	TypeResourceFile,
}

// Valid reports whether t is a known object type.
func (t ObjectType) Valid() bool {
	for _, known := range ObjectTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t ObjectType) String() string {
	return string(t)
}

// ParseObjectType converts s into an ObjectType.
func ParseObjectType(s string) (ObjectType, error) {
	t := ObjectType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown object type %q", s)
	}
	return t, nil
}

// ParseObjectTypes converts every entry of values.
func ParseObjectTypes(values []string) ([]ObjectType, error) {
	types := make([]ObjectType, 0, len(values))
	for _, v := range values {
		t, err := ParseObjectType(v)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// Strings converts types back into plain strings.
func Strings(types []ObjectType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
