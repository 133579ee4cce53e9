package config

import "github.com/fleetdesk/rentalconsole/pkg/domain/types"

// DefaultUploadLocation is used for file fields that do not name a location
const DefaultUploadLocation = "public/default"

// Option is a selectable {value, label} pair. It is also the value shape of
// a relation field once the user picks a related record.
type Option struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// RelationSource describes where a relation field loads its options from
type RelationSource struct {
	Endpoint string // Collection endpoint, e.g. "/api/car-types"
	ValueKey string // Dot path of the option value inside a record. Default: "id"
	LabelKey string // Dot path of the option label inside a record
}

// FieldDescriptor describes one editable value of a resource record
type FieldDescriptor struct {
	Path        string // Dotted path of the value inside a fetched record
	Label       string
	Kind        types.FieldKind
	Required    bool
	Placeholder string

	Options []Option // Only used for select

	// File fields
	AcceptedTypes        string
	UploadLocation       string
	FileRequiredOnCreate bool

	Relation *RelationSource // Only used for relation
	Renderer string          // Only used for custom; opaque to the engine
}

// Location returns the upload location for a file field
func (f FieldDescriptor) Location() string {
	if f.UploadLocation == "" {
		return DefaultUploadLocation
	}
	return f.UploadLocation
}

// Key returns the last segment of the field path, used as the flat payload key
func (f FieldDescriptor) Key() string {
	return LastSegment(f.Path)
}

// LastSegment returns the part of a dotted path after the last '.'
func LastSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
	}
	return path
}
