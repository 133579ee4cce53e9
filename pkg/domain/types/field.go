package types

import "fmt"

// FieldKind represents the kind of an editable form field
type FieldKind string

const (
	FieldKindText     FieldKind = "text"
	FieldKindNumber   FieldKind = "number"
	FieldKindSelect   FieldKind = "select"
	FieldKindFile     FieldKind = "file"
	FieldKindRelation FieldKind = "relation"
	FieldKindCustom   FieldKind = "custom"
	FieldKindTextarea FieldKind = "textarea"
)

// AllFieldKinds returns all valid field kinds
func AllFieldKinds() []FieldKind {
	return []FieldKind{
		FieldKindText,
		FieldKindNumber,
		FieldKindSelect,
		FieldKindFile,
		FieldKindRelation,
		FieldKindCustom,
		FieldKindTextarea,
	}
}

// IsValid checks if the field kind is valid
func (k FieldKind) IsValid() bool {
	switch k {
	case FieldKindText,
		FieldKindNumber,
		FieldKindSelect,
		FieldKindFile,
		FieldKindRelation,
		FieldKindCustom,
		FieldKindTextarea:
		return true
	default:
		return false
	}
}

// Normalize returns the kind, treating empty as FieldKindText.
func (k FieldKind) Normalize() FieldKind {
	if k == "" {
		return FieldKindText
	}
	return k
}

// String returns the string representation of the field kind
func (k FieldKind) String() string {
	return string(k)
}

// ParseFieldKind parses a string into a FieldKind
func ParseFieldKind(s string) (FieldKind, error) {
	kind := FieldKind(s).Normalize()
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid field kind: %s", s)
	}
	return kind, nil
}
