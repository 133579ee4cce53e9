package types

import "fmt"

// PayloadShape selects how a resource endpoint expects submitted values
type PayloadShape string

const (
	// PayloadShapeFlat keys each value by the last segment of its field path
	PayloadShapeFlat PayloadShape = "flat"
	// PayloadShapeNested expands dotted field paths into nested objects
	PayloadShapeNested PayloadShape = "nested"
)

// IsValid checks if the payload shape is valid
func (s PayloadShape) IsValid() bool {
	switch s {
	case PayloadShapeFlat, PayloadShapeNested:
		return true
	default:
		return false
	}
}

// Normalize returns the shape, treating empty as PayloadShapeFlat
func (s PayloadShape) Normalize() PayloadShape {
	if s == "" {
		return PayloadShapeFlat
	}
	return s
}

// String returns the string representation of the payload shape
func (s PayloadShape) String() string {
	return string(s)
}

// ParsePayloadShape parses a string into a PayloadShape
func ParsePayloadShape(s string) (PayloadShape, error) {
	shape := PayloadShape(s).Normalize()
	if !shape.IsValid() {
		return "", fmt.Errorf("invalid payload shape: %s", s)
	}
	return shape, nil
}
