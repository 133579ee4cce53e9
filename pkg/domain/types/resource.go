package types

import (
	"regexp"

	"github.com/m-mizutani/goerr/v2"
)

// ResourceName identifies a collection managed by the console (e.g. "owner-cars")
type ResourceName string

var idPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Validate checks if the ResourceName is valid
func (n ResourceName) Validate() error {
	if n == "" {
		return goerr.New("resource name cannot be empty")
	}
	if !idPattern.MatchString(string(n)) {
		return goerr.New("resource name must be lowercase alphanumeric with hyphens", goerr.V("name", n))
	}
	return nil
}

// String returns the string representation of ResourceName
func (n ResourceName) String() string {
	return string(n)
}

// EntityID identifies a tracked entity (an owner car) in the realtime store
type EntityID string

// Validate checks that the id can be used as a realtime record key
func (id EntityID) Validate() error {
	if id == "" {
		return goerr.New("entity ID cannot be empty")
	}
	for _, r := range string(id) {
		switch r {
		case '/', '.', '#', '$', '[', ']', ' ':
			return goerr.New("entity ID contains a reserved character", goerr.V("id", id), goerr.V("char", string(r)))
		}
	}
	return nil
}

// String returns the string representation of EntityID
func (id EntityID) String() string {
	return string(id)
}
