package config

import "github.com/fleetdesk/rentalconsole/pkg/domain/types"

// Column describes one table column of a paginated list. Key is a dot path
// into a record (e.g. "car_type.car_name").
type Column struct {
	Key   string
	Label string
}

// Resource binds a remote collection endpoint to its form and table schema
type Resource struct {
	Name     types.ResourceName
	Title    string
	Endpoint string
	Shape    types.PayloadShape

	// Form selects a specialized submit handler ("driver", "service");
	// empty means the generic pipeline.
	Form         string
	UploadTarget string

	Fields  []FieldDescriptor
	Columns []Column
}

// Field returns the descriptor for path
func (r *Resource) Field(path string) (FieldDescriptor, bool) {
	for _, f := range r.Fields {
		if f.Path == path {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// Catalog holds the complete resource configuration, in declaration order
type Catalog struct {
	Resources []*Resource
}

// Get returns the resource named name
func (c *Catalog) Get(name types.ResourceName) (*Resource, bool) {
	if c == nil {
		return nil, false
	}
	for _, r := range c.Resources {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}
