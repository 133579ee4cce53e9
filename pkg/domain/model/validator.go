package model

import (
	"github.com/fleetdesk/rentalconsole/pkg/domain/model/config"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// ValidateDescriptors checks a descriptor list: every path is non-empty and
// unique, kinds are known, select fields carry options and relation fields
// carry a source.
func ValidateDescriptors(fields []config.FieldDescriptor) error {
	seen := make(map[string]bool, len(fields))
	for i, fd := range fields {
		if fd.Path == "" {
			return goerr.Wrap(ErrInvalidDescriptor, "field path is empty", goerr.V("index", i))
		}
		if seen[fd.Path] {
			return goerr.Wrap(ErrDuplicatePath, "field path is declared twice", goerr.V(FieldPathKey, fd.Path))
		}
		seen[fd.Path] = true

		kind := fd.Kind.Normalize()
		if !kind.IsValid() {
			return goerr.Wrap(ErrInvalidDescriptor, "unsupported field kind",
				goerr.V(FieldPathKey, fd.Path),
				goerr.V(FieldKindKey, fd.Kind))
		}

		switch kind {
		case types.FieldKindSelect:
			if len(fd.Options) == 0 {
				return goerr.Wrap(ErrInvalidDescriptor, "select field requires at least one option",
					goerr.V(FieldPathKey, fd.Path))
			}
		case types.FieldKindRelation:
			if fd.Relation == nil || fd.Relation.Endpoint == "" || fd.Relation.LabelKey == "" {
				return goerr.Wrap(ErrInvalidDescriptor, "relation field requires an endpoint and a label key",
					goerr.V(FieldPathKey, fd.Path))
			}
		}
	}
	return nil
}

// FieldValidator checks form values against a resource's descriptors
type FieldValidator struct {
	fields []config.FieldDescriptor
}

// NewFieldValidator creates a new FieldValidator for the given descriptors
func NewFieldValidator(fields []config.FieldDescriptor) *FieldValidator {
	return &FieldValidator{fields: fields}
}

// ValidateRequired returns a *ValidationError listing every required field
// whose value is empty, in declaration order. It only applies to create and
// edit. File fields are exempt here because an existing uploaded URL may
// stand in for a new file; a file field with FileRequiredOnCreate is checked
// in create mode.
func (v *FieldValidator) ValidateRequired(mode types.FormMode, state FormState) error {
	if !mode.Validates() {
		return nil
	}

	var missing []string
	for _, fd := range v.fields {
		if !v.requiresValue(mode, fd) {
			continue
		}
		if IsEmptyValue(state[fd.Path]) {
			missing = append(missing, fd.Path)
		}
	}

	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

func (v *FieldValidator) requiresValue(mode types.FormMode, fd config.FieldDescriptor) bool {
	switch fd.Kind.Normalize() {
	case types.FieldKindFile:
		return mode == types.FormModeCreate && fd.FileRequiredOnCreate
	default:
		return fd.Required
	}
}
