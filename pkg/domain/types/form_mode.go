package types

import "fmt"

// FormMode selects what a form submission does with the remote record
type FormMode string

const (
	FormModeCreate        FormMode = "create"
	FormModeEdit          FormMode = "edit"
	FormModeDelete        FormMode = "delete"
	FormModeResetPassword FormMode = "resetPassword"
)

// AllFormModes returns all valid form modes
func AllFormModes() []FormMode {
	return []FormMode{
		FormModeCreate,
		FormModeEdit,
		FormModeDelete,
		FormModeResetPassword,
	}
}

// IsValid checks if the form mode is valid
func (m FormMode) IsValid() bool {
	switch m {
	case FormModeCreate,
		FormModeEdit,
		FormModeDelete,
		FormModeResetPassword:
		return true
	default:
		return false
	}
}

// NeedsRecord reports whether the mode operates on an existing record
func (m FormMode) NeedsRecord() bool {
	return m == FormModeEdit || m == FormModeDelete || m == FormModeResetPassword
}

// Validates reports whether required-field validation applies to the mode
func (m FormMode) Validates() bool {
	return m == FormModeCreate || m == FormModeEdit
}

// String returns the string representation of the form mode
func (m FormMode) String() string {
	return string(m)
}

// ParseFormMode parses a string into a FormMode. "store" is accepted as an
// alias of create.
func ParseFormMode(s string) (FormMode, error) {
	if s == "store" {
		return FormModeCreate, nil
	}
	mode := FormMode(s)
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid form mode: %s", s)
	}
	return mode, nil
}
