package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Error taxonomy. Each failure is scoped to the single operation that
// produced it.
var (
	ErrFetch        = goerr.New("remote request failed")
	ErrValidation   = goerr.New("validation failed")
	ErrUpload       = goerr.New("upload failed")
	ErrSubscription = goerr.New("realtime subscription failed")

	ErrSubmitInProgress = goerr.New("submission already in progress")
	ErrFormClosed       = goerr.New("form is not open")
	ErrMissingRecordID  = goerr.New("record ID is required for this mode")
	ErrStaleResponse    = goerr.New("response arrived after the form was closed")
	ErrResourceNotFound = goerr.New("resource not found")
	ErrRecordNotFound   = goerr.New("record not found")
	ErrStreamClosed     = goerr.New("location stream closed")

	ErrInvalidDescriptor = goerr.New("invalid field descriptor")
	ErrDuplicatePath     = goerr.New("duplicate field path")
)

// Context keys for error values
const (
	FieldPathKey  = "field_path"
	FieldKindKey  = "field_kind"
	ResourceKey   = "resource"
	EndpointKey   = "endpoint"
	RecordIDKey   = "record_id"
	EntityIDKey   = "entity_id"
	LocationKey   = "location"
	StatusCodeKey = "status_code"
	FormModeKey   = "form_mode"
)

// GenericErrorMessage is surfaced when no better message can be extracted
const GenericErrorMessage = "an error occurred, please try again"

// APIError is a non-2xx response (or an explicit success=false) from a
// resource endpoint.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("remote request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote request failed with status %d: %s", e.StatusCode, e.Detail)
}

func (e *APIError) Unwrap() error { return ErrFetch }

// ValidationError lists every required field that is empty, or carries a
// form-specific reason.
type ValidationError struct {
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "required fields are empty: " + strings.Join(e.Missing, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// UserMessage extracts a human readable message for err: the server-supplied
// detail first, then a validation message, then a generic fallback.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Error()
	}

	switch {
	case errors.Is(err, ErrSubmitInProgress):
		return ErrSubmitInProgress.Error()
	case errors.Is(err, ErrMissingRecordID):
		return ErrMissingRecordID.Error()
	case errors.Is(err, ErrResourceNotFound):
		return ErrResourceNotFound.Error()
	case errors.Is(err, ErrUpload):
		return "failed to upload file, please try again"
	case errors.Is(err, ErrFetch):
		return "failed to load data, please try again"
	}

	return GenericErrorMessage
}
