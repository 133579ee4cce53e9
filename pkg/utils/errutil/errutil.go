package errutil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/utils/logging"
	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
)

// Handle logs the error with its goerr context and reports it to Sentry when
// a Sentry client is configured. The error is returned unchanged.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)

	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error(msg,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error(msg, "error", err.Error())
	}

	if hub := sentry.CurrentHub(); hub != nil && hub.Client() != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("message", msg)
			hub.CaptureException(err)
		})
	}

	return err
}

// errorResponse mirrors the envelope the upstream API uses for failures, so
// console clients can parse both the same way.
type errorResponse struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
}

// HandleHTTP logs the error and writes a JSON error response with a
// user-facing detail message.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error, statusCode int) {
	if err == nil {
		return
	}

	if statusCode >= http.StatusInternalServerError {
		_ = Handle(ctx, err, "HTTP error")
	} else {
		logging.From(ctx).Warn("HTTP client error",
			"status", statusCode,
			"error", err.Error(),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Success: false,
		Detail:  model.UserMessage(err),
	})
}

// StatusCode maps domain errors to an HTTP status for the console API.
func StatusCode(err error) int {
	var apiErr *model.APIError
	switch {
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrMissingRecordID), errors.Is(err, model.ErrInvalidDescriptor):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrSubmitInProgress):
		return http.StatusConflict
	case errors.Is(err, model.ErrResourceNotFound):
		return http.StatusNotFound
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		return apiErr.StatusCode
	case errors.Is(err, model.ErrFetch), errors.Is(err, model.ErrUpload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
