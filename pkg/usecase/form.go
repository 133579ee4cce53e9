package usecase

import (
	"context"
	"sync"

	"github.com/fleetdesk/rentalconsole/pkg/domain/interfaces"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model/config"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
	"github.com/fleetdesk/rentalconsole/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// SubmitRequest is what a submit handler works on. Values is a snapshot of
// the form state taken when Submit started.
type SubmitRequest struct {
	Resource *config.Resource
	Mode     types.FormMode
	RecordID string
	Values   model.FormState
	// Record is the fetched record body, nil in create mode
	Record map[string]any

	Client   interfaces.ResourceClient
	Uploader interfaces.Uploader

	uploaded map[string]string
}

// Upload stores blob at location and returns its public URL. The URL is
// written back to the form state at path when the submission is still
// current, so a retry does not upload the same file again.
func (r *SubmitRequest) Upload(ctx context.Context, path, location string, blob *model.FileBlob) (string, error) {
	if r.Uploader == nil {
		return "", goerr.Wrap(model.ErrUpload, "no upload target configured", goerr.V(model.FieldPathKey, path))
	}

	objPath, err := r.Uploader.Upload(ctx, location, blob)
	if err != nil {
		return "", goerr.Wrap(err, "failed to upload file",
			goerr.V(model.FieldPathKey, path),
			goerr.V(model.LocationKey, location))
	}

	url := r.Uploader.PublicURL(objPath)
	if r.uploaded == nil {
		r.uploaded = make(map[string]string)
	}
	r.uploaded[path] = url
	return url, nil
}

// SubmitHandler replaces validation, upload, payload building and the
// network call of the default pipeline
type SubmitHandler func(ctx context.Context, req *SubmitRequest) error

// ChangeHandler replaces the default single-field mutation of SetValue
type ChangeHandler func(state model.FormState, path string, value any)

// FormEngine drives one CRUD form of a resource through open, edit and
// submit. It is owned by a single form session at a time.
type FormEngine struct {
	resource  *config.Resource
	client    interfaces.ResourceClient
	uploader  interfaces.Uploader
	validator *model.FieldValidator

	onSuccess     func(ctx context.Context)
	onError       func(ctx context.Context, message string, err error)
	submitHandler SubmitHandler
	changeHandler ChangeHandler

	mu         sync.Mutex
	generation uint64
	open       bool
	submitting bool
	mode       types.FormMode
	recordID   string
	values     model.FormState
	record     map[string]any
}

type FormOption func(*FormEngine)

// WithOnSuccess sets the callback invoked after a successful submission
func WithOnSuccess(fn func(ctx context.Context)) FormOption {
	return func(e *FormEngine) {
		e.onSuccess = fn
	}
}

// WithOnError sets the callback invoked with a user facing message when
// loading or submitting fails
func WithOnError(fn func(ctx context.Context, message string, err error)) FormOption {
	return func(e *FormEngine) {
		e.onError = fn
	}
}

func WithSubmitHandler(h SubmitHandler) FormOption {
	return func(e *FormEngine) {
		e.submitHandler = h
	}
}

func WithChangeHandler(h ChangeHandler) FormOption {
	return func(e *FormEngine) {
		e.changeHandler = h
	}
}

// NewFormEngine creates a form engine for resource. The descriptor list is
// checked once here.
func NewFormEngine(resource *config.Resource, client interfaces.ResourceClient, uploader interfaces.Uploader, opts ...FormOption) (*FormEngine, error) {
	if resource == nil {
		return nil, goerr.New("resource is nil")
	}
	if err := model.ValidateDescriptors(resource.Fields); err != nil {
		return nil, goerr.Wrap(err, "invalid form descriptors", goerr.V(model.ResourceKey, resource.Name))
	}

	e := &FormEngine{
		resource:  resource,
		client:    client,
		uploader:  uploader,
		validator: model.NewFieldValidator(resource.Fields),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Open starts a form session. Modes working on an existing record fetch it
// and hydrate every descriptor path from the response; create mode and a
// missing record ID hydrate every path to "". A failed fetch leaves the form
// closed.
func (e *FormEngine) Open(ctx context.Context, mode types.FormMode, recordID string) error {
	if !mode.IsValid() {
		return goerr.New("invalid form mode", goerr.V(model.FormModeKey, mode))
	}

	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.open = false
	e.submitting = false
	e.mode = mode
	e.recordID = recordID
	e.values = nil
	e.record = nil
	e.mu.Unlock()

	if !mode.NeedsRecord() || recordID == "" {
		e.mu.Lock()
		defer e.mu.Unlock()
		if gen != e.generation {
			return goerr.Wrap(model.ErrStaleResponse, "form was reopened while opening")
		}
		e.values = emptyState(e.resource.Fields)
		e.open = true
		return nil
	}

	record, err := e.client.Get(ctx, e.resource.Endpoint, recordID)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		logging.From(ctx).Debug("discarding stale record fetch",
			"resource", e.resource.Name,
			"record_id", recordID)
		return goerr.Wrap(model.ErrStaleResponse, "form was closed while loading",
			goerr.V(model.RecordIDKey, recordID))
	}
	if err != nil {
		e.mu.Unlock()
		err = goerr.Wrap(err, "failed to load record",
			goerr.V(model.ResourceKey, e.resource.Name),
			goerr.V(model.RecordIDKey, recordID))
		e.notifyError(ctx, err)
		return err
	}

	e.record = record
	e.values = hydrateState(e.resource.Fields, record)
	e.open = true
	e.mu.Unlock()
	return nil
}

func emptyState(fields []config.FieldDescriptor) model.FormState {
	state := make(model.FormState, len(fields))
	for _, fd := range fields {
		state[fd.Path] = ""
	}
	return state
}

func hydrateState(fields []config.FieldDescriptor, record map[string]any) model.FormState {
	state := make(model.FormState, len(fields))
	for _, fd := range fields {
		state[fd.Path] = model.DotPathLookup(record, fd.Path)
	}
	return state
}

// SetValue merges one path/value pair into the form state, or hands it to
// the change handler when one is set
func (e *FormEngine) SetValue(path string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.open {
		return goerr.Wrap(model.ErrFormClosed, "cannot set value", goerr.V(model.FieldPathKey, path))
	}

	if e.changeHandler != nil {
		e.changeHandler(e.values, path, value)
		return nil
	}
	e.values[path] = value
	return nil
}

// Validate checks required fields for create and edit. Calling it again
// without changing the state yields an equal result.
func (e *FormEngine) Validate() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.open {
		return goerr.Wrap(model.ErrFormClosed, "cannot validate")
	}
	return e.validator.ValidateRequired(e.mode, e.values)
}

// Submit runs the submission pipeline: validate, upload pending files in
// descriptor order, build the payload and send exactly one mutating call.
// On success the form is cleared and closed. On failure the state is kept
// for a retry. A result that arrives after Close or a new Open is dropped
// without callbacks.
func (e *FormEngine) Submit(ctx context.Context) error {
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return goerr.Wrap(model.ErrFormClosed, "cannot submit")
	}
	if e.submitting {
		e.mu.Unlock()
		return goerr.Wrap(model.ErrSubmitInProgress, "submit called twice",
			goerr.V(model.ResourceKey, e.resource.Name))
	}
	if e.mode.NeedsRecord() && e.recordID == "" {
		e.mu.Unlock()
		err := goerr.Wrap(model.ErrMissingRecordID, "cannot submit without record ID",
			goerr.V(model.ResourceKey, e.resource.Name),
			goerr.V(model.FormModeKey, e.mode))
		e.notifyError(ctx, err)
		return err
	}
	if e.submitHandler == nil {
		if err := e.validator.ValidateRequired(e.mode, e.values); err != nil {
			e.mu.Unlock()
			e.notifyError(ctx, err)
			return err
		}
	}

	e.submitting = true
	gen := e.generation
	req := &SubmitRequest{
		Resource: e.resource,
		Mode:     e.mode,
		RecordID: e.recordID,
		Values:   e.values.Clone(),
		Record:   e.record,
		Client:   e.client,
		Uploader: e.uploader,
	}
	handler := e.submitHandler
	if handler == nil {
		handler = defaultSubmit
	}
	e.mu.Unlock()

	err := handler(ctx, req)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		logging.From(ctx).Debug("discarding stale submit result",
			"resource", e.resource.Name,
			"mode", req.Mode)
		return goerr.Wrap(model.ErrStaleResponse, "form was closed during submit")
	}
	e.submitting = false

	if err != nil {
		for path, url := range req.uploaded {
			e.values[path] = url
		}
		e.mu.Unlock()
		err = goerr.Wrap(err, "failed to submit form",
			goerr.V(model.ResourceKey, e.resource.Name),
			goerr.V(model.FormModeKey, req.Mode),
			goerr.V(model.RecordIDKey, req.RecordID))
		e.notifyError(ctx, err)
		return err
	}

	e.open = false
	e.values = nil
	e.record = nil
	e.mu.Unlock()

	logging.From(ctx).Info("form submitted",
		"resource", e.resource.Name,
		"mode", req.Mode,
		"record_id", req.RecordID)

	if e.onSuccess != nil {
		e.onSuccess(ctx)
	}
	return nil
}

// defaultSubmit is the generic pipeline after validation
func defaultSubmit(ctx context.Context, req *SubmitRequest) error {
	endpoint := req.Resource.Endpoint

	switch req.Mode {
	case types.FormModeResetPassword:
		return req.Client.ResetPassword(ctx, endpoint, req.RecordID)
	case types.FormModeDelete:
		return req.Client.Delete(ctx, endpoint, req.RecordID)
	}

	resolved := make(map[string]any, len(req.Values))
	for path, v := range req.Values {
		resolved[path] = UnwrapOption(v)
	}
	for _, fd := range req.Resource.Fields {
		v, err := capabilityFor(fd.Kind)(ctx, req, fd, req.Values[fd.Path])
		if err != nil {
			return err
		}
		resolved[fd.Path] = v
	}

	payload := model.BuildPayload(req.Resource.Shape, resolved)
	if req.Mode == types.FormModeEdit {
		return req.Client.Update(ctx, endpoint, req.RecordID, payload)
	}
	return req.Client.Create(ctx, endpoint, payload)
}

func (e *FormEngine) notifyError(ctx context.Context, err error) {
	logging.From(ctx).Warn("form operation failed",
		"resource", e.resource.Name,
		"error", err)
	if e.onError != nil {
		e.onError(ctx, model.UserMessage(err), err)
	}
}

// Close ends the session. The state is discarded and any in-flight fetch or
// submit result is ignored when it arrives.
func (e *FormEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.generation++
	e.open = false
	e.submitting = false
	e.values = nil
	e.record = nil
}

// Values returns a copy of the current form state
func (e *FormEngine) Values() model.FormState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.values == nil {
		return model.FormState{}
	}
	return e.values.Clone()
}

// Record returns the record fetched on Open, nil in create mode
func (e *FormEngine) Record() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record
}

func (e *FormEngine) Submitting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitting
}

func (e *FormEngine) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

func (e *FormEngine) Mode() types.FormMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *FormEngine) RecordID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recordID
}

func (e *FormEngine) Resource() *config.Resource {
	return e.resource
}

// LoadRelationOptions reads one page of options for a relation field.
// HasMore is true while the page is not empty.
func (e *FormEngine) LoadRelationOptions(ctx context.Context, path, search string, page int) (*model.OptionPage, error) {
	fd, ok := e.resource.Field(path)
	if !ok || fd.Kind.Normalize() != types.FieldKindRelation || fd.Relation == nil {
		return nil, goerr.Wrap(model.ErrInvalidDescriptor, "field is not a relation",
			goerr.V(model.ResourceKey, e.resource.Name),
			goerr.V(model.FieldPathKey, path))
	}
	if page < 1 {
		page = 1
	}

	result, err := e.client.List(ctx, fd.Relation.Endpoint, model.ListQuery{Page: page, Search: search})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load relation options",
			goerr.V(model.FieldPathKey, path),
			goerr.V(model.EndpointKey, fd.Relation.Endpoint))
	}

	valueKey := fd.Relation.ValueKey
	if valueKey == "" {
		valueKey = "id"
	}

	options := make([]config.Option, 0, len(result.Items))
	for _, item := range result.Items {
		options = append(options, config.Option{
			Value: model.DotPathLookup(item, valueKey),
			Label: model.DisplayValue(model.DotPathLookup(item, fd.Relation.LabelKey)),
		})
	}

	return &model.OptionPage{
		Options:  options,
		HasMore:  len(result.Items) > 0,
		NextPage: page + 1,
	}, nil
}
