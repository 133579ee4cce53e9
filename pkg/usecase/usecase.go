package usecase

import (
	"context"

	"github.com/fleetdesk/rentalconsole/pkg/domain/interfaces"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model/config"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
	"github.com/fleetdesk/rentalconsole/pkg/service/upload"
	"github.com/fleetdesk/rentalconsole/pkg/utils/async"
	"github.com/m-mizutani/goerr/v2"
)

type UseCases struct {
	repo       interfaces.Repository
	client     interfaces.ResourceClient
	catalog    *config.Catalog
	targets    *upload.Targets
	dispatcher async.Dispatcher
}

type Option func(*UseCases)

func WithCatalog(catalog *config.Catalog) Option {
	return func(uc *UseCases) {
		uc.catalog = catalog
	}
}

func WithUploadTargets(targets *upload.Targets) Option {
	return func(uc *UseCases) {
		uc.targets = targets
	}
}

// WithFlagDispatcher sets how trackers run activity flag writes
func WithFlagDispatcher(d async.Dispatcher) Option {
	return func(uc *UseCases) {
		uc.dispatcher = d
	}
}

func New(repo interfaces.Repository, client interfaces.ResourceClient, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:       repo,
		client:     client,
		catalog:    &config.Catalog{},
		dispatcher: async.Dispatch,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Catalog returns the configured resources
func (uc *UseCases) Catalog() *config.Catalog {
	return uc.catalog
}

// Resource looks up a resource by name
func (uc *UseCases) Resource(name types.ResourceName) (*config.Resource, error) {
	if err := name.Validate(); err != nil {
		return nil, goerr.Wrap(model.ErrResourceNotFound, "invalid resource name", goerr.V(model.ResourceKey, name))
	}
	res, ok := uc.catalog.Get(name)
	if !ok {
		return nil, goerr.Wrap(model.ErrResourceNotFound, "resource is not configured", goerr.V(model.ResourceKey, name))
	}
	return res, nil
}

// Uploader returns the upload target of a resource, nil when uploads are
// not configured
func (uc *UseCases) Uploader(res *config.Resource) interfaces.Uploader {
	if uc.targets == nil {
		return nil
	}
	return uc.targets.Get(res.UploadTarget)
}

// NewForm creates a form engine for the named resource, wired with the
// resource's specialized handlers when it has any
func (uc *UseCases) NewForm(name types.ResourceName, opts ...FormOption) (*FormEngine, error) {
	res, err := uc.Resource(name)
	if err != nil {
		return nil, err
	}

	custom, err := CustomFormOptions(res.Form)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid resource form", goerr.V(model.ResourceKey, name))
	}

	return NewFormEngine(res, uc.client, uc.Uploader(res), append(custom, opts...)...)
}

// ResourcePage is a page of records with its table rows
type ResourcePage struct {
	*model.PageResult
	TotalPages int        `json:"total_pages"`
	Columns    []string   `json:"columns"`
	Rows       [][]string `json:"rows"`
}

// ListResource fetches one page of the named resource and projects it onto
// the resource's columns
func (uc *UseCases) ListResource(ctx context.Context, name types.ResourceName, query model.ListQuery) (*ResourcePage, error) {
	list, err := uc.NewResourceList(name)
	if err != nil {
		return nil, err
	}
	return list.Fetch(ctx, query)
}

// ResourceList is the list view of one resource. It keeps the current
// page, filter and search so a successful submit can reload it.
type ResourceList struct {
	resource *config.Resource
	engine   *ListEngine
}

func (uc *UseCases) NewResourceList(name types.ResourceName) (*ResourceList, error) {
	res, err := uc.Resource(name)
	if err != nil {
		return nil, err
	}
	return &ResourceList{resource: res, engine: NewListEngine(uc.client)}, nil
}

// Fetch reads one page and makes its query the current one
func (l *ResourceList) Fetch(ctx context.Context, query model.ListQuery) (*ResourcePage, error) {
	page, err := l.engine.Fetch(ctx, l.resource.Endpoint, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list resource", goerr.V(model.ResourceKey, l.resource.Name))
	}
	return l.project(page), nil
}

// Reload re-fetches the current query once
func (l *ResourceList) Reload(ctx context.Context) (*ResourcePage, error) {
	page, err := l.engine.Reload(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to reload resource", goerr.V(model.ResourceKey, l.resource.Name))
	}
	if page == nil {
		return nil, goerr.New("list has not been fetched", goerr.V(model.ResourceKey, l.resource.Name))
	}
	return l.project(page), nil
}

// Last returns the most recent page, nil before the first Fetch
func (l *ResourceList) Last() *ResourcePage {
	page := l.engine.Last()
	if page == nil {
		return nil
	}
	return l.project(page)
}

func (l *ResourceList) project(page *model.PageResult) *ResourcePage {
	labels := make([]string, len(l.resource.Columns))
	for i, c := range l.resource.Columns {
		labels[i] = c.Label
	}
	return &ResourcePage{
		PageResult: page,
		TotalPages: page.TotalPages(),
		Columns:    labels,
		Rows:       Project(page, l.resource.Columns),
	}
}

// RelationOptions loads one page of options for a relation field
func (uc *UseCases) RelationOptions(ctx context.Context, name types.ResourceName, path, search string, page int) (*model.OptionPage, error) {
	res, err := uc.Resource(name)
	if err != nil {
		return nil, err
	}
	engine, err := NewFormEngine(res, uc.client, nil)
	if err != nil {
		return nil, err
	}
	return engine.LoadRelationOptions(ctx, path, search, page)
}

// NewTracker creates a tracker over the configured location store
func (uc *UseCases) NewTracker() *Tracker {
	return NewTracker(uc.repo.Location(), WithDispatcher(uc.dispatcher))
}

// Locations exposes the location store, e.g. for a device simulator
func (uc *UseCases) Locations() interfaces.LocationRepository {
	return uc.repo.Location()
}
