package usecase

import (
	"context"
	"sync"

	"github.com/fleetdesk/rentalconsole/pkg/domain/interfaces"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model/config"
	"github.com/fleetdesk/rentalconsole/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// ListEngine fetches pages of a collection and remembers the current
// page/filter/search combination so that a reload signal can repeat it
type ListEngine struct {
	client interfaces.ResourceClient

	mu         sync.Mutex
	generation uint64
	endpoint   string
	query      model.ListQuery
	reload     bool
	last       *model.PageResult
}

func NewListEngine(client interfaces.ResourceClient) *ListEngine {
	return &ListEngine{client: client}
}

// Fetch reads one page and makes it the current combination. On failure the
// caller should render an empty state; the last good page is kept.
func (e *ListEngine) Fetch(ctx context.Context, endpoint string, query model.ListQuery) (*model.PageResult, error) {
	query = query.Normalize()

	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.endpoint = endpoint
	e.query = query
	e.mu.Unlock()

	return e.fetch(ctx, gen, endpoint, query)
}

func (e *ListEngine) fetch(ctx context.Context, gen uint64, endpoint string, query model.ListQuery) (*model.PageResult, error) {
	result, err := e.client.List(ctx, endpoint, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch page",
			goerr.V(model.EndpointKey, endpoint),
			goerr.V("page", query.Page))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen == e.generation {
		e.last = result
	} else {
		logging.From(ctx).Debug("newer list fetch in progress, not caching page",
			"endpoint", endpoint,
			"page", query.Page)
	}
	return result, nil
}

// SetReload sets the reload signal. A flip re-fetches the current
// combination exactly once and returns true; setting the same value again
// does nothing.
func (e *ListEngine) SetReload(ctx context.Context, flag bool) (*model.PageResult, bool, error) {
	e.mu.Lock()
	if e.reload == flag {
		e.mu.Unlock()
		return nil, false, nil
	}
	e.reload = flag
	if e.endpoint == "" {
		e.mu.Unlock()
		return nil, false, nil
	}
	e.generation++
	gen := e.generation
	endpoint, query := e.endpoint, e.query
	e.mu.Unlock()

	result, err := e.fetch(ctx, gen, endpoint, query)
	if err != nil {
		return nil, true, err
	}
	return result, true, nil
}

// Reload flips the reload signal, e.g. after a successful submit
func (e *ListEngine) Reload(ctx context.Context) (*model.PageResult, error) {
	e.mu.Lock()
	flag := !e.reload
	e.mu.Unlock()

	result, _, err := e.SetReload(ctx, flag)
	return result, err
}

// Current returns the endpoint and query of the last Fetch
func (e *ListEngine) Current() (string, model.ListQuery) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.endpoint, e.query
}

// Last returns the most recent page of the current combination
func (e *ListEngine) Last() *model.PageResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Project renders page as table rows for columns
func Project(page *model.PageResult, columns []config.Column) [][]string {
	return page.Project(columns)
}
