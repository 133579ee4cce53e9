package usecase_test

import (
	"context"
	"sync"

	"github.com/fleetdesk/rentalconsole/pkg/domain/interfaces"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
)

// fakeCall is one call made to fakeClient
type fakeCall struct {
	Method   string
	Endpoint string
	ID       string
	Payload  map[string]any
	Query    model.ListQuery
}

// fakeClient records calls. Responses and errors are keyed by method.
type fakeClient struct {
	mu      sync.Mutex
	calls   []fakeCall
	records map[string]map[string]any
	pages   map[string]*model.PageResult
	errs    map[string]error

	// block, when set, is waited on by Get and mutating calls
	block chan struct{}
}

var _ interfaces.ResourceClient = &fakeClient{}

func newFakeClient() *fakeClient {
	return &fakeClient{
		records: map[string]map[string]any{},
		pages:   map[string]*model.PageResult{},
		errs:    map[string]error{},
	}
}

func (c *fakeClient) record(call fakeCall) error {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	err := c.errs[call.Method]
	block := c.block
	c.mu.Unlock()

	if block != nil {
		<-block
	}
	return err
}

func (c *fakeClient) setBlock(ch chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block = ch
}

// release unblocks waiting calls and stops blocking new ones
func (c *fakeClient) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.block != nil {
		close(c.block)
		c.block = nil
	}
}

func (c *fakeClient) Calls() []fakeCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]fakeCall(nil), c.calls...)
}

func (c *fakeClient) CallsOf(method string) []fakeCall {
	var out []fakeCall
	for _, call := range c.Calls() {
		if call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

func (c *fakeClient) List(ctx context.Context, endpoint string, query model.ListQuery) (*model.PageResult, error) {
	c.mu.Lock()
	c.calls = append(c.calls, fakeCall{Method: "LIST", Endpoint: endpoint, Query: query})
	err := c.errs["LIST"]
	page := c.pages[endpoint]
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if page == nil {
		return &model.PageResult{Items: []map[string]any{}, Page: query.Page}, nil
	}
	return page, nil
}

func (c *fakeClient) Get(ctx context.Context, endpoint, id string) (map[string]any, error) {
	if err := c.record(fakeCall{Method: "GET", Endpoint: endpoint, ID: id}); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.records[endpoint+"/"+id]; ok {
		return r, nil
	}
	return map[string]any{}, nil
}

func (c *fakeClient) Create(ctx context.Context, endpoint string, payload map[string]any) error {
	return c.record(fakeCall{Method: "POST", Endpoint: endpoint, Payload: payload})
}

func (c *fakeClient) Update(ctx context.Context, endpoint, id string, payload map[string]any) error {
	return c.record(fakeCall{Method: "PUT", Endpoint: endpoint, ID: id, Payload: payload})
}

func (c *fakeClient) Delete(ctx context.Context, endpoint, id string) error {
	return c.record(fakeCall{Method: "DELETE", Endpoint: endpoint, ID: id})
}

func (c *fakeClient) ResetPassword(ctx context.Context, endpoint, id string) error {
	return c.record(fakeCall{Method: "RESET", Endpoint: endpoint, ID: id})
}
