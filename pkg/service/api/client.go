package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fleetdesk/rentalconsole/pkg/domain/interfaces"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/utils/logging"
	"github.com/go-resty/resty/v2"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultTimeout bounds a single call to a resource endpoint
const DefaultTimeout = 30 * time.Second

// envelope is the response body shape shared by every collection endpoint
type envelope struct {
	Success    *bool           `json:"success"`
	Data       json.RawMessage `json:"data"`
	Pagination *pagination     `json:"pagination"`
	Detail     string          `json:"detail"`
	Message    string          `json:"message"`
}

type pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

func (e *envelope) failed() bool {
	return e.Success != nil && !*e.Success
}

func (e *envelope) detail() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Message
}

// Client talks to the console's REST back end
type Client struct {
	http *resty.Client
}

var _ interfaces.ResourceClient = &Client{}

type Option func(*Client)

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.http.SetHeader("User-Agent", ua)
	}
}

// New creates a client for baseURL. token is sent as a bearer credential when
// not empty.
func New(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	hc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if token != "" {
		hc.SetAuthToken(token)
	}

	c := &Client{http: hc}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func recordPath(endpoint, id string) string {
	return strings.TrimRight(endpoint, "/") + "/" + id
}

// do executes req and decodes the envelope. Requests are sent exactly once.
func (c *Client) do(ctx context.Context, method, path string, req *resty.Request) (*envelope, error) {
	resp, err := req.SetContext(ctx).Execute(method, path)
	if err != nil {
		return nil, goerr.Wrap(model.ErrFetch, "request failed",
			goerr.V(model.EndpointKey, path),
			goerr.V("method", method),
			goerr.V("cause", err.Error()))
	}

	var env envelope
	body := resp.Body()
	if len(body) > 0 {
		if err := json.Unmarshal(body, &env); err != nil && resp.IsSuccess() {
			return nil, goerr.Wrap(model.ErrFetch, "failed to decode response",
				goerr.V(model.EndpointKey, path),
				goerr.V(model.StatusCodeKey, resp.StatusCode()),
				goerr.V("cause", err.Error()))
		}
	}

	if !resp.IsSuccess() {
		return nil, goerr.Wrap(&model.APIError{StatusCode: resp.StatusCode(), Detail: env.detail()},
			"resource endpoint returned an error",
			goerr.V(model.EndpointKey, path),
			goerr.V("method", method),
			goerr.V(model.StatusCodeKey, resp.StatusCode()))
	}
	if env.failed() {
		return nil, goerr.Wrap(&model.APIError{StatusCode: resp.StatusCode(), Detail: env.detail()},
			"resource endpoint reported failure",
			goerr.V(model.EndpointKey, path),
			goerr.V("method", method))
	}

	logging.From(ctx).Debug("resource request done",
		"method", method,
		"path", path,
		"status", resp.StatusCode())

	return &env, nil
}

func (c *Client) List(ctx context.Context, endpoint string, query model.ListQuery) (*model.PageResult, error) {
	query = query.Normalize()

	params := map[string]string{}
	for k, v := range query.Filters {
		if v != "" {
			params[k] = v
		}
	}
	params["page"] = strconv.Itoa(query.Page)
	if query.Search != "" {
		params["q"] = query.Search
	}

	env, err := c.do(ctx, http.MethodGet, endpoint, c.http.R().SetQueryParams(params))
	if err != nil {
		return nil, err
	}

	var items []map[string]any
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return nil, goerr.Wrap(model.ErrFetch, "list data is not an array",
				goerr.V(model.EndpointKey, endpoint),
				goerr.V("cause", err.Error()))
		}
	}
	if items == nil {
		items = []map[string]any{}
	}

	result := &model.PageResult{
		Items:      items,
		TotalCount: len(items),
		Page:       query.Page,
		PerPage:    len(items),
	}
	if p := env.Pagination; p != nil {
		result.TotalCount = p.Total
		if p.Page > 0 {
			result.Page = p.Page
		}
		if p.PerPage > 0 {
			result.PerPage = p.PerPage
		}
	}
	return result, nil
}

func (c *Client) Get(ctx context.Context, endpoint, id string) (map[string]any, error) {
	path := recordPath(endpoint, id)
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, goerr.Wrap(model.ErrFetch, "request failed",
			goerr.V(model.EndpointKey, path),
			goerr.V("cause", err.Error()))
	}

	var body map[string]any
	if raw := resp.Body(); len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil && resp.IsSuccess() {
			return nil, goerr.Wrap(model.ErrFetch, "failed to decode record",
				goerr.V(model.EndpointKey, path),
				goerr.V("cause", err.Error()))
		}
	}

	if !resp.IsSuccess() {
		return nil, goerr.Wrap(&model.APIError{StatusCode: resp.StatusCode(), Detail: detailOf(body)},
			"failed to get record",
			goerr.V(model.EndpointKey, path),
			goerr.V(model.StatusCodeKey, resp.StatusCode()))
	}
	if ok, exists := body["success"].(bool); exists && !ok {
		return nil, goerr.Wrap(&model.APIError{StatusCode: resp.StatusCode(), Detail: detailOf(body)},
			"record endpoint reported failure",
			goerr.V(model.EndpointKey, path))
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, nil
}

func detailOf(body map[string]any) string {
	if s, ok := body["detail"].(string); ok && s != "" {
		return s
	}
	if s, ok := body["message"].(string); ok {
		return s
	}
	return ""
}

func (c *Client) Create(ctx context.Context, endpoint string, payload map[string]any) error {
	req := c.http.R().SetHeader("Content-Type", "application/json").SetBody(payload)
	_, err := c.do(ctx, http.MethodPost, endpoint, req)
	return err
}

func (c *Client) Update(ctx context.Context, endpoint, id string, payload map[string]any) error {
	req := c.http.R().SetHeader("Content-Type", "application/json").SetBody(payload)
	_, err := c.do(ctx, http.MethodPut, recordPath(endpoint, id), req)
	return err
}

func (c *Client) Delete(ctx context.Context, endpoint, id string) error {
	_, err := c.do(ctx, http.MethodDelete, recordPath(endpoint, id), c.http.R())
	return err
}

func (c *Client) ResetPassword(ctx context.Context, endpoint, id string) error {
	_, err := c.do(ctx, http.MethodPost, recordPath(endpoint, id)+"/reset_password", c.http.R())
	return err
}
