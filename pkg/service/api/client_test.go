package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/service/api"
	"github.com/m-mizutani/gt"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Auth   string
	Body   string
}

func newServer(t *testing.T, status int, response string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		query := map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		requests = append(requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  query,
			Auth:   r.Header.Get("Authorization"),
			Body:   string(body),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestClient_List(t *testing.T) {
	srv, reqs := newServer(t, http.StatusOK, `{
		"success": true,
		"data": [{"id": 1, "car_type": {"car_name": "Avanza"}}, {"id": 2}],
		"pagination": {"page": 2, "per_page": 2, "total": 7}
	}`)
	client := api.New(srv.URL, "secret-token", time.Second)

	page, err := client.List(context.Background(), "/api/owner-cars", model.ListQuery{
		Page:    2,
		Search:  "ava",
		Filters: map[string]string{"status": "active", "empty": ""},
	})
	gt.NoError(t, err).Required()

	gt.Array(t, page.Items).Length(2)
	gt.Value(t, page.TotalCount).Equal(7)
	gt.Value(t, page.Page).Equal(2)
	gt.Value(t, page.PerPage).Equal(2)
	gt.Value(t, page.TotalPages()).Equal(4)

	gt.Array(t, *reqs).Length(1).Required()
	req := (*reqs)[0]
	gt.Value(t, req.Method).Equal(http.MethodGet)
	gt.Value(t, req.Path).Equal("/api/owner-cars")
	gt.Value(t, req.Query["page"]).Equal("2")
	gt.Value(t, req.Query["q"]).Equal("ava")
	gt.Value(t, req.Query["status"]).Equal("active")
	_, hasEmpty := req.Query["empty"]
	gt.Bool(t, hasEmpty).False()
	gt.Value(t, req.Auth).Equal("Bearer secret-token")
}

func TestClient_ListWithoutPagination(t *testing.T) {
	srv, reqs := newServer(t, http.StatusOK, `{"success": true, "data": [{"id": 1}]}`)
	client := api.New(srv.URL, "", time.Second)

	page, err := client.List(context.Background(), "/api/features", model.ListQuery{})
	gt.NoError(t, err).Required()
	gt.Value(t, page.TotalCount).Equal(1)
	gt.Value(t, page.Page).Equal(1)
	gt.Value(t, (*reqs)[0].Query["page"]).Equal("1")
	gt.Value(t, (*reqs)[0].Auth).Equal("")
}

func TestClient_ListSuccessFalse(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"success": false, "detail": "bad filter"}`)
	client := api.New(srv.URL, "", time.Second)

	_, err := client.List(context.Background(), "/api/orders", model.ListQuery{})
	gt.Error(t, err).Is(model.ErrFetch)
	gt.Value(t, model.UserMessage(err)).Equal("bad filter")
}

func TestClient_Get(t *testing.T) {
	srv, reqs := newServer(t, http.StatusOK, `{"success": true, "data": {"name": "Budi", "pengalaman": 3}}`)
	client := api.New(srv.URL, "", time.Second)

	record, err := client.Get(context.Background(), "/api/driver/", "42")
	gt.NoError(t, err).Required()
	gt.Value(t, (*reqs)[0].Path).Equal("/api/driver/42")
	gt.Value(t, model.DotPathLookup(record, "data.name")).Equal("Budi")
}

func TestClient_GetNotFound(t *testing.T) {
	srv, _ := newServer(t, http.StatusNotFound, `{"message": "driver not found"}`)
	client := api.New(srv.URL, "", time.Second)

	_, err := client.Get(context.Background(), "/api/driver", "404")
	gt.Error(t, err).Is(model.ErrFetch)

	var apiErr *model.APIError
	gt.Bool(t, errors.As(err, &apiErr)).True()
	gt.Value(t, apiErr.StatusCode).Equal(http.StatusNotFound)
	gt.Value(t, apiErr.Detail).Equal("driver not found")
}

func TestClient_Mutations(t *testing.T) {
	testCases := []struct {
		name   string
		call   func(c *api.Client) error
		method string
		path   string
		body   map[string]any
	}{
		{
			name: "create posts JSON payload",
			call: func(c *api.Client) error {
				return c.Create(context.Background(), "/api/driver", map[string]any{"name": "Budi"})
			},
			method: http.MethodPost,
			path:   "/api/driver",
			body:   map[string]any{"name": "Budi"},
		},
		{
			name: "update puts to record path",
			call: func(c *api.Client) error {
				return c.Update(context.Background(), "/api/driver", "42", map[string]any{"name": "Budi"})
			},
			method: http.MethodPut,
			path:   "/api/driver/42",
			body:   map[string]any{"name": "Budi"},
		},
		{
			name: "delete sends no body",
			call: func(c *api.Client) error {
				return c.Delete(context.Background(), "/api/driver", "42")
			},
			method: http.MethodDelete,
			path:   "/api/driver/42",
		},
		{
			name: "reset password posts without body",
			call: func(c *api.Client) error {
				return c.ResetPassword(context.Background(), "/api/owner", "7")
			},
			method: http.MethodPost,
			path:   "/api/owner/7/reset_password",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv, reqs := newServer(t, http.StatusOK, `{"success": true}`)
			client := api.New(srv.URL, "", time.Second)

			gt.NoError(t, tc.call(client)).Required()
			gt.Array(t, *reqs).Length(1).Required()

			req := (*reqs)[0]
			gt.Value(t, req.Method).Equal(tc.method)
			gt.Value(t, req.Path).Equal(tc.path)
			if tc.body == nil {
				gt.Value(t, req.Body).Equal("")
				return
			}
			var body map[string]any
			gt.NoError(t, json.Unmarshal([]byte(req.Body), &body)).Required()
			gt.Value(t, body).Equal(tc.body)
		})
	}
}

func TestClient_MutationIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail": "database unavailable"}`))
	}))
	defer srv.Close()

	client := api.New(srv.URL, "", time.Second)
	err := client.Create(context.Background(), "/api/orders", map[string]any{"id": 1})
	gt.Error(t, err).Is(model.ErrFetch)
	gt.Value(t, calls.Load()).Equal(int32(1))
	gt.Value(t, model.UserMessage(err)).Equal("database unavailable")
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := api.New(url, "", time.Second)
	err := client.Delete(context.Background(), "/api/driver", "1")
	gt.Error(t, err).Is(model.ErrFetch)
	gt.Value(t, model.UserMessage(err)).Equal("failed to load data, please try again")
}
