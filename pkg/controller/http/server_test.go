package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	server "github.com/fleetdesk/rentalconsole/pkg/controller/http"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model/config"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
	"github.com/fleetdesk/rentalconsole/pkg/repository/memory"
	"github.com/fleetdesk/rentalconsole/pkg/service/api"
	"github.com/fleetdesk/rentalconsole/pkg/service/upload"
	"github.com/fleetdesk/rentalconsole/pkg/usecase"
	"github.com/fleetdesk/rentalconsole/pkg/utils/async"
	"github.com/m-mizutani/gt"
)

type upstreamRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

// upstream fakes the rental REST API
type upstream struct {
	mu       sync.Mutex
	requests []upstreamRequest
	srv      *httptest.Server
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &body)
		}
		u.mu.Lock()
		u.requests = append(u.requests, upstreamRequest{Method: r.Method, Path: r.URL.Path, Body: body})
		u.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/driver":
			_, _ = w.Write([]byte(`{"success":true,"data":[{"id":1,"name":"Budi","car":{"plate":"B 1"}}],"pagination":{"page":1,"per_page":10,"total":1}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/driver/1":
			_, _ = w.Write([]byte(`{"success":true,"data":{"name":"Budi","pengalaman":5,"tgl_lahir":"1990-01-01","img_url":"https://cdn.test/old.jpg"}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/car-types":
			_, _ = w.Write([]byte(`{"success":true,"data":[{"id":7,"car_name":"Avanza"}]}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/api/driver/404":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"driver not found"}`))
		default:
			_, _ = w.Write([]byte(`{"success":true}`))
		}
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) Requests() []upstreamRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]upstreamRequest(nil), u.requests...)
}

func catalog() *config.Catalog {
	return &config.Catalog{Resources: []*config.Resource{
		{
			Name:         "driver",
			Title:        "Drivers",
			Endpoint:     "/api/driver",
			Form:         usecase.FormDriver,
			UploadTarget: upload.TargetDriver,
			Fields: []config.FieldDescriptor{
				{Path: "data.name", Label: "Name", Required: true},
				{Path: "data.pengalaman", Label: "Experience", Kind: types.FieldKindNumber, Required: true},
				{Path: "data.tgl_lahir", Label: "Birth date", Required: true},
				{Path: "img_url", Label: "Photo", Kind: types.FieldKindFile, UploadLocation: "drivers"},
			},
			Columns: []config.Column{{Key: "name", Label: "Name"}, {Key: "car.plate", Label: "Plate"}},
		},
		{
			Name:     "owner-cars",
			Title:    "Owner cars",
			Endpoint: "/api/owner-cars",
			Fields: []config.FieldDescriptor{
				{Path: "plate", Label: "Plate", Required: true},
				{
					Path:     "car_type",
					Label:    "Car type",
					Kind:     types.FieldKindRelation,
					Required: true,
					Relation: &config.RelationSource{Endpoint: "/api/car-types", LabelKey: "car_name"},
				},
			},
		},
	}}
}

type fixture struct {
	upstream *upstream
	drivers  *upload.Memory
	repo     *memory.Memory
	handler  *server.Server
	console  *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	up := newUpstream(t)
	repo := memory.New()
	t.Cleanup(func() { _ = repo.Close() })

	drivers := upload.NewMemory("https://drivers.test")
	uc := usecase.New(repo, api.New(up.srv.URL, "token", time.Second),
		usecase.WithCatalog(catalog()),
		usecase.WithUploadTargets(upload.NewTargets(upload.NewMemory("https://assets.test")).With(upload.TargetDriver, drivers)),
		usecase.WithFlagDispatcher(async.Inline),
	)

	handler := server.New(uc)
	console := httptest.NewServer(handler)
	t.Cleanup(console.Close)

	return &fixture{upstream: up, drivers: drivers, repo: repo, handler: handler, console: console}
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(&body)).Required()
	return body
}

func TestServer_ListResources(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.console.URL + "/api/resources")
	gt.NoError(t, err).Required()
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

	body := decode(t, resp)
	data := body["data"].([]any)
	gt.Array(t, data).Length(2).Required()
	driver := data[0].(map[string]any)
	gt.Value(t, driver["name"]).Equal(any("driver"))
	gt.Value(t, driver["shape"]).Equal(any("flat"))
	fields := driver["fields"].([]any)
	gt.Value(t, fields[3].(map[string]any)["upload_location"]).Equal(any("drivers"))
}

func TestServer_ListRecords(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.console.URL + "/api/resources/driver/records?page=1&q=bu&status=active")
	gt.NoError(t, err).Required()
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

	body := decode(t, resp)
	data := body["data"].(map[string]any)
	gt.Value(t, data["total_count"]).Equal(any(float64(1)))
	gt.Value(t, data["rows"]).Equal(any([]any{[]any{"Budi", "B 1"}}))

	resp, err = http.Get(f.console.URL + "/api/resources/unknown/records")
	gt.NoError(t, err).Required()
	gt.Value(t, resp.StatusCode).Equal(http.StatusNotFound)
	_ = resp.Body.Close()
}

func TestServer_CreateDriverMultipart(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	gt.NoError(t, mw.WriteField("data.name", "Budi")).Required()
	gt.NoError(t, mw.WriteField("data.pengalaman", "5")).Required()
	gt.NoError(t, mw.WriteField("data.tgl_lahir", "1990-01-01")).Required()
	part, err := mw.CreateFormFile("img_url", "budi.jpg")
	gt.NoError(t, err).Required()
	_, err = part.Write([]byte("jpeg"))
	gt.NoError(t, err).Required()
	gt.NoError(t, mw.Close()).Required()

	resp, err := http.Post(f.console.URL+"/api/resources/driver/records", mw.FormDataContentType(), &buf)
	gt.NoError(t, err).Required()
	gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)
	_ = resp.Body.Close()

	uploads := f.drivers.Uploads()
	gt.Array(t, uploads).Length(1).Required()

	reqs := f.upstream.Requests()
	gt.Array(t, reqs).Length(1).Required()
	gt.Value(t, reqs[0].Method).Equal(http.MethodPost)
	gt.Value(t, reqs[0].Path).Equal("/api/driver")
	gt.Value(t, reqs[0].Body["img_url"]).Equal(any(f.drivers.PublicURL(uploads[0].Path)))
	gt.Value(t, reqs[0].Body["name"]).Equal(any("Budi"))
}

func TestServer_CreateJSONWithRelation(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.console.URL+"/api/resources/owner-cars/records", "application/json",
		strings.NewReader(`{"plate":"B 2","car_type":{"value":7,"label":"Avanza"}}`))
	gt.NoError(t, err).Required()
	gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)
	_ = resp.Body.Close()

	reqs := f.upstream.Requests()
	gt.Array(t, reqs).Length(1).Required()
	gt.Value(t, reqs[0].Body).Equal(map[string]any{"plate": "B 2", "car_type": float64(7)})
}

func TestServer_CreateValidationError(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.console.URL+"/api/resources/owner-cars/records", "application/json",
		strings.NewReader(`{"plate":"B 2"}`))
	gt.NoError(t, err).Required()
	gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)

	body := decode(t, resp)
	gt.Value(t, body["success"]).Equal(any(false))
	gt.String(t, body["detail"].(string)).Contains("car_type")
	gt.Array(t, f.upstream.Requests()).Length(0)
}

func TestServer_DeleteRecord(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodDelete, f.console.URL+"/api/resources/driver/records/42", nil)
	gt.NoError(t, err).Required()
	resp, err := http.DefaultClient.Do(req)
	gt.NoError(t, err).Required()
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	_ = resp.Body.Close()

	var deletes []upstreamRequest
	for _, r := range f.upstream.Requests() {
		if r.Method == http.MethodDelete {
			deletes = append(deletes, r)
		}
	}
	gt.Array(t, deletes).Length(1).Required()
	gt.Value(t, deletes[0].Path).Equal("/api/driver/42")
	gt.Value(t, len(deletes[0].Body)).Equal(0)
}

func TestServer_DeleteUpstreamError(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodDelete, f.console.URL+"/api/resources/driver/records/404", nil)
	gt.NoError(t, err).Required()
	resp, err := http.DefaultClient.Do(req)
	gt.NoError(t, err).Required()
	gt.Value(t, resp.StatusCode).Equal(http.StatusNotFound)

	body := decode(t, resp)
	gt.Value(t, body["detail"]).Equal(any("driver not found"))
}

func TestServer_ResetPassword(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.console.URL+"/api/resources/driver/records/9/reset_password", "application/json", nil)
	gt.NoError(t, err).Required()
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	_ = resp.Body.Close()

	reqs := f.upstream.Requests()
	last := reqs[len(reqs)-1]
	gt.Value(t, last.Method).Equal(http.MethodPost)
	gt.Value(t, last.Path).Equal("/api/driver/9/reset_password")
}

func TestServer_GetRecord(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.console.URL + "/api/resources/driver/records/1")
	gt.NoError(t, err).Required()
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

	data := decode(t, resp)["data"].(map[string]any)
	gt.Value(t, data["data.name"]).Equal(any("Budi"))
	gt.Value(t, data["data.pengalaman"]).Equal(any(float64(5)))
}

func TestServer_RelationOptions(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.console.URL + "/api/resources/owner-cars/relations/car_type?page=1")
	gt.NoError(t, err).Required()
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

	data := decode(t, resp)["data"].(map[string]any)
	gt.Value(t, data["options"]).Equal(any([]any{map[string]any{"value": float64(7), "label": "Avanza"}}))
	gt.Value(t, data["has_more"]).Equal(any(true))
}

func TestServer_Tracking(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(f.console.URL, "http") + "/api/tracking/1"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	gt.NoError(t, err).Required()

	var msg map[string]any
	gt.NoError(t, wsjson.Read(ctx, conn, &msg)).Required()
	gt.Value(t, msg["type"]).Equal(any("state"))
	gt.Value(t, msg["state"]).Equal(any("active"))

	gt.NoError(t, f.repo.Location().Put(ctx, "1", &model.LocationRecord{
		Status:    types.TrackingStatusActive,
		Latitude:  "-2.5",
		Longitude: "118.0",
	})).Required()

	gt.NoError(t, wsjson.Read(ctx, conn, &msg)).Required()
	gt.Value(t, msg["type"]).Equal(any("event"))
	event := msg["event"].(map[string]any)
	gt.Value(t, event["type"]).Equal(any("fix"))
	gt.Value(t, event["first"]).Equal(any(true))

	_ = conn.Close(websocket.StatusNormalClosure, "")

	deadline := time.Now().Add(2 * time.Second)
	for {
		record, err := f.repo.Location().Get(ctx, "1")
		gt.NoError(t, err).Required()
		if record.Status == types.TrackingStatusInactive {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("activity flag was not reset")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func dialTracking(t *testing.T, ctx context.Context, f *fixture, id string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(f.console.URL, "http") + "/api/tracking/" + id
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	gt.NoError(t, err).Required()

	var msg map[string]any
	gt.NoError(t, wsjson.Read(ctx, conn, &msg)).Required()
	gt.Value(t, msg["state"]).Equal(any("active"))
	return conn
}

func TestServer_DrainTracking(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTracking(t, ctx, f, "2")

	shortCtx, shortCancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer shortCancel()
	gt.Error(t, f.handler.DrainTracking(shortCtx))

	resp, err := http.Get(f.console.URL + "/api/tracking/3")
	gt.NoError(t, err).Required()
	gt.Value(t, resp.StatusCode).Equal(http.StatusServiceUnavailable)
	_ = resp.Body.Close()

	_ = conn.Close(websocket.StatusNormalClosure, "")
	gt.NoError(t, f.handler.DrainTracking(ctx)).Required()

	record, err := f.repo.Location().Get(ctx, "2")
	gt.NoError(t, err).Required()
	gt.Value(t, record.Status).Equal(types.TrackingStatusInactive)
}

func TestServer_TrackingListenerEnds(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTracking(t, ctx, f, "4")
	defer conn.CloseNow() //nolint:errcheck

	// closing the repository ends every open stream
	gt.NoError(t, f.repo.Close()).Required()

	var msg map[string]any
	gt.NoError(t, wsjson.Read(ctx, conn, &msg)).Required()
	gt.Value(t, msg["type"]).Equal(any("error"))

	_, _, err := conn.Read(ctx)
	gt.Value(t, websocket.CloseStatus(err)).Equal(websocket.StatusInternalError)

	gt.NoError(t, f.handler.DrainTracking(ctx)).Required()
	record, err := f.repo.Location().Get(ctx, "4")
	gt.NoError(t, err).Required()
	gt.Value(t, record.Status).Equal(types.TrackingStatusInactive)
}

func TestServer_TrackingInvalidID(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.console.URL + "/api/tracking/a$b")
	gt.NoError(t, err).Required()
	gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
	_ = resp.Body.Close()
}
