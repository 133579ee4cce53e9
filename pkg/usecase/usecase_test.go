package usecase_test

import (
	"context"
	"testing"

	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model/config"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
	"github.com/fleetdesk/rentalconsole/pkg/repository/memory"
	"github.com/fleetdesk/rentalconsole/pkg/service/upload"
	"github.com/fleetdesk/rentalconsole/pkg/usecase"
	"github.com/fleetdesk/rentalconsole/pkg/utils/async"
	"github.com/m-mizutani/gt"
)

func newUseCases(t *testing.T, client *fakeClient) (*usecase.UseCases, *upload.Memory, *upload.Memory) {
	t.Helper()
	car := carResource()
	car.Columns = []config.Column{
		{Key: "data.plate", Label: "Plate"},
		{Key: "car_type.car_name", Label: "Type"},
	}
	catalog := &config.Catalog{Resources: []*config.Resource{car, driverResource(), serviceResource()}}

	def := upload.NewMemory("https://assets.test")
	drv := upload.NewMemory("https://drivers.test")
	repo := memory.New()
	t.Cleanup(func() { _ = repo.Close() })

	uc := usecase.New(repo, client,
		usecase.WithCatalog(catalog),
		usecase.WithUploadTargets(upload.NewTargets(def).With(upload.TargetDriver, drv)),
		usecase.WithFlagDispatcher(async.Inline),
	)
	return uc, def, drv
}

func TestUseCases_Resource(t *testing.T) {
	uc, _, _ := newUseCases(t, newFakeClient())

	res, err := uc.Resource("driver")
	gt.NoError(t, err).Required()
	gt.Value(t, res.Endpoint).Equal("/api/driver")

	_, err = uc.Resource("unknown")
	gt.Error(t, err).Is(model.ErrResourceNotFound)
	_, err = uc.Resource("Bad Name")
	gt.Error(t, err).Is(model.ErrResourceNotFound)
}

func TestUseCases_NewFormUsesResourceUploadTarget(t *testing.T) {
	client := newFakeClient()
	uc, def, drv := newUseCases(t, client)
	ctx := context.Background()

	form, err := uc.NewForm("driver")
	gt.NoError(t, err).Required()
	gt.NoError(t, form.Open(ctx, types.FormModeCreate, "")).Required()
	gt.NoError(t, form.SetValue("data.name", "Budi")).Required()
	gt.NoError(t, form.SetValue("data.pengalaman", "5")).Required()
	gt.NoError(t, form.SetValue("data.tgl_lahir", "1990-01-01")).Required()
	gt.NoError(t, form.SetValue("img_url", jpeg("budi.jpg"))).Required()
	gt.NoError(t, form.Submit(ctx)).Required()

	gt.Array(t, drv.Uploads()).Length(1)
	gt.Array(t, def.Uploads()).Length(0)

	posts := client.CallsOf("POST")
	gt.Array(t, posts).Length(1).Required()
	gt.String(t, posts[0].Payload["img_url"].(string)).HasPrefix("https://drivers.test/drivers/")
}

func TestUseCases_ListResource(t *testing.T) {
	client := newFakeClient()
	client.pages["/api/owner-cars"] = &model.PageResult{
		Items: []map[string]any{
			{"data": map[string]any{"plate": "B 1"}, "car_type": map[string]any{"car_name": "Avanza"}},
		},
		TotalCount: 21,
		Page:       1,
		PerPage:    10,
	}
	uc, _, _ := newUseCases(t, client)

	page, err := uc.ListResource(context.Background(), "owner-cars", model.ListQuery{})
	gt.NoError(t, err).Required()
	gt.Value(t, page.TotalPages).Equal(3)
	gt.Value(t, page.Columns).Equal([]string{"Plate", "Type"})
	gt.Value(t, page.Rows).Equal([][]string{{"B 1", "Avanza"}})
}

func TestResourceList_Reload(t *testing.T) {
	client := newFakeClient()
	client.pages["/api/owner-cars"] = &model.PageResult{
		Items: []map[string]any{{"data": map[string]any{"plate": "B 1"}}},
		Page:  2,
	}
	uc, _, _ := newUseCases(t, client)
	ctx := context.Background()

	list, err := uc.NewResourceList("owner-cars")
	gt.NoError(t, err).Required()
	gt.Value(t, list.Last()).Nil()

	_, err = list.Reload(ctx)
	gt.Error(t, err)
	gt.Array(t, client.CallsOf("LIST")).Length(0)

	query := model.ListQuery{Page: 2, Search: "B", Filters: map[string]string{"status": "ready"}}
	_, err = list.Fetch(ctx, query)
	gt.NoError(t, err).Required()

	page, err := list.Reload(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, page.Rows).Equal([][]string{{"B 1", ""}})

	calls := client.CallsOf("LIST")
	gt.Array(t, calls).Length(2).Required()
	gt.Value(t, calls[1].Query).Equal(calls[0].Query)
	gt.Value(t, calls[1].Query.Search).Equal("B")
	gt.Value(t, list.Last().Page).Equal(2)
}

func TestUseCases_RelationOptions(t *testing.T) {
	client := newFakeClient()
	client.pages["/api/car-types"] = &model.PageResult{
		Items: []map[string]any{{"id": float64(3), "car_name": "Innova"}},
	}
	uc, _, _ := newUseCases(t, client)

	page, err := uc.RelationOptions(context.Background(), "owner-cars", "car_type", "", 1)
	gt.NoError(t, err).Required()
	gt.Value(t, page.Options).Equal([]config.Option{{Value: float64(3), Label: "Innova"}})
}

func TestUseCases_NewTracker(t *testing.T) {
	uc, _, _ := newUseCases(t, newFakeClient())
	ctx := context.Background()

	tracker := uc.NewTracker()
	gt.NoError(t, tracker.Open(ctx, "1", &recordingSink{})).Required()
	tracker.Close(ctx)

	record, err := uc.Locations().Get(ctx, "1")
	gt.NoError(t, err).Required()
	gt.Value(t, record.Status).Equal(types.TrackingStatusInactive)
}
