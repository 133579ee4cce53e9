package interfaces

import (
	"context"

	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
)

// ResourceClient performs CRUD calls against a collection endpoint such as
// "/api/driver". Implementations never retry mutating calls.
type ResourceClient interface {
	// List reads one page of the collection
	List(ctx context.Context, endpoint string, query model.ListQuery) (*model.PageResult, error)

	// Get reads {endpoint}/{id} and returns the whole response body, so that
	// descriptor paths such as "data.name" resolve inside the data wrapper
	Get(ctx context.Context, endpoint, id string) (map[string]any, error)

	// Create sends POST {endpoint}
	Create(ctx context.Context, endpoint string, payload map[string]any) error

	// Update sends PUT {endpoint}/{id}
	Update(ctx context.Context, endpoint, id string, payload map[string]any) error

	// Delete sends DELETE {endpoint}/{id} without a body
	Delete(ctx context.Context, endpoint, id string) error

	// ResetPassword sends POST {endpoint}/{id}/reset_password without a body
	ResetPassword(ctx context.Context, endpoint, id string) error
}
