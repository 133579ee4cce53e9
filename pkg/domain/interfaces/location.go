package interfaces

import (
	"context"

	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
)

// LocationRepository is the realtime key-value store holding one record per
// tracked entity at owner_car/{id}
type LocationRepository interface {
	// Get returns the current record. A missing record is returned as nil
	// without error.
	Get(ctx context.Context, id types.EntityID) (*model.LocationRecord, error)

	// Put replaces the whole record (device or simulator side)
	Put(ctx context.Context, id types.EntityID, record *model.LocationRecord) error

	// UpdateStatus merges the activity flag into the record, creating it if
	// needed
	UpdateStatus(ctx context.Context, id types.EntityID, status types.TrackingStatus) error

	// Subscribe attaches a change listener. The returned stream yields the
	// current record first and then the full record on every change. The
	// stream ends when ctx is cancelled or Close is called.
	Subscribe(ctx context.Context, id types.EntityID) (LocationStream, error)
}

// LocationStream delivers record snapshots of one entity. A nil record means
// the record does not exist.
type LocationStream interface {
	// Next blocks until the next snapshot. It returns model.ErrStreamClosed
	// once the stream is closed or its context is done.
	Next() (*model.LocationRecord, error)

	// Close detaches the listener. It must not be called concurrently with
	// Next.
	Close() error
}

// Repository groups the persistence backends of the console
type Repository interface {
	Location() LocationRepository
	Close() error
}
