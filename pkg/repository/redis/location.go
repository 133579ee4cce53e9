package redis

import (
	"context"

	"github.com/fleetdesk/rentalconsole/pkg/domain/interfaces"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
	"github.com/fleetdesk/rentalconsole/pkg/utils/safe"
	"github.com/go-redis/redis/v8"
	"github.com/m-mizutani/goerr/v2"
)

const (
	fieldStatus    = "status"
	fieldLatitude  = "latitude"
	fieldLongitude = "longitude"
)

type locationRepository struct {
	client    *redis.Client
	keyPrefix string
}

func newLocationRepository(client *redis.Client) *locationRepository {
	return &locationRepository{client: client}
}

func (r *locationRepository) key(id types.EntityID) string {
	if r.keyPrefix != "" {
		return r.keyPrefix + ":owner_car:" + id.String()
	}
	return "owner_car:" + id.String()
}

func hashToRecord(values map[string]string) *model.LocationRecord {
	if len(values) == 0 {
		return nil
	}
	return &model.LocationRecord{
		Status:    types.TrackingStatus(values[fieldStatus]),
		Latitude:  values[fieldLatitude],
		Longitude: values[fieldLongitude],
	}
}

func (r *locationRepository) read(ctx context.Context, id types.EntityID) (*model.LocationRecord, error) {
	values, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read location hash", goerr.V(model.EntityIDKey, id))
	}
	return hashToRecord(values), nil
}

func (r *locationRepository) Get(ctx context.Context, id types.EntityID) (*model.LocationRecord, error) {
	if err := id.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid entity ID")
	}
	return r.read(ctx, id)
}

// write applies fields and announces the change atomically
func (r *locationRepository) write(ctx context.Context, id types.EntityID, replace bool, fields ...any) error {
	key := r.key(id)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if replace {
			pipe.Del(ctx, key)
		}
		pipe.HSet(ctx, key, fields...)
		pipe.Publish(ctx, key, "changed")
		return nil
	})
	return err
}

func (r *locationRepository) Put(ctx context.Context, id types.EntityID, record *model.LocationRecord) error {
	if err := id.Validate(); err != nil {
		return goerr.Wrap(err, "invalid entity ID")
	}
	if record == nil {
		return goerr.New("location record is nil", goerr.V(model.EntityIDKey, id))
	}

	err := r.write(ctx, id, true,
		fieldStatus, record.Status.String(),
		fieldLatitude, record.Latitude,
		fieldLongitude, record.Longitude,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to put location", goerr.V(model.EntityIDKey, id))
	}
	return nil
}

func (r *locationRepository) UpdateStatus(ctx context.Context, id types.EntityID, status types.TrackingStatus) error {
	if err := id.Validate(); err != nil {
		return goerr.Wrap(err, "invalid entity ID")
	}

	if err := r.write(ctx, id, false, fieldStatus, status.String()); err != nil {
		return goerr.Wrap(err, "failed to update tracking status",
			goerr.V(model.EntityIDKey, id),
			goerr.V("status", status))
	}
	return nil
}

func (r *locationRepository) Subscribe(ctx context.Context, id types.EntityID) (interfaces.LocationStream, error) {
	if err := id.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid entity ID")
	}

	sctx, cancel := context.WithCancel(ctx)
	pubsub := r.client.Subscribe(sctx, r.key(id))

	// Wait for the subscription confirmation so that no write between attach
	// and the initial read is lost
	if _, err := pubsub.Receive(sctx); err != nil {
		cancel()
		safe.Close(ctx, pubsub)
		return nil, goerr.Wrap(err, "failed to subscribe to location channel", goerr.V(model.EntityIDKey, id))
	}

	return &locationStream{
		repo:    r,
		id:      id,
		ctx:     sctx,
		cancel:  cancel,
		pubsub:  pubsub,
		changes: pubsub.Channel(),
		initial: true,
	}, nil
}

type locationStream struct {
	repo    *locationRepository
	id      types.EntityID
	ctx     context.Context
	cancel  context.CancelFunc
	pubsub  *redis.PubSub
	changes <-chan *redis.Message
	initial bool
}

func (s *locationStream) closed() error {
	return goerr.Wrap(model.ErrStreamClosed, "redis location stream closed", goerr.V(model.EntityIDKey, s.id))
}

func (s *locationStream) Next() (*model.LocationRecord, error) {
	if s.initial {
		s.initial = false
		return s.snapshot()
	}

	select {
	case <-s.ctx.Done():
		return nil, s.closed()
	case _, ok := <-s.changes:
		if !ok {
			return nil, s.closed()
		}
		return s.snapshot()
	}
}

func (s *locationStream) snapshot() (*model.LocationRecord, error) {
	record, err := s.repo.read(s.ctx, s.id)
	if err != nil {
		if s.ctx.Err() != nil {
			return nil, s.closed()
		}
		return nil, err
	}
	return record, nil
}

func (s *locationStream) Close() error {
	s.cancel()
	return s.pubsub.Close()
}
