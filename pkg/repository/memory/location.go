package memory

import (
	"context"
	"sync"

	"github.com/fleetdesk/rentalconsole/pkg/domain/interfaces"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// streamBuffer bounds the snapshots queued for a slow reader; the oldest
// snapshot is dropped when it overflows
const streamBuffer = 64

type locationRepository struct {
	mu          sync.RWMutex
	records     map[types.EntityID]*model.LocationRecord
	subscribers map[types.EntityID]map[*locationStream]struct{}
}

func newLocationRepository() *locationRepository {
	return &locationRepository{
		records:     make(map[types.EntityID]*model.LocationRecord),
		subscribers: make(map[types.EntityID]map[*locationStream]struct{}),
	}
}

func copyRecord(r *model.LocationRecord) *model.LocationRecord {
	if r == nil {
		return nil
	}
	copied := *r
	return &copied
}

func (r *locationRepository) Get(ctx context.Context, id types.EntityID) (*model.LocationRecord, error) {
	if err := id.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid entity ID")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return copyRecord(r.records[id]), nil
}

func (r *locationRepository) Put(ctx context.Context, id types.EntityID, record *model.LocationRecord) error {
	if err := id.Validate(); err != nil {
		return goerr.Wrap(err, "invalid entity ID")
	}
	if record == nil {
		return goerr.New("location record is nil", goerr.V(model.EntityIDKey, id))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[id] = copyRecord(record)
	r.publishLocked(id)
	return nil
}

func (r *locationRepository) UpdateStatus(ctx context.Context, id types.EntityID, status types.TrackingStatus) error {
	if err := id.Validate(); err != nil {
		return goerr.Wrap(err, "invalid entity ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		record = &model.LocationRecord{}
		r.records[id] = record
	}
	record.Status = status
	r.publishLocked(id)
	return nil
}

func (r *locationRepository) Subscribe(ctx context.Context, id types.EntityID) (interfaces.LocationStream, error) {
	if err := id.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid entity ID")
	}

	sctx, cancel := context.WithCancel(ctx)
	stream := &locationStream{
		repo:   r,
		id:     id,
		ch:     make(chan *model.LocationRecord, streamBuffer),
		ctx:    sctx,
		cancel: cancel,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subscribers[id]; !ok {
		r.subscribers[id] = make(map[*locationStream]struct{})
	}
	r.subscribers[id][stream] = struct{}{}
	stream.push(copyRecord(r.records[id]))

	return stream, nil
}

// publishLocked delivers the current record of id to every subscriber.
// r.mu must be held.
func (r *locationRepository) publishLocked(id types.EntityID) {
	for s := range r.subscribers[id] {
		s.push(copyRecord(r.records[id]))
	}
}

func (r *locationRepository) unsubscribe(s *locationStream) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.subscribers[s.id], s)
	if len(r.subscribers[s.id]) == 0 {
		delete(r.subscribers, s.id)
	}
}

func (r *locationRepository) closeAll() {
	r.mu.Lock()
	streams := make([]*locationStream, 0)
	for _, subs := range r.subscribers {
		for s := range subs {
			streams = append(streams, s)
		}
	}
	r.subscribers = make(map[types.EntityID]map[*locationStream]struct{})
	r.mu.Unlock()

	for _, s := range streams {
		s.cancel()
	}
}

type locationStream struct {
	repo      *locationRepository
	id        types.EntityID
	ch        chan *model.LocationRecord
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// push enqueues without blocking. Only called with repo.mu held, so there is
// a single producer per stream.
func (s *locationStream) push(record *model.LocationRecord) {
	select {
	case s.ch <- record:
		return
	default:
	}

	select {
	case <-s.ch:
	default:
	}

	select {
	case s.ch <- record:
	default:
	}
}

func (s *locationStream) Next() (*model.LocationRecord, error) {
	select {
	case <-s.ctx.Done():
		return nil, goerr.Wrap(model.ErrStreamClosed, "memory location stream closed", goerr.V(model.EntityIDKey, s.id))
	default:
	}

	select {
	case record := <-s.ch:
		return record, nil
	case <-s.ctx.Done():
		return nil, goerr.Wrap(model.ErrStreamClosed, "memory location stream closed", goerr.V(model.EntityIDKey, s.id))
	}
}

func (s *locationStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.repo.unsubscribe(s)
	})
	return nil
}
