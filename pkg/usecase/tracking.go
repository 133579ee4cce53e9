package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fleetdesk/rentalconsole/pkg/domain/interfaces"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
	"github.com/fleetdesk/rentalconsole/pkg/utils/async"
	"github.com/fleetdesk/rentalconsole/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// TrackingSink receives the events of a tracking session. Events are
// delivered from a single goroutine, one at a time.
type TrackingSink interface {
	OnTrackingEvent(ctx context.Context, ev model.TrackingEvent)
}

// TrackingErrorSink is implemented by sinks that want to know when the
// location listener failed. The session is closed right after.
type TrackingErrorSink interface {
	OnTrackingError(ctx context.Context, err error)
}

// releaser is implemented by sinks holding view resources (map, marker)
type releaser interface {
	Release()
}

// flagWaitTimeout bounds how long closing a session waits for the "0" write
const flagWaitTimeout = 5 * time.Second

// Tracker follows the position of one entity at a time. Opening a new
// entity closes the previous session first.
type Tracker struct {
	repo     interfaces.LocationRepository
	dispatch async.Dispatcher

	// opMu serializes Open and Close
	opMu    sync.Mutex
	mu      sync.Mutex
	state   types.TrackingState
	session *trackingSession

	flagMu      sync.Mutex
	flagIssued  uint64
	flagApplied uint64
}

type TrackerOption func(*Tracker)

// WithDispatcher sets how activity flag writes are run. The default runs
// them in the background.
func WithDispatcher(d async.Dispatcher) TrackerOption {
	return func(t *Tracker) {
		t.dispatch = d
	}
}

func NewTracker(repo interfaces.LocationRepository, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		repo:     repo,
		dispatch: async.Dispatch,
		state:    types.TrackingStateClosed,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type trackingSession struct {
	id     types.EntityID
	sink   TrackingSink
	cancel context.CancelFunc
	done   chan struct{}

	mu          sync.Mutex
	detached    bool
	markerShown bool
	entity      model.TrackedEntity
}

// Open starts tracking id. The activity flag is set to "1" in the
// background; its failure does not stop tracking.
func (t *Tracker) Open(ctx context.Context, id types.EntityID, sink TrackingSink) error {
	if err := id.Validate(); err != nil {
		return goerr.Wrap(err, "invalid entity ID")
	}
	if sink == nil {
		return goerr.New("tracking sink is nil", goerr.V(model.EntityIDKey, id))
	}

	t.opMu.Lock()
	defer t.opMu.Unlock()

	if t.currentSession() != nil {
		t.closeSession(ctx)
	}

	t.setState(types.TrackingStateOpening)
	t.writeFlag(ctx, id, types.TrackingStatusActive)

	sctx, cancel := context.WithCancel(ctx)
	stream, err := t.repo.Subscribe(sctx, id)
	if err != nil {
		cancel()
		t.waitFlag(ctx, id, t.writeFlag(ctx, id, types.TrackingStatusInactive))
		t.setState(types.TrackingStateClosed)
		return goerr.Wrap(model.ErrSubscription, "failed to attach location listener",
			goerr.V(model.EntityIDKey, id),
			goerr.V("cause", err.Error()))
	}

	s := &trackingSession{
		id:     id,
		sink:   sink,
		cancel: cancel,
		done:   make(chan struct{}),
		entity: model.TrackedEntity{ID: id},
	}

	t.mu.Lock()
	t.session = s
	t.state = types.TrackingStateActive
	t.mu.Unlock()

	go t.listen(sctx, s, stream)

	logging.From(ctx).Info("tracking opened", "entity_id", id)
	return nil
}

// Close ends the current session: the listener is detached first, so no
// event is delivered after Close returns, then the activity flag is reset
// to "0" and the sink is released. Close returns once the "0" write has
// finished or flagWaitTimeout has passed.
func (t *Tracker) Close(ctx context.Context) {
	t.opMu.Lock()
	defer t.opMu.Unlock()
	t.closeSession(ctx)
}

// closeSession must be called with opMu held
func (t *Tracker) closeSession(ctx context.Context) {
	s := t.currentSession()
	if s == nil {
		t.setState(types.TrackingStateClosed)
		return
	}
	t.setState(types.TrackingStateClosing)

	s.mu.Lock()
	s.detached = true
	s.mu.Unlock()
	s.cancel()
	<-s.done

	t.waitFlag(ctx, s.id, t.writeFlag(ctx, s.id, types.TrackingStatusInactive))

	if r, ok := s.sink.(releaser); ok {
		r.Release()
	}

	t.mu.Lock()
	t.session = nil
	t.state = types.TrackingStateClosed
	t.mu.Unlock()

	logging.From(ctx).Info("tracking closed", "entity_id", s.id)
}

// writeFlag sets the activity flag without waiting for it. The returned
// channel is closed when the write has run. A write issued before another
// one that already ran is skipped, so a late "1" never overrides a "0",
// even when the "0" failed.
func (t *Tracker) writeFlag(ctx context.Context, id types.EntityID, status types.TrackingStatus) <-chan struct{} {
	t.flagMu.Lock()
	t.flagIssued++
	seq := t.flagIssued
	t.flagMu.Unlock()

	done := make(chan struct{})
	t.dispatch(ctx, func(ctx context.Context) error {
		defer close(done)
		t.flagMu.Lock()
		defer t.flagMu.Unlock()

		if seq < t.flagApplied {
			return nil
		}
		t.flagApplied = seq
		if err := t.repo.UpdateStatus(ctx, id, status); err != nil {
			return goerr.Wrap(model.ErrSubscription, "failed to write activity flag",
				goerr.V(model.EntityIDKey, id),
				goerr.V("status", status),
				goerr.V("cause", err.Error()))
		}
		return nil
	})
	return done
}

func (t *Tracker) waitFlag(ctx context.Context, id types.EntityID, done <-chan struct{}) {
	timer := time.NewTimer(flagWaitTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		logging.From(ctx).Warn("activity flag write still pending", "entity_id", id)
	}
}

func (t *Tracker) currentSession() *trackingSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

func (t *Tracker) setState(s types.TrackingState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

func (t *Tracker) State() types.TrackingState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Entity returns the tracked entity of the open session
func (t *Tracker) Entity() (model.TrackedEntity, bool) {
	s := t.currentSession()
	if s == nil {
		return model.TrackedEntity{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entity, true
}

// listen delivers snapshots until the stream ends. A stream that ends while
// the session is still attached closes the session, so the flag is not left
// at "1" without a listener.
func (t *Tracker) listen(ctx context.Context, s *trackingSession, stream interfaces.LocationStream) {
	err := s.consume(ctx, stream)

	s.mu.Lock()
	detached := s.detached
	s.mu.Unlock()
	if detached {
		return
	}

	if errors.Is(err, model.ErrStreamClosed) {
		logging.From(ctx).Warn("location stream closed by the backend", "entity_id", s.id)
	} else {
		logging.From(ctx).Error("location stream failed", "error", err, "entity_id", s.id)
	}
	t.failSession(context.WithoutCancel(ctx), s, err, ctx.Err() == nil)
}

// consume closes done before returning, so failSession can take opMu
// while a concurrent Close waits on it
func (s *trackingSession) consume(ctx context.Context, stream interfaces.LocationStream) error {
	defer close(s.done)
	defer func() {
		if err := stream.Close(); err != nil {
			logging.From(ctx).Warn("failed to close location stream", "error", err, "entity_id", s.id)
		}
	}()

	for {
		record, err := stream.Next()
		if err != nil {
			return err
		}
		s.handle(ctx, record)
	}
}

// failSession closes s when it is still the open session. The sink hears
// about the failure unless the caller's context ended it.
func (t *Tracker) failSession(ctx context.Context, s *trackingSession, cause error, notify bool) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	if t.currentSession() != s {
		return
	}

	err := goerr.Wrap(model.ErrSubscription, "location listener stopped",
		goerr.V(model.EntityIDKey, s.id),
		goerr.V("cause", cause.Error()))

	s.mu.Lock()
	if es, ok := s.sink.(TrackingErrorSink); ok && notify && !s.detached {
		es.OnTrackingError(ctx, err)
	}
	s.mu.Unlock()

	t.closeSession(ctx)
}

// handle applies one snapshot. A record without a fix removes the marker if
// one is shown; a fix after no marker is a first fix.
func (s *trackingSession) handle(ctx context.Context, record *model.LocationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.detached {
		return
	}

	s.entity.Active = record != nil && record.Status.IsActive()

	pos, ok := record.Fix()
	if !ok {
		if s.markerShown {
			s.markerShown = false
			s.entity.HasFix = false
			s.sink.OnTrackingEvent(ctx, model.TrackingEvent{
				Type:     model.TrackingEventNoFix,
				EntityID: s.id,
			})
		}
		return
	}

	first := !s.markerShown
	s.markerShown = true
	s.entity.HasFix = true
	s.entity.LastKnownLatitude = pos.Latitude
	s.entity.LastKnownLongitude = pos.Longitude

	s.sink.OnTrackingEvent(ctx, model.TrackingEvent{
		Type:     model.TrackingEventFix,
		EntityID: s.id,
		Position: &pos,
		First:    first,
	})
}
