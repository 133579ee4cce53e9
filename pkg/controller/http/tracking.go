package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
	"github.com/fleetdesk/rentalconsole/pkg/utils/errutil"
	"github.com/fleetdesk/rentalconsole/pkg/utils/logging"
	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
)

// writeTimeout bounds one event write to a tracking websocket
const writeTimeout = 5 * time.Second

// trackingMessage is sent over the tracking websocket
type trackingMessage struct {
	Type   string               `json:"type"`
	State  types.TrackingState  `json:"state,omitempty"`
	Event  *model.TrackingEvent `json:"event,omitempty"`
	Detail string               `json:"detail,omitempty"`
}

// wsSink forwards tracking events to a websocket until released
type wsSink struct {
	conn   *websocket.Conn
	failed chan struct{}

	mu       sync.Mutex
	released bool
}

func (s *wsSink) send(ctx context.Context, msg trackingMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}

	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, s.conn, msg); err != nil {
		logging.From(ctx).Debug("failed to write tracking event", "error", err)
	}
}

func (s *wsSink) OnTrackingEvent(ctx context.Context, ev model.TrackingEvent) {
	s.send(ctx, trackingMessage{Type: "event", Event: &ev})
}

// OnTrackingError reports a dead listener to the client and wakes the
// handler so it can close the connection
func (s *wsSink) OnTrackingError(ctx context.Context, err error) {
	s.send(ctx, trackingMessage{Type: "error", Detail: model.UserMessage(err)})
	select {
	case <-s.failed:
	default:
		close(s.failed)
	}
}

func (s *wsSink) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
}

// trackEntity streams the position of one entity over a websocket. Closing
// the connection closes the tracking session and resets the activity flag.
func (s *Server) trackEntity(w http.ResponseWriter, r *http.Request) {
	id := types.EntityID(chi.URLParam(r, "id"))
	if err := id.Validate(); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	if !s.beginTracking() {
		errutil.HandleHTTP(r.Context(), w, goerr.New("server is shutting down"), http.StatusServiceUnavailable)
		return
	}
	defer s.tracking.Done()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.allowOrigins,
	})
	if err != nil {
		logging.From(r.Context()).Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow() //nolint:errcheck // best effort after a normal close

	// The client sends nothing; CloseRead cancels ctx once it disconnects
	ctx := conn.CloseRead(r.Context())
	logger := logging.From(ctx).With("entity_id", id)
	ctx = logging.With(ctx, logger)

	sink := &wsSink{conn: conn, failed: make(chan struct{})}
	tracker := s.uc.NewTracker()
	if err := tracker.Open(ctx, id, sink); err != nil {
		_ = errutil.Handle(ctx, err, "failed to open tracking")
		sink.send(ctx, trackingMessage{Type: "error", Detail: model.UserMessage(err)})
		_ = conn.Close(websocket.StatusInternalError, "subscription failed")
		return
	}
	sink.send(ctx, trackingMessage{Type: "state", State: tracker.State()})

	status := websocket.StatusNormalClosure
	select {
	case <-ctx.Done():
	case <-sink.failed:
		status = websocket.StatusInternalError
	}

	// Close returns after the "0" flag write, so the handler outlives it
	tracker.Close(context.WithoutCancel(ctx))
	logger.Info("tracking connection closed")
	_ = conn.Close(status, "")
}
