package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/fleetdesk/rentalconsole/pkg/usecase"
	"github.com/fleetdesk/rentalconsole/pkg/utils/errutil"
	"github.com/fleetdesk/rentalconsole/pkg/utils/logging"
	"github.com/fleetdesk/rentalconsole/pkg/utils/safe"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
)

// maxFormBytes bounds a multipart form submission held in memory
const maxFormBytes = 32 << 20

type Server struct {
	router       *chi.Mux
	uc           *usecase.UseCases
	allowOrigins []string

	// open tracking websockets, drained on shutdown
	trackMu  sync.Mutex
	draining bool
	tracking sync.WaitGroup
}

type Options func(*Server)

// WithAllowedOrigins sets the origin patterns accepted for tracking
// websockets. By default only same-origin requests are accepted.
func WithAllowedOrigins(patterns []string) Options {
	return func(s *Server) {
		s.allowOrigins = patterns
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]any{"success": true})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/resources", s.listResources)

		r.Route("/resources/{name}", func(r chi.Router) {
			r.Get("/", s.getResource)
			r.Get("/records", s.listRecords)
			r.Post("/records", s.createRecord)
			r.Get("/records/{id}", s.getRecord)
			r.Put("/records/{id}", s.updateRecord)
			r.Delete("/records/{id}", s.deleteRecord)
			r.Post("/records/{id}/reset_password", s.resetPassword)
			r.Get("/relations/{path}", s.relationOptions)
		})

		r.Get("/tracking/{id}", s.trackEntity)
	})

	return s
}

// DrainTracking refuses new tracking connections and waits until every open
// one has closed its session. http.Server.Shutdown does not wait for
// hijacked websocket connections, so call this before closing the
// repository the sessions write to.
func (s *Server) DrainTracking(ctx context.Context) error {
	s.trackMu.Lock()
	s.draining = true
	s.trackMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.tracking.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "tracking connections still open")
	}
}

// beginTracking registers a tracking connection. It returns false once
// draining has started.
func (s *Server) beginTracking() bool {
	s.trackMu.Lock()
	defer s.trackMu.Unlock()
	if s.draining {
		return false
	}
	s.tracking.Add(1)
	return true
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := logging.Default().With("request_id", middleware.GetReqID(r.Context()))
		r = r.WithContext(logging.With(r.Context(), logger))

		defer func() {
			logger.Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(r.Context(), w, data)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	errutil.HandleHTTP(r.Context(), w, err, errutil.StatusCode(err))
}
