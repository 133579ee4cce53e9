package async

import (
	"context"

	"github.com/fleetdesk/rentalconsole/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Dispatcher runs a handler detached from the caller's control flow.
// Failures are logged and never returned to the caller.
type Dispatcher func(ctx context.Context, handler func(ctx context.Context) error)

// Dispatch executes a handler function asynchronously in a new goroutine.
// The handler gets a background context that keeps the caller's logger, so
// cancellation of ctx does not abort it.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	bgCtx := detach(ctx)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in async handler", "panic", r)
			}
		}()

		if err := handler(bgCtx); err != nil {
			logging.From(bgCtx).Error("async handler failed", "error", goerr.Unwrap(err))
		}
	}()
}

// Inline runs the handler on the calling goroutine with the same failure
// policy as Dispatch. Used where ordering must be observable (tests, one-shot
// CLI commands).
func Inline(ctx context.Context, handler func(ctx context.Context) error) {
	bgCtx := detach(ctx)
	defer func() {
		if r := recover(); r != nil {
			logging.From(bgCtx).Error("panic in inline handler", "panic", r)
		}
	}()

	if err := handler(bgCtx); err != nil {
		logging.From(bgCtx).Error("inline handler failed", "error", goerr.Unwrap(err))
	}
}

func detach(ctx context.Context) context.Context {
	bgCtx := context.Background()
	if logger := logging.From(ctx); logger != nil {
		bgCtx = logging.With(bgCtx, logger)
	}
	return bgCtx
}
