package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fleetdesk/rentalconsole/pkg/cli/config"
	"github.com/fleetdesk/rentalconsole/pkg/domain/interfaces"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
	"github.com/fleetdesk/rentalconsole/pkg/usecase"
	"github.com/fleetdesk/rentalconsole/pkg/utils/async"
	"github.com/fleetdesk/rentalconsole/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

var (
	fixColor   = color.New(color.FgGreen, color.Bold)
	noFixColor = color.New(color.FgYellow)
)

func cmdTrack() *cli.Command {
	var repoCfg config.Repository

	return &cli.Command{
		Name:      "track",
		Aliases:   []string{"t"},
		Usage:     "Follow the live position of an owner car until interrupted",
		ArgsUsage: "<entity-id>",
		Flags:     repoCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			id := types.EntityID(c.Args().First())
			if err := id.Validate(); err != nil {
				return goerr.Wrap(err, "invalid entity ID")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return track(ctx, repo.Location(), id, c.Root().Writer)
		},
	}
}

// terminalSink prints tracking events. A listener failure is handed to
// the waiting command through failed.
type terminalSink struct {
	w      io.Writer
	failed chan error
}

func (s *terminalSink) OnTrackingEvent(ctx context.Context, ev model.TrackingEvent) {
	ts := time.Now().Format(time.TimeOnly)
	switch ev.Type {
	case model.TrackingEventFix:
		label := "moved"
		if ev.First {
			label = "found"
		}
		_, _ = fixColor.Fprintf(s.w, "%s %s %s", ts, ev.EntityID, label)
		_, _ = fmt.Fprintf(s.w, " %.6f,%.6f\n", ev.Position.Latitude, ev.Position.Longitude)
	case model.TrackingEventNoFix:
		_, _ = noFixColor.Fprintf(s.w, "%s %s no fix\n", ts, ev.EntityID)
	}
}

func (s *terminalSink) OnTrackingError(ctx context.Context, err error) {
	select {
	case s.failed <- err:
	default:
	}
}

// track prints tracking events of id until ctx is done or the listener
// fails. Flag writes run inline so "0" is stored before the command exits.
func track(ctx context.Context, repo interfaces.LocationRepository, id types.EntityID, w io.Writer) error {
	tracker := usecase.NewTracker(repo, usecase.WithDispatcher(async.Inline))
	sink := &terminalSink{w: w, failed: make(chan error, 1)}

	if err := tracker.Open(ctx, id, sink); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "tracking %s, press Ctrl+C to stop\n", id)

	select {
	case <-ctx.Done():
		tracker.Close(context.WithoutCancel(ctx))
		return nil
	case err := <-sink.failed:
		// waits for the tracker to finish closing the session
		tracker.Close(context.WithoutCancel(ctx))
		return goerr.Wrap(err, "tracking stopped", goerr.V(model.EntityIDKey, id))
	}
}
