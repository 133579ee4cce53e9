package cli

import (
	"context"
	"io"

	"github.com/fleetdesk/rentalconsole/pkg/domain/interfaces"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
)

// RunWithWriter runs the CLI with command output sent to w
func RunWithWriter(ctx context.Context, args []string, w io.Writer) error {
	return run(ctx, args, "test", w)
}

// Track exposes the track loop for testing
func Track(ctx context.Context, repo interfaces.LocationRepository, id types.EntityID, w io.Writer) error {
	return track(ctx, repo, id, w)
}
