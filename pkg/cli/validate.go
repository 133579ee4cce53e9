package cli

import (
	"context"
	"fmt"

	"github.com/fleetdesk/rentalconsole/pkg/cli/config"
	"github.com/fleetdesk/rentalconsole/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var resourcesCfg config.Resources

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate a resource catalogue",
		Flags:   resourcesCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			catalog, err := resourcesCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "resource catalogue validation failed")
			}

			w := c.Root().Writer
			for _, res := range catalog.Resources {
				logging.Default().Info("Resource validated",
					"name", res.Name,
					"endpoint", res.Endpoint,
					"field_count", len(res.Fields),
					"column_count", len(res.Columns),
				)
				_, _ = fmt.Fprintf(w, "%-12s %-20s fields=%d columns=%d\n",
					res.Name, res.Endpoint, len(res.Fields), len(res.Columns))
			}
			return nil
		},
	}
}
