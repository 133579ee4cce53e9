package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fleetdesk/rentalconsole/pkg/cli/config"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
	"github.com/fleetdesk/rentalconsole/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdList(version string) *cli.Command {
	var page int
	var search string
	var filters []string
	var apiCfg config.API
	var resourcesCfg config.Resources

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "page",
			Aliases:     []string{"p"},
			Usage:       "Page number, from 1",
			Value:       1,
			Destination: &page,
		},
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Search text",
			Destination: &search,
		},
		&cli.StringSliceFlag{
			Name:        "filter",
			Aliases:     []string{"f"},
			Usage:       "Filter as key=value, repeatable",
			Destination: &filters,
		},
	}
	flags = append(flags, apiCfg.Flags()...)
	flags = append(flags, resourcesCfg.Flags()...)

	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "Print one page of a resource as a table",
		ArgsUsage: "<resource>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			name := types.ResourceName(c.Args().First())
			if name == "" {
				return goerr.New("resource name is required")
			}

			filterMap, err := parseAssignments(filters)
			if err != nil {
				return err
			}

			catalog, err := resourcesCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load resource catalogue")
			}
			client, err := apiCfg.Configure(version)
			if err != nil {
				return err
			}

			uc := usecase.New(nil, client, usecase.WithCatalog(catalog))
			result, err := uc.ListResource(ctx, name, model.ListQuery{
				Page:    page,
				Search:  search,
				Filters: filterMap,
			})
			if err != nil {
				return err
			}

			renderPage(c, result)
			return nil
		},
	}
}

func renderPage(c *cli.Command, result *usecase.ResourcePage) {
	w := c.Root().Writer

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(result.Columns...).
		Rows(result.Rows...)
	_, _ = fmt.Fprintln(w, t.Render())
	_, _ = fmt.Fprintf(w, "page %d/%d, %d record(s)\n", result.Page, result.TotalPages, result.TotalCount)
}

// parseAssignments turns ["k=v", ...] into a map
func parseAssignments(items []string) (map[string]string, error) {
	out := make(map[string]string, len(items))
	for _, item := range items {
		k, v, ok := strings.Cut(item, "=")
		if !ok || k == "" {
			return nil, goerr.New("expected key=value", goerr.V("value", item))
		}
		out[k] = v
	}
	return out, nil
}
