package cli

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/fleetdesk/rentalconsole/pkg/cli/config"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	domainConfig "github.com/fleetdesk/rentalconsole/pkg/domain/model/config"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
	"github.com/fleetdesk/rentalconsole/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdForm(version string) *cli.Command {
	var mode string
	var recordID string
	var sets []string
	var files []string
	var showList bool
	var apiCfg config.API
	var uploadCfg config.Upload
	var resourcesCfg config.Resources

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "mode",
			Aliases:     []string{"m"},
			Usage:       "Form mode (create, edit, delete, resetPassword)",
			Value:       string(types.FormModeCreate),
			Destination: &mode,
		},
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Record ID for edit, delete and resetPassword",
			Destination: &recordID,
		},
		&cli.StringSliceFlag{
			Name:        "set",
			Aliases:     []string{"s"},
			Usage:       "Field value as path=value, repeatable",
			Destination: &sets,
		},
		&cli.StringSliceFlag{
			Name:        "file",
			Usage:       "File field as path=local-file, repeatable",
			Destination: &files,
		},
		&cli.BoolFlag{
			Name:        "list",
			Aliases:     []string{"l"},
			Usage:       "Print the first page of the resource, reloaded after a successful submit",
			Destination: &showList,
		},
	}
	flags = append(flags, apiCfg.Flags()...)
	flags = append(flags, uploadCfg.Flags()...)
	flags = append(flags, resourcesCfg.Flags()...)

	return &cli.Command{
		Name:      "form",
		Usage:     "Submit one form of a resource",
		ArgsUsage: "<resource>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			name := types.ResourceName(c.Args().First())
			if name == "" {
				return goerr.New("resource name is required")
			}
			formMode, err := types.ParseFormMode(mode)
			if err != nil {
				return goerr.Wrap(err, "invalid form mode")
			}
			values, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			fileValues, err := parseAssignments(files)
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
			targets, closeTargets, err := uploadCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize upload targets")
			}
			defer closeTargets()

			uc := usecase.New(nil, client,
				usecase.WithCatalog(catalog),
				usecase.WithUploadTargets(targets),
			)

			w := c.Root().Writer
			form, err := uc.NewForm(name,
				usecase.WithOnSuccess(func(ctx context.Context) {
					_, _ = fmt.Fprintf(w, "%s %s: done\n", name, formMode)
				}),
				usecase.WithOnError(func(ctx context.Context, message string, err error) {
					_, _ = fmt.Fprintf(w, "%s %s: %s\n", name, formMode, message)
				}),
			)
			if err != nil {
				return err
			}
			defer form.Close()

			var list *usecase.ResourceList
			if showList {
				if list, err = uc.NewResourceList(name); err != nil {
					return err
				}
				if _, err := list.Fetch(ctx, model.ListQuery{Page: 1}); err != nil {
					return err
				}
			}

			if err := form.Open(ctx, formMode, recordID); err != nil {
				return err
			}
			if err := applyValues(form, values); err != nil {
				return err
			}
			if err := applyFiles(form, fileValues); err != nil {
				return err
			}

			if err := form.Submit(ctx); err != nil {
				return err
			}

			if list != nil {
				page, err := list.Reload(ctx)
				if err != nil {
					return err
				}
				renderPage(c, page)
			}
			return nil
		},
	}
}

func applyValues(form *usecase.FormEngine, values map[string]string) error {
	for _, path := range sortedKeys(values) {
		fd, _ := form.Resource().Field(path)
		if err := form.SetValue(path, coerceValue(fd, values[path])); err != nil {
			return err
		}
	}
	return nil
}

// coerceValue keeps numeric input numeric for number and relation fields
func coerceValue(fd domainConfig.FieldDescriptor, raw string) any {
	switch fd.Kind.Normalize() {
	case types.FieldKindNumber, types.FieldKindRelation:
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i
		}
		if fd.Kind == types.FieldKindNumber {
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				return f
			}
		}
	}
	return raw
}

func applyFiles(form *usecase.FormEngine, files map[string]string) error {
	for _, path := range sortedKeys(files) {
		blob, err := readFileBlob(files[path])
		if err != nil {
			return err
		}
		if err := form.SetValue(path, blob); err != nil {
			return err
		}
	}
	return nil
}

func readFileBlob(name string) (*model.FileBlob, error) {
	// #nosec G304 - path is provided by CLI argument
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read file", goerr.V("path", name))
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &model.FileBlob{
		Name:        filepath.Base(name),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
