package config

import (
	_ "embed"
	"errors"
	"io/fs"
	"os"

	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	domainConfig "github.com/fleetdesk/rentalconsole/pkg/domain/model/config"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
	"github.com/fleetdesk/rentalconsole/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

//go:embed resources.toml
var defaultCatalog []byte

// CatalogFile is the TOML layout of a resource catalogue
type CatalogFile struct {
	Resources []ResourceFile `toml:"resource"`
}

// ResourceFile describes one resource in TOML
type ResourceFile struct {
	Name         string      `toml:"name"`
	Title        string      `toml:"title"`
	Endpoint     string      `toml:"endpoint"`
	Shape        string      `toml:"shape"`
	Form         string      `toml:"form"`
	UploadTarget string      `toml:"upload_target"`
	Fields       []FieldFile `toml:"field"`
	Columns      []struct {
		Key   string `toml:"key"`
		Label string `toml:"label"`
	} `toml:"column"`
}

// FieldFile describes one field descriptor in TOML
type FieldFile struct {
	Path                 string `toml:"path"`
	Label                string `toml:"label"`
	Kind                 string `toml:"kind"`
	Required             bool   `toml:"required"`
	Placeholder          string `toml:"placeholder"`
	AcceptedTypes        string `toml:"accepted_types"`
	UploadLocation       string `toml:"upload_location"`
	FileRequiredOnCreate bool   `toml:"file_required_on_create"`
	Renderer             string `toml:"renderer"`
	Options              []struct {
		Value any    `toml:"value"`
		Label string `toml:"label"`
	} `toml:"option"`
	Relation *struct {
		Endpoint string `toml:"endpoint"`
		ValueKey string `toml:"value_key"`
		LabelKey string `toml:"label_key"`
	} `toml:"relation"`
}

// Resources holds the CLI flag for the resource catalogue
type Resources struct {
	path string
}

// Flags returns CLI flags for the resource catalogue
func (r *Resources) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "resources",
			Aliases:     []string{"r"},
			Usage:       "Path to a TOML resource catalogue (default: built-in catalogue)",
			Sources:     cli.EnvVars("RENTALCONSOLE_RESOURCES"),
			Destination: &r.path,
		},
	}
}

// Configure loads the catalogue file, or the built-in one when no path is set
func (r *Resources) Configure() (*domainConfig.Catalog, error) {
	if r.path == "" {
		logging.Default().Debug("Using built-in resource catalogue")
		return ParseCatalog(defaultCatalog)
	}
	return LoadCatalog(r.path)
}

// DefaultCatalog returns the built-in catalogue
func DefaultCatalog() (*domainConfig.Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads and validates a TOML catalogue file
func LoadCatalog(path string) (*domainConfig.Catalog, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "resource catalogue does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read resource catalogue", goerr.V(ConfigPathKey, path))
	}

	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid resource catalogue", goerr.V(ConfigPathKey, path))
	}
	return catalog, nil
}

// ParseCatalog decodes and validates a TOML catalogue
func ParseCatalog(data []byte) (*domainConfig.Catalog, error) {
	var file CatalogFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML", goerr.V("cause", err.Error()))
	}

	catalog := &domainConfig.Catalog{}
	seen := make(map[string]bool, len(file.Resources))
	for _, rf := range file.Resources {
		res, err := rf.toDomain()
		if err != nil {
			return nil, err
		}
		if seen[rf.Name] {
			return nil, goerr.Wrap(ErrDuplicateName, "resource is declared twice", goerr.V(ResourceKey, rf.Name))
		}
		seen[rf.Name] = true
		catalog.Resources = append(catalog.Resources, res)
	}
	return catalog, nil
}

func (rf *ResourceFile) toDomain() (*domainConfig.Resource, error) {
	if rf.Name == "" {
		return nil, goerr.Wrap(ErrMissingName, "resource name is empty")
	}
	name := types.ResourceName(rf.Name)
	if err := name.Validate(); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid resource name", goerr.V(ResourceKey, rf.Name), goerr.V("cause", err.Error()))
	}
	if rf.Endpoint == "" {
		return nil, goerr.Wrap(ErrMissingEndpoint, "resource has no endpoint", goerr.V(ResourceKey, rf.Name))
	}
	shape, err := types.ParsePayloadShape(rf.Shape)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid payload shape", goerr.V(ResourceKey, rf.Name), goerr.V("shape", rf.Shape))
	}

	res := &domainConfig.Resource{
		Name:         name,
		Title:        rf.Title,
		Endpoint:     rf.Endpoint,
		Shape:        shape,
		Form:         rf.Form,
		UploadTarget: rf.UploadTarget,
	}
	if res.Title == "" {
		res.Title = rf.Name
	}

	for i, ff := range rf.Fields {
		kind, err := types.ParseFieldKind(ff.Kind)
		if err != nil {
			return nil, goerr.Wrap(ErrInvalidFieldKind, "unsupported field kind",
				goerr.V(ResourceKey, rf.Name),
				goerr.V(FieldIndexKey, i),
				goerr.V("kind", ff.Kind))
		}

		fd := domainConfig.FieldDescriptor{
			Path:                 ff.Path,
			Label:                ff.Label,
			Kind:                 kind,
			Required:             ff.Required,
			Placeholder:          ff.Placeholder,
			AcceptedTypes:        ff.AcceptedTypes,
			UploadLocation:       ff.UploadLocation,
			FileRequiredOnCreate: ff.FileRequiredOnCreate,
			Renderer:             ff.Renderer,
		}
		for _, opt := range ff.Options {
			fd.Options = append(fd.Options, domainConfig.Option{Value: opt.Value, Label: opt.Label})
		}
		if ff.Relation != nil {
			fd.Relation = &domainConfig.RelationSource{
				Endpoint: ff.Relation.Endpoint,
				ValueKey: ff.Relation.ValueKey,
				LabelKey: ff.Relation.LabelKey,
			}
		}
		res.Fields = append(res.Fields, fd)
	}

	if err := model.ValidateDescriptors(res.Fields); err != nil {
		return nil, goerr.Wrap(err, "invalid field descriptors", goerr.V(ResourceKey, rf.Name))
	}

	for _, c := range rf.Columns {
		res.Columns = append(res.Columns, domainConfig.Column{Key: c.Key, Label: c.Label})
	}
	return res, nil
}
