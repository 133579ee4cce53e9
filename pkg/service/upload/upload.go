package upload

import (
	"mime"
	"path"
	"strings"

	"github.com/fleetdesk/rentalconsole/pkg/domain/interfaces"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model/config"
	"github.com/google/uuid"
)

// Target names
const (
	TargetDefault = "default"
	TargetDriver  = "driver"
)

// Targets resolves an upload target by name
type Targets struct {
	targets map[string]interfaces.Uploader
}

// NewTargets builds a registry. The default target is used for any name
// that has no uploader of its own.
func NewTargets(defaultTarget interfaces.Uploader) *Targets {
	return &Targets{
		targets: map[string]interfaces.Uploader{TargetDefault: defaultTarget},
	}
}

// With registers uploader under name
func (t *Targets) With(name string, uploader interfaces.Uploader) *Targets {
	if uploader != nil {
		t.targets[name] = uploader
	}
	return t
}

// Get returns the uploader for name, falling back to the default target
func (t *Targets) Get(name string) interfaces.Uploader {
	if u, ok := t.targets[name]; ok && u != nil {
		return u
	}
	return t.targets[TargetDefault]
}

// objectPath returns location/<uuid><ext> for blob. The extension comes from
// the original file name, or from the content type when the name has none.
func objectPath(location string, blob *model.FileBlob) string {
	ext := strings.ToLower(path.Ext(blob.Name))
	if ext == "" && blob.ContentType != "" {
		if exts, err := mime.ExtensionsByType(blob.ContentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}

	location = strings.Trim(location, "/")
	if location == "" {
		location = config.DefaultUploadLocation
	}
	return location + "/" + uuid.New().String() + ext
}
