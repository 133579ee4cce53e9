package interfaces

import (
	"context"

	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
)

// Uploader stores a blob under a named location and exposes it at a durable
// public URL
type Uploader interface {
	// Upload stores blob below location and returns the stored object path
	Upload(ctx context.Context, location string, blob *model.FileBlob) (string, error)

	// PublicURL returns the absolute URL for a stored object path
	PublicURL(path string) string
}
