package upload

import (
	"context"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/fleetdesk/rentalconsole/pkg/domain/interfaces"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
)

// DefaultPublicBase serves objects of public buckets
const DefaultPublicBase = "https://storage.googleapis.com"

// GCS stores uploads as objects in a Cloud Storage bucket
type GCS struct {
	client     *storage.Client
	bucket     string
	publicBase string
}

var _ interfaces.Uploader = &GCS{}

type GCSOption func(*GCS)

// WithPublicBase overrides the URL prefix used by PublicURL, e.g. for a CDN
func WithPublicBase(base string) GCSOption {
	return func(g *GCS) {
		g.publicBase = strings.TrimRight(base, "/")
	}
}

// NewGCS creates an uploader for bucket
func NewGCS(ctx context.Context, bucket string, clientOpts []option.ClientOption, opts ...GCSOption) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("bucket name is required")
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	g := &GCS{
		client:     client,
		bucket:     bucket,
		publicBase: DefaultPublicBase,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *GCS) Upload(ctx context.Context, location string, blob *model.FileBlob) (string, error) {
	if blob == nil {
		return "", goerr.Wrap(model.ErrUpload, "no file to upload", goerr.V(model.LocationKey, location))
	}

	objPath := objectPath(location, blob)
	w := g.client.Bucket(g.bucket).Object(objPath).NewWriter(ctx)
	w.ContentType = blob.ContentType

	if _, err := w.Write(blob.Data); err != nil {
		_ = w.Close()
		return "", goerr.Wrap(model.ErrUpload, "failed to write object",
			goerr.V(model.LocationKey, location),
			goerr.V("bucket", g.bucket),
			goerr.V("object", objPath),
			goerr.V("cause", err.Error()))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(model.ErrUpload, "failed to finalize object",
			goerr.V(model.LocationKey, location),
			goerr.V("bucket", g.bucket),
			goerr.V("object", objPath),
			goerr.V("cause", err.Error()))
	}

	logging.From(ctx).Info("file uploaded",
		"bucket", g.bucket,
		"object", objPath,
		"size", len(blob.Data))

	return objPath, nil
}

func (g *GCS) PublicURL(path string) string {
	return g.publicBase + "/" + g.bucket + "/" + strings.TrimLeft(path, "/")
}

func (g *GCS) Close() error {
	return g.client.Close()
}
