package config

import (
	"context"

	"github.com/fleetdesk/rentalconsole/pkg/service/upload"
	"github.com/fleetdesk/rentalconsole/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// Upload holds CLI flags for the two upload targets
type Upload struct {
	backend      string
	bucket       string
	driverBucket string
	publicBase   string
	credentials  string
	memoryBase   string
}

// Flags returns CLI flags for upload configuration
func (u *Upload) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "upload-backend",
			Category:    "Upload",
			Usage:       "Upload backend (gcs or memory)",
			Value:       "gcs",
			Sources:     cli.EnvVars("RENTALCONSOLE_UPLOAD_BACKEND"),
			Destination: &u.backend,
		},
		&cli.StringFlag{
			Name:        "upload-bucket",
			Category:    "Upload",
			Usage:       "Bucket for general assets (required for gcs backend)",
			Sources:     cli.EnvVars("RENTALCONSOLE_UPLOAD_BUCKET"),
			Destination: &u.bucket,
		},
		&cli.StringFlag{
			Name:        "upload-driver-bucket",
			Category:    "Upload",
			Usage:       "Bucket for driver photos (default: the general bucket)",
			Sources:     cli.EnvVars("RENTALCONSOLE_UPLOAD_DRIVER_BUCKET"),
			Destination: &u.driverBucket,
		},
		&cli.StringFlag{
			Name:        "upload-public-base",
			Category:    "Upload",
			Usage:       "URL prefix of uploaded objects",
			Value:       upload.DefaultPublicBase,
			Sources:     cli.EnvVars("RENTALCONSOLE_UPLOAD_PUBLIC_BASE"),
			Destination: &u.publicBase,
		},
		&cli.StringFlag{
			Name:        "upload-credentials",
			Category:    "Upload",
			Usage:       "Path to a service account key file (default: application default credentials)",
			Sources:     cli.EnvVars("RENTALCONSOLE_UPLOAD_CREDENTIALS"),
			Destination: &u.credentials,
		},
		&cli.StringFlag{
			Name:        "upload-memory-base",
			Category:    "Upload",
			Usage:       "URL prefix of uploads kept by the memory backend",
			Value:       "http://localhost:8080/uploads",
			Sources:     cli.EnvVars("RENTALCONSOLE_UPLOAD_MEMORY_BASE"),
			Destination: &u.memoryBase,
		},
	}
}

// Configure builds the upload targets. The returned function releases the
// storage clients.
func (u *Upload) Configure(ctx context.Context) (*upload.Targets, func(), error) {
	switch u.backend {
	case "gcs":
		if u.bucket == "" {
			return nil, nil, goerr.Wrap(ErrInvalidConfig, "upload-bucket is required when using gcs backend")
		}
		var clientOpts []option.ClientOption
		if u.credentials != "" {
			clientOpts = append(clientOpts, option.WithCredentialsFile(u.credentials))
		}

		def, err := upload.NewGCS(ctx, u.bucket, clientOpts, upload.WithPublicBase(u.publicBase))
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize default upload target")
		}
		closers := []func() error{def.Close}
		targets := upload.NewTargets(def)

		if u.driverBucket != "" && u.driverBucket != u.bucket {
			driver, err := upload.NewGCS(ctx, u.driverBucket, clientOpts, upload.WithPublicBase(u.publicBase))
			if err != nil {
				_ = def.Close()
				return nil, nil, goerr.Wrap(err, "failed to initialize driver upload target")
			}
			closers = append(closers, driver.Close)
			targets.With(upload.TargetDriver, driver)
		}

		logging.Default().Info("Using GCS upload targets", "bucket", u.bucket, "driver_bucket", u.driverBucket)
		return targets, func() {
			for _, c := range closers {
				if err := c(); err != nil {
					logging.Default().Error("failed to close storage client", "error", err)
				}
			}
		}, nil

	case "memory":
		logging.Default().Info("Using in-memory upload targets (development mode)")
		targets := upload.NewTargets(upload.NewMemory(u.memoryBase)).
			With(upload.TargetDriver, upload.NewMemory(u.memoryBase+"/"+upload.TargetDriver))
		return targets, func() {}, nil

	default:
		return nil, nil, goerr.Wrap(ErrInvalidConfig, "invalid upload backend", goerr.V("backend", u.backend))
	}
}
