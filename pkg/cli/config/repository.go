package config

import (
	"context"

	"github.com/fleetdesk/rentalconsole/pkg/domain/interfaces"
	"github.com/fleetdesk/rentalconsole/pkg/repository/firestore"
	"github.com/fleetdesk/rentalconsole/pkg/repository/memory"
	"github.com/fleetdesk/rentalconsole/pkg/repository/redis"
	"github.com/fleetdesk/rentalconsole/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// Repository holds CLI flags for the realtime location store
type Repository struct {
	backend          string
	projectID        string
	databaseID       string
	credentials      string
	collectionPrefix string

	redisAddr     string
	redisPassword string
	redisDB       int
	redisPrefix   string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Category:    "Repository",
			Usage:       "Realtime store backend (firestore, redis or memory)",
			Value:       "firestore",
			Sources:     cli.EnvVars("RENTALCONSOLE_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Category:    "Repository",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Sources:     cli.EnvVars("RENTALCONSOLE_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Category:    "Repository",
			Usage:       "Firestore Database ID",
			Sources:     cli.EnvVars("RENTALCONSOLE_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-credentials",
			Category:    "Repository",
			Usage:       "Path to a service account key file (default: application default credentials)",
			Sources:     cli.EnvVars("RENTALCONSOLE_FIRESTORE_CREDENTIALS"),
			Destination: &r.credentials,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Category:    "Repository",
			Usage:       "Prefix prepended to the owner_car collection name",
			Sources:     cli.EnvVars("RENTALCONSOLE_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &r.collectionPrefix,
		},
		&cli.StringFlag{
			Name:        "redis-addr",
			Category:    "Repository",
			Usage:       "Redis address (required when using redis backend)",
			Sources:     cli.EnvVars("RENTALCONSOLE_REDIS_ADDR"),
			Destination: &r.redisAddr,
		},
		&cli.StringFlag{
			Name:        "redis-password",
			Category:    "Repository",
			Usage:       "Redis password",
			Sources:     cli.EnvVars("RENTALCONSOLE_REDIS_PASSWORD"),
			Destination: &r.redisPassword,
		},
		&cli.IntFlag{
			Name:        "redis-db",
			Category:    "Repository",
			Usage:       "Redis database number",
			Sources:     cli.EnvVars("RENTALCONSOLE_REDIS_DB"),
			Destination: &r.redisDB,
		},
		&cli.StringFlag{
			Name:        "redis-key-prefix",
			Category:    "Repository",
			Usage:       "Prefix prepended to owner_car keys and channels",
			Sources:     cli.EnvVars("RENTALCONSOLE_REDIS_KEY_PREFIX"),
			Destination: &r.redisPrefix,
		},
	}
}

// Backend returns the configured backend type
func (r *Repository) Backend() string {
	return r.backend
}

// Configure initializes and returns a repository based on the configured backend.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch r.backend {
	case "firestore":
		if r.projectID == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "firestore-project-id is required when using firestore backend")
		}
		var clientOpts []option.ClientOption
		if r.credentials != "" {
			clientOpts = append(clientOpts, option.WithCredentialsFile(r.credentials))
		}
		repo, err := firestore.New(ctx, r.projectID, r.databaseID, clientOpts,
			firestore.WithCollectionPrefix(r.collectionPrefix))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logging.Default().Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		return repo, nil

	case "redis":
		if r.redisAddr == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "redis-addr is required when using redis backend")
		}
		repo, err := redis.New(ctx, r.redisAddr, r.redisPassword, r.redisDB,
			redis.WithKeyPrefix(r.redisPrefix))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize redis repository")
		}
		logging.Default().Info("Using Redis repository", "addr", r.redisAddr, "db", r.redisDB)
		return repo, nil

	case "memory":
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid repository backend", goerr.V("backend", r.backend))
	}
}
