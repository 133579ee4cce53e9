package redis

import (
	"context"

	"github.com/fleetdesk/rentalconsole/pkg/domain/interfaces"
	"github.com/go-redis/redis/v8"
	"github.com/m-mizutani/goerr/v2"
)

// Redis keeps location records in hashes and announces every write on a
// pub/sub channel with the same name as the hash key.
type Redis struct {
	client   *redis.Client
	location *locationRepository
}

var _ interfaces.Repository = &Redis{}

type Option func(*Redis)

// WithKeyPrefix prefixes every key and channel, e.g. for test isolation
func WithKeyPrefix(prefix string) Option {
	return func(r *Redis) {
		r.location.keyPrefix = prefix
	}
}

// New connects to Redis and verifies the connection
func New(ctx context.Context, addr, password string, db int, opts ...Option) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, goerr.Wrap(err, "failed to connect to redis", goerr.V("addr", addr), goerr.V("db", db))
	}

	r := &Redis{
		client:   client,
		location: newLocationRepository(client),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Redis) Location() interfaces.LocationRepository {
	return r.location
}

func (r *Redis) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
