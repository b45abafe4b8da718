package flags

import (
	"context"
	"errors"
	"fmt"

	"jalsaathi/internal/redis"
)

// Redis stores flags as plain keys without expiry.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "flags"}
}

func (r *Redis) key(scope, name string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, scope, name)
}

func (r *Redis) Get(ctx context.Context, scope, name string) (bool, error) {
	value, _, err := r.lookup(ctx, scope, name)
	return value, err
}

// lookup distinguishes an unset flag from a flag stored as false.
func (r *Redis) lookup(ctx context.Context, scope, name string) (value, found bool, err error) {
	if err := validate(scope, name); err != nil {
		return false, false, err
	}
	raw, err := r.client.Get(ctx, r.key(scope, name))
	if err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("get flag %s: %w", name, err)
	}
	return raw == "1", true, nil
}

func (r *Redis) Set(ctx context.Context, scope, name string, value bool) error {
	if err := validate(scope, name); err != nil {
		return err
	}
	raw := "0"
	if value {
		raw = "1"
	}
	if err := r.client.Set(ctx, r.key(scope, name), raw, 0); err != nil {
		return fmt.Errorf("set flag %s: %w", name, err)
	}
	return nil
}
