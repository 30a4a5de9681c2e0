package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease is a best-effort mutual exclusion across replicas, acquired with
// SET NX PX. It expires on its own if the holder dies.
type Lease struct {
	client redis.Cmdable
	key    string
	holder string
}

// NewLease creates a lease handle. The holder token is unique per handle.
func NewLease(client redis.Cmdable, key string) *Lease {
	return &Lease{client: client, key: key, holder: uuid.NewString()}
}

// Acquire reports whether this handle now holds the lease for ttl.
func (l *Lease) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.holder, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", l.key, err)
	}
	return ok, nil
}

// Release gives the lease up early. Releasing a lease held by someone else
// is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	err := releaseScript.Run(ctx, l.client, []string{l.key}, l.holder).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lease %s: %w", l.key, err)
	}
	return nil
}
