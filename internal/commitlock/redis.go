package commitlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockLost is returned on unlock when the lock expired and was taken
// by another holder.
var ErrLockLost = errors.New("commit lock no longer held")

const (
	DefaultTTL        = 30 * time.Second
	DefaultRetryDelay = 50 * time.Millisecond
)

// Compare-and-delete so a holder never frees a lock it no longer owns.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process talking to the same Redis. The
// lock expires after TTL so a crashed holder cannot wedge the host.
type Redis struct {
	client     redis.UniversalClient
	prefix     string
	ttl        time.Duration
	retryDelay time.Duration
}

// RedisOption configures a Redis locker.
type RedisOption func(*Redis)

// WithTTL sets the lock expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

// WithRetryDelay sets the pause between acquisition attempts.
func WithRetryDelay(d time.Duration) RedisOption {
	return func(r *Redis) { r.retryDelay = d }
}

// NewRedis creates a Locker storing keys under prefix.
func NewRedis(client redis.UniversalClient, prefix string, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: prefix, ttl: DefaultTTL, retryDelay: DefaultRetryDelay}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lock polls SET NX until it wins or ctx ends.
func (r *Redis) Lock(ctx context.Context, key string) (UnlockFunc, error) {
	full := r.prefix + key
	token := uuid.NewString()
	for {
		ok, err := r.client.SetNX(ctx, full, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquiring commit lock %q: %w", full, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for commit lock %q: %w", full, ctx.Err())
		case <-time.After(r.retryDelay):
		}
	}
	return func(ctx context.Context) error {
		n, err := unlockScript.Run(ctx, r.client, []string{full}, token).Int()
		if err != nil {
			return fmt.Errorf("releasing commit lock %q: %w", full, err)
		}
		if n == 0 {
			return fmt.Errorf("releasing commit lock %q: %w", full, ErrLockLost)
		}
		return nil
	}, nil
}
