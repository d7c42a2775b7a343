package lock

import (
	"context"
	"sync"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/screenflow/screenflow/pkg/errors"
)

// Defaults for [Redis].
const (
	DefaultTTL   = 5 * time.Minute
	DefaultRetry = 100 * time.Millisecond
)

// releaseScript deletes the lock key only while it still holds our token, so
// an expired lock taken over by another worker is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker backed by a Redis key per flow. The key expires after
// TTL so a crashed worker cannot hold a flow forever.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
	logger *log.Logger
}

// RedisOption configures a [Redis] locker.
type RedisOption func(*Redis)

// WithLogger sets the logger that reports failed releases.
func WithLogger(l *log.Logger) RedisOption {
	return func(r *Redis) { r.logger = l }
}

// NewRedis creates a Redis locker. A zero ttl uses DefaultTTL.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration, opts ...RedisOption) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Redis{client: client, prefix: prefix, ttl: ttl, retry: DefaultRetry, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire implements Locker. It polls SET NX until it wins or ctx is done.
func (r *Redis) Acquire(ctx context.Context, flowID string) (func(), error) {
	key := r.prefix + "lock:" + flowID
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "acquire lock for flow %s", flowID)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(errors.ErrCodeFlowLocked, ctx.Err(), "flow %s is being built", flowID)
		case <-time.After(r.retry):
		}
	}

	return r.unlocker(ctx, flowID, key, token), nil
}

// unlocker returns the release function for a held key. A failed release is
// logged; the key then stays until its TTL expires.
func (r *Redis) unlocker(ctx context.Context, flowID, key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// Release even if the caller's context is already cancelled.
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
				r.logger.Warn("could not release flow lock", "flow", flowID, "ttl", r.ttl, "err", err)
			}
		})
	}
}

var _ Locker = (*Redis)(nil)
