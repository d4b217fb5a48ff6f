// Package runlock keeps two processes from driving the same account at the
// same time. A code accepted for one login is usually rejected as replayed
// for the other, so both would burn their OTP budget.
package runlock

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned by Acquire when another owner holds the lock.
var ErrHeld = errors.New("runlock: already held")

const (
	// DefaultTTL bounds how long a crashed owner can block the account.
	DefaultTTL = 5 * time.Minute

	keyPrefix = "authpilot:run:"
)

// Locker acquires and releases per-account run locks.
type Locker interface {
	// Acquire takes the lock for key and returns the function that releases it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// Key derives the lock key for an account on a site. The username never
// appears in Redis in clear text.
func Key(baseURL, username string) string {
	sum := sha256.Sum256([]byte(baseURL + "|" + username))
	return hex.EncodeToString(sum[:])
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker backed by SET NX with a TTL.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis returns a Redis locker.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client, prefix: keyPrefix}
}

// Acquire stores a random token under the key. Release deletes the key only
// while it still holds that token, so an expired lock re-taken by another
// process is left alone.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	fk := r.prefix + key
	acquired, err := r.client.SetNX(ctx, fk, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrHeld
	}

	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, r.client, []string{fk}, token).Err()
	}, nil
}

func newToken() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// Noop is used when no Redis is configured. Every Acquire succeeds.
type Noop struct{}

// Acquire always succeeds.
func (Noop) Acquire(context.Context, string, time.Duration) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}
