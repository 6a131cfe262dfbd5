// ABOUTME: Per-account locks that keep pipeline stages of one account from overlapping
// ABOUTME: In-process MemoryLocker and a Redis SET NX PX locker for multi-replica deployments
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrAccountBusy is returned when another run holds the account's lock.
var ErrAccountBusy = errors.New("account pipeline already running")

// AccountLocker grants exclusive access to one account's pipeline. Acquire
// never blocks waiting for the holder; it fails with ErrAccountBusy.
type AccountLocker interface {
	Acquire(ctx context.Context, userID uuid.UUID, ttl time.Duration) (release func(), err error)
}

type MemoryLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]bool
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[uuid.UUID]bool)}
}

func (m *MemoryLocker) Acquire(ctx context.Context, userID uuid.UUID, ttl time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[userID] {
		return nil, ErrAccountBusy
	}
	m.held[userID] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.held, userID)
			m.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the lock only if it still carries our token.
// KEYS[1] = lock key, ARGV[1] = token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisClient mirrors the connection options the rest of the config uses.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client, prefix: "introengine:lock:"}
}

// Acquire sets the lock key with a random token that expires after ttl, so a
// crashed holder cannot wedge the account.
func (r *RedisLocker) Acquire(ctx context.Context, userID uuid.UUID, ttl time.Duration) (func(), error) {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	key := r.prefix + userID.String()
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock error: %w", err)
	}
	if !ok {
		return nil, ErrAccountBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(rctx, r.client, []string{key}, token).Err()
		})
	}, nil
}
