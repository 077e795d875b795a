package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockUnavailable is returned when a conversation lock could not be taken
// before the context ended.
var ErrLockUnavailable = errors.New("state: conversation lock unavailable")

// Locker serializes work on one conversation id. The returned func releases
// the lock and is safe to call once.
type Locker interface {
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

// KeyedMutex is an in-process Locker. Entries are dropped when no holder or
// waiter remains.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedEntry)}
}

var _ Locker = (*KeyedMutex)(nil)

func (k *KeyedMutex) Lock(ctx context.Context, id string) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[id]
	if !ok {
		e = &keyedEntry{sem: make(chan struct{}, 1)}
		k.entries[id] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		k.release(id, e)
		return nil, fmt.Errorf("%w: %w", ErrLockUnavailable, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			k.release(id, e)
		})
	}, nil
}

func (k *KeyedMutex) release(id string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, id)
	}
}

// Size reports how many ids currently have holders or waiters.
func (k *KeyedMutex) Size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every replica pointing at the same Redis.
// Locks expire after ttl so a crashed holder cannot wedge a conversation.
type RedisLocker struct {
	redis *redis.Client
	ttl   time.Duration
	retry time.Duration
}

func NewRedisLocker(client *redis.Client, ttl, retry time.Duration) *RedisLocker {
	if client == nil {
		panic("state: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if retry <= 0 {
		retry = 25 * time.Millisecond
	}
	return &RedisLocker{redis: client, ttl: ttl, retry: retry}
}

var _ Locker = (*RedisLocker)(nil)

func lockKey(id string) string {
	return fmt.Sprintf("honeypot:lock:%s", id)
}

func (l *RedisLocker) Lock(ctx context.Context, id string) (func(), error) {
	key := lockKey(id)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrLockUnavailable, ctx.Err())
			}
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrLockUnavailable, ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release with a fresh context so a cancelled request still frees the lock.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(rctx, l.redis, []string{key}, token).Err()
		})
	}, nil
}
