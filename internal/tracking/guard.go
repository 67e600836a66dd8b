package tracking

import (
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Guard admits at most one in-flight beacon per key. A caller that fails to
// acquire drops its beacon instead of queueing it.
type Guard interface {
	TryAcquire(key string) bool
	Release(key string)
}

// LocalGuard is a process-wide guard.
type LocalGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{inFlight: make(map[string]struct{})}
}

func (g *LocalGuard) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[key]; busy {
		return false
	}
	g.inFlight[key] = struct{}{}
	return true
}

func (g *LocalGuard) Release(key string) {
	g.mu.Lock()
	delete(g.inFlight, key)
	g.mu.Unlock()
}

// Locker is the subset of the Redis repository the distributed guard needs.
type Locker interface {
	AcquireLock(key string, expiration time.Duration) (bool, error)
	ReleaseLock(key string) error
}

// RedisGuard shares the in-flight flag across server instances.
type RedisGuard struct {
	locker Locker
	ttl    time.Duration
}

func NewRedisGuard(locker Locker, ttl time.Duration) *RedisGuard {
	return &RedisGuard{locker: locker, ttl: ttl}
}

func (g *RedisGuard) TryAcquire(key string) bool {
	ok, err := g.locker.AcquireLock("beacon:"+key, g.ttl)
	if err != nil {
		// redis down: drop the beacon rather than risk a double fire
		zlog.Warn().Err(err).Str("key", key).Msg("Beacon guard unavailable")
		return false
	}
	return ok
}

func (g *RedisGuard) Release(key string) {
	if err := g.locker.ReleaseLock("beacon:" + key); err != nil {
		zlog.Warn().Err(err).Str("key", key).Msg("Failed to release beacon guard")
	}
}
