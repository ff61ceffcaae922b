package slack

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dedupKeyPrefix = "tripdesk:slack:seen:"
	// Slack retries a delivery for a few minutes; an hour covers that with margin.
	dedupTTL = time.Hour
)

// Deduper remembers keys for a while. FirstSeen reports true only the first
// time a key is offered within the TTL.
type Deduper interface {
	FirstSeen(ctx context.Context, key string) (bool, error)
}

// MemoryDeduper is a process-local Deduper with lazy expiry.
type MemoryDeduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	if ttl <= 0 {
		ttl = dedupTTL
	}
	return &MemoryDeduper{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

func (m *MemoryDeduper) FirstSeen(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if exp, ok := m.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	m.seen[key] = now.Add(m.ttl)
	if len(m.seen) > 4096 {
		for k, exp := range m.seen {
			if !now.Before(exp) {
				delete(m.seen, k)
			}
		}
	}
	return true, nil
}

// RedisDeduper shares seen keys across replicas with SET NX.
type RedisDeduper struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = dedupTTL
	}
	return &RedisDeduper{redis: client, ttl: ttl}
}

func (r *RedisDeduper) FirstSeen(ctx context.Context, key string) (bool, error) {
	return r.redis.SetNX(ctx, dedupKeyPrefix+key, "1", r.ttl).Result()
}
