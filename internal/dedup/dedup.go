// Package dedup remembers recently handled keys so that Telegram's
// at-least-once webhook delivery does not create a reminder twice.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper reports whether a key was seen within its TTL. The first call
// for a key returns false and records it.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
}

const keyPrefix = "remindbot:update:"

// Redis stores keys with SET NX EX so several bot instances share them.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, keyPrefix+key, 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return !ok, nil
}

// Memory is a process-local Deduper.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	until map[string]time.Time
	ops   int
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, until: map[string]time.Time{}}
}

func (m *Memory) Seen(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.ops++
	if m.ops%256 == 0 {
		m.pruneLocked(now)
	}

	if exp, ok := m.until[key]; ok && now.Before(exp) {
		return true, nil
	}
	m.until[key] = now.Add(m.ttl)
	return false, nil
}

func (m *Memory) pruneLocked(now time.Time) {
	for k, exp := range m.until {
		if !now.Before(exp) {
			delete(m.until, k)
		}
	}
}
