// Package cache holds the ephemeral session store: redis with a TTL, backed
// by an in-process map when redis cannot be reached.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// FallbackObserver is told every time an operation had to use the
// in-process map because redis failed.
type FallbackObserver interface {
	CacheFallback(op string)
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// DualStore never reports errors to its callers. Reads that fail on every
// backend look like a miss.
type DualStore struct {
	client   *redis.Client
	observer FallbackObserver
	now      func() time.Time

	mu     sync.Mutex
	memory map[string]memoryEntry
}

type Option func(*DualStore)

func WithObserver(o FallbackObserver) Option {
	return func(s *DualStore) { s.observer = o }
}

// WithClock overrides the clock used for fallback expiry.
func WithClock(now func() time.Time) Option {
	return func(s *DualStore) { s.now = now }
}

// NewDualStore accepts a nil client, in which case only the fallback is used.
func NewDualStore(client *redis.Client, opts ...Option) *DualStore {
	s := &DualStore{
		client: client,
		now:    time.Now,
		memory: make(map[string]memoryEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DualStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if s.client != nil {
		err := s.client.Set(ctx, key, value, ttl).Err()
		if err == nil {
			s.forget(key)
			return
		}
		s.fallback("put", key, err)
	}

	s.mu.Lock()
	s.memory[key] = memoryEntry{value: value, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
}

// Get reads the in-process copy first. A successful Put and every Delete
// clear it, so a live memory entry is always newer than whatever redis holds.
func (s *DualStore) Get(ctx context.Context, key string) ([]byte, bool) {
	if val, ok := s.memoryGet(key); ok {
		return val, true
	}
	if s.client == nil {
		return nil, false
	}
	val, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		return val, true
	}
	if !errors.Is(err, redis.Nil) {
		s.fallback("get", key, err)
	}
	return nil, false
}

func (s *DualStore) Delete(ctx context.Context, key string) {
	if s.client != nil {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			s.fallback("delete", key, err)
		}
	}
	s.forget(key)
}

// Sweep evicts expired fallback entries and returns how many were removed.
func (s *DualStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, entry := range s.memory {
		if !now.Before(entry.expiresAt) {
			delete(s.memory, key)
			removed++
		}
	}
	return removed
}

func (s *DualStore) memoryGet(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.memory[key]
	if !ok {
		return nil, false
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.memory, key)
		return nil, false
	}
	return entry.value, true
}

func (s *DualStore) forget(key string) {
	s.mu.Lock()
	delete(s.memory, key)
	s.mu.Unlock()
}

func (s *DualStore) fallback(op, key string, err error) {
	log.Warn().Err(err).Str("op", op).Str("key", key).Msg("Redis unavailable, using in-process session store")
	if s.observer != nil {
		s.observer.CacheFallback(op)
	}
}
