package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	mu  sync.Mutex
	ops map[string]int
}

func (o *countingObserver) CacheFallback(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ops == nil {
		o.ops = map[string]int{}
	}
	o.ops[op]++
}

func (o *countingObserver) count(op string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ops[op]
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestDualStore_RedisHit(t *testing.T) {
	mr, client := setupRedis(t)
	obs := &countingObserver{}
	store := NewDualStore(client, WithObserver(obs))
	ctx := context.Background()

	store.Put(ctx, "k", []byte("v1"), time.Minute)

	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	val, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), val)
	assert.Zero(t, obs.count("put"))
	assert.Zero(t, obs.count("get"))
}

func TestDualStore_RedisTTLExpires(t *testing.T) {
	mr, client := setupRedis(t)
	store := NewDualStore(client)
	ctx := context.Background()

	store.Put(ctx, "k", []byte("v"), 10*time.Second)
	mr.FastForward(11 * time.Second)

	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestDualStore_FallbackWhenRedisDown(t *testing.T) {
	mr, client := setupRedis(t)
	obs := &countingObserver{}
	store := NewDualStore(client, WithObserver(obs))
	ctx := context.Background()

	mr.Close()

	store.Put(ctx, "k", []byte("v"), time.Minute)
	assert.Equal(t, 1, obs.count("put"))

	val, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)
	assert.Zero(t, obs.count("get"), "a live fallback entry is served without asking redis")

	store.Delete(ctx, "k")
	assert.Equal(t, 1, obs.count("delete"))
	_, ok = store.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 1, obs.count("get"))
}

func TestDualStore_OutageWriteShadowsOlderRedisValue(t *testing.T) {
	mr, client := setupRedis(t)
	store := NewDualStore(client)
	ctx := context.Background()

	store.Put(ctx, "k", []byte("v1"), time.Minute)

	mr.Close()
	store.Put(ctx, "k", []byte("v2"), time.Minute)
	require.NoError(t, mr.Restart())

	// Redis still holds v1 from before the outage.
	stale, err := mr.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v1", stale)

	val, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), val)

	store.Put(ctx, "k", []byte("v3"), time.Minute)
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v3", got)
	val, ok = store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v3"), val)
}

func TestDualStore_OutageWritesVisibleAfterRecovery(t *testing.T) {
	mr, client := setupRedis(t)
	store := NewDualStore(client)
	ctx := context.Background()

	mr.Close()
	store.Put(ctx, "k", []byte("during-outage"), time.Minute)
	require.NoError(t, mr.Restart())

	// Redis is empty after the restart; the fallback copy is still served.
	val, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("during-outage"), val)

	// A successful write moves the key back to redis only.
	store.Put(ctx, "k", []byte("recovered"), time.Minute)
	assert.Zero(t, store.Sweep())
	store.mu.Lock()
	_, inMemory := store.memory["k"]
	store.mu.Unlock()
	assert.False(t, inMemory)

	val, ok = store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("recovered"), val)
}

func TestDualStore_MemoryExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewDualStore(nil, WithClock(clock.Now))
	ctx := context.Background()

	store.Put(ctx, "short", []byte("a"), time.Second)
	store.Put(ctx, "long", []byte("b"), time.Hour)

	_, ok := store.Get(ctx, "short")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = store.Get(ctx, "short")
	assert.False(t, ok, "entry is gone exactly at its expiry")

	clock.Advance(time.Minute)
	_, ok = store.Get(ctx, "long")
	assert.True(t, ok)
}

func TestDualStore_Sweep(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewDualStore(nil, WithClock(clock.Now))
	ctx := context.Background()

	store.Put(ctx, "a", []byte("1"), time.Second)
	store.Put(ctx, "b", []byte("2"), time.Second)
	store.Put(ctx, "c", []byte("3"), time.Hour)

	assert.Zero(t, store.Sweep())
	clock.Advance(2 * time.Second)
	assert.Equal(t, 2, store.Sweep())

	_, ok := store.Get(ctx, "c")
	assert.True(t, ok)
}

func TestDualStore_NilClientDeleteIsSafe(t *testing.T) {
	store := NewDualStore(nil)
	ctx := context.Background()

	store.Delete(ctx, "missing")
	store.Put(ctx, "k", []byte("v"), time.Minute)
	store.Delete(ctx, "k")
	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)
}
