package client

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/voc/session-api/config"
	"gotest.tools/v3/assert"
)

func newTestRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := NewRedisClient(config.RedisConfig{
		Addrs:   []string{mr.Addr()},
		LockTTL: 10 * time.Second,
	}, "test", 100*time.Millisecond)
	assert.NilError(t, err)
	t.Cleanup(func() { rc.Close() })
	return rc, mr
}

func TestRedisRequiresAddr(t *testing.T) {
	_, err := NewRedisClient(config.RedisConfig{Addrs: []string{" "}}, "test", time.Second)
	assert.ErrorContains(t, err, "redis addr is required")
}

func TestRedisCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)

	_, err := rc.Get(ctx, "live/session/a")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// create only
	ok, err := rc.CompareAndSwap(ctx, "live/session/a", []byte(`{"sessionId":"a"}`), 0)
	assert.NilError(t, err)
	assert.Assert(t, ok)
	ok, err = rc.CompareAndSwap(ctx, "live/session/a", []byte(`{}`), 0)
	assert.NilError(t, err)
	assert.Assert(t, !ok)

	entry, err := rc.Get(ctx, "live/session/a")
	assert.NilError(t, err)
	assert.Equal(t, string(entry.Value), `{"sessionId":"a"}`)
	assert.Equal(t, entry.Index, uint64(1))
	assert.Equal(t, mr.HGet("live/session/a", fieldIndex), "1")

	// current index wins, stale index loses
	ok, err = rc.CompareAndSwap(ctx, "live/session/a", []byte("two"), entry.Index)
	assert.NilError(t, err)
	assert.Assert(t, ok)
	ok, err = rc.CompareAndSwap(ctx, "live/session/a", []byte("three"), entry.Index)
	assert.NilError(t, err)
	assert.Assert(t, !ok)

	current, err := rc.Get(ctx, "live/session/a")
	assert.NilError(t, err)
	assert.Equal(t, string(current.Value), "two")
	assert.Equal(t, current.Index, uint64(2))
}

func TestRedisLock(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)

	unlock, err := rc.Lock(ctx, "live/lock/provision/a")
	assert.NilError(t, err)
	assert.Assert(t, mr.Exists("live/lock/provision/a"))

	// held key times out
	_, err = rc.Lock(ctx, "live/lock/provision/a")
	assert.ErrorIs(t, err, ErrLockTimeout)

	// other keys are independent
	other, err := rc.Lock(ctx, "live/lock/provision/b")
	assert.NilError(t, err)
	assert.NilError(t, other.Unlock())

	assert.NilError(t, unlock.Unlock())
	assert.Assert(t, !mr.Exists("live/lock/provision/a"))
	again, err := rc.Lock(ctx, "live/lock/provision/a")
	assert.NilError(t, err)
	assert.NilError(t, again.Unlock())
}

func TestRedisLockExpires(t *testing.T) {
	ctx := context.Background()
	rc, mr := newTestRedis(t)

	stale, err := rc.Lock(ctx, "live/lock/provision/a")
	assert.NilError(t, err)
	mr.FastForward(11 * time.Second)

	fresh, err := rc.Lock(ctx, "live/lock/provision/a")
	assert.NilError(t, err)

	// releasing the expired lock leaves the new holder alone
	assert.NilError(t, stale.Unlock())
	assert.Assert(t, mr.Exists("live/lock/provision/a"))
	_, err = rc.Lock(ctx, "live/lock/provision/a")
	assert.ErrorIs(t, err, ErrLockTimeout)

	assert.NilError(t, fresh.Unlock())
	assert.Assert(t, !mr.Exists("live/lock/provision/a"))
}

func TestRedisLockCancelled(t *testing.T) {
	rc, _ := newTestRedis(t)
	held, err := rc.Lock(context.Background(), "held")
	assert.NilError(t, err)
	defer held.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = rc.Lock(ctx, "held")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisPing(t *testing.T) {
	rc, mr := newTestRedis(t)
	assert.NilError(t, rc.Ping(context.Background()))

	mr.Close()
	assert.ErrorContains(t, rc.Ping(context.Background()), "redis ping")
}
