package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisLockMutualExclusion(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	first := NewRedisLock(client, "sweep", time.Minute)
	second := NewRedisLock(client, "sweep", time.Minute)

	ok, err := first.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !ok {
		t.Fatal("first acquire should succeed")
	}

	ok, err = second.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if ok {
		t.Fatal("second acquire should fail while lock is held")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	ok, err = second.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if !ok {
		t.Fatal("acquire should succeed after release")
	}
}

func TestRedisLockReleaseOnlyOwn(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	owner := NewRedisLock(client, "sweep", time.Minute)
	other := NewRedisLock(client, "sweep", time.Minute)

	if ok, _ := owner.Acquire(ctx); !ok {
		t.Fatal("owner acquire should succeed")
	}

	// A non-owner release must not free the lock.
	if err := other.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := other.Acquire(ctx); ok {
		t.Fatal("lock should still be held by owner")
	}
}

func TestRedisLockExtend(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	owner := NewRedisLock(client, "sweep", time.Minute)
	if ok, _ := owner.Acquire(ctx); !ok {
		t.Fatal("acquire should succeed")
	}
	if err := owner.Extend(ctx, 2*time.Minute); err != nil {
		t.Fatalf("extend: %v", err)
	}
}

func TestNewLockPrefersRedis(t *testing.T) {
	client := newTestRedis(t)

	lock := NewLock(client, nil, "sweep", time.Minute)
	if _, ok := lock.(*RedisLock); !ok {
		t.Fatalf("expected RedisLock, got %T", lock)
	}

	lock = NewLock(nil, nil, "sweep", time.Minute)
	if _, ok := lock.(*PGAdvisoryLock); !ok {
		t.Fatalf("expected PGAdvisoryLock, got %T", lock)
	}
}
