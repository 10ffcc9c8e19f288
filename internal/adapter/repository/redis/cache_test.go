package redis

import (
	"context"
	"testing"
	"time"
)

func TestCacheSetAndGet(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "account:01ABC", `{"balance":"10"}`, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	val, err := cache.Get(ctx, "account:01ABC")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if val != `{"balance":"10"}` {
		t.Fatalf("unexpected value: %s", val)
	}
}

func TestCacheGetMissing(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)

	if _, err := cache.Get(context.Background(), "absent"); err == nil {
		t.Fatalf("expected error for missing key")
	}
}

func TestCacheDelete(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "account:01ABC", "stale", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if err := cache.Delete(ctx, "account:01ABC"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := cache.Get(ctx, "account:01ABC"); err == nil {
		t.Fatalf("expected error getting deleted key")
	}
}

func TestCacheExpiry(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "account:01ABC", "short", time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	mr.FastForward(2 * time.Second)

	if _, err := cache.Get(ctx, "account:01ABC"); err == nil {
		t.Fatalf("expected error getting expired key")
	}
}
