package cache

import (
	"context"
	"testing"
	"time"

	"github.com/opensource-finance/shieldaml/internal/domain"
)

func domainCacheConfig(typ string) domain.CacheConfig {
	return domain.CacheConfig{Type: typ, LocalMaxSize: 100}
}

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache(10)
	ctx := context.Background()

	val, err := c.Get(ctx, "missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if val != nil {
		t.Errorf("Get(missing) = %v, want nil", val)
	}

	if err := c.Set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	val, err = c.Get(ctx, "k1")
	if err != nil {
		t.Fatal(err)
	}
	if string(val) != "v1" {
		t.Errorf("Get(k1) = %q, want v1", val)
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache(10)
	ctx := context.Background()

	if err := c.Set(ctx, "k1", []byte("v1"), 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	val, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatal(err)
	}
	if val != nil {
		t.Errorf("expired key returned %q", val)
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache(2)
	ctx := context.Background()

	c.Set(ctx, "k1", []byte("v1"), time.Minute)
	c.Set(ctx, "k2", []byte("v2"), time.Minute)

	// Touch k1 so k2 is the eviction candidate.
	c.Get(ctx, "k1")

	c.Set(ctx, "k3", []byte("v3"), time.Minute)

	if val, _ := c.Get(ctx, "k2"); val != nil {
		t.Error("k2 should have been evicted")
	}
	if val, _ := c.Get(ctx, "k1"); string(val) != "v1" {
		t.Error("k1 should have survived eviction")
	}

	size, capacity := c.Stats()
	if size != 2 || capacity != 2 {
		t.Errorf("stats = %d/%d, want 2/2", size, capacity)
	}
}

func TestLRUCacheDelete(t *testing.T) {
	c := NewLRUCache(10)
	ctx := context.Background()

	c.Set(ctx, "k1", []byte("v1"), time.Minute)
	if err := c.Delete(ctx, "k1"); err != nil {
		t.Fatal(err)
	}
	if val, _ := c.Get(ctx, "k1"); val != nil {
		t.Error("deleted key still present")
	}

	// Deleting a missing key is not an error.
	if err := c.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}
}

func TestLRUCacheIncrementCounter(t *testing.T) {
	c := NewLRUCache(10)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.IncrementCounter(ctx, "velocity:CUS-001", time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("IncrementCounter() = %d, want %d", got, want)
		}
	}

	// A fresh key starts its own window.
	got, err := c.IncrementCounter(ctx, "velocity:CUS-002", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("new counter = %d, want 1", got)
	}
}

func TestLRUCacheCounterWindowReset(t *testing.T) {
	c := NewLRUCache(10)
	ctx := context.Background()

	c.IncrementCounter(ctx, "k", 10*time.Millisecond)
	c.IncrementCounter(ctx, "k", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	got, err := c.IncrementCounter(ctx, "k", 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("counter after window expiry = %d, want 1", got)
	}
}

func TestNewMemoryCache(t *testing.T) {
	c, err := New(domainCacheConfig("memory"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestNewUnsupportedType(t *testing.T) {
	if _, err := New(domainCacheConfig("memcached")); err == nil {
		t.Error("expected error for unsupported cache type")
	}
}
