package cache

import (
	"testing"
	"time"

	"skincare-client/pkg/cache"
)

func TestMemoryCacheNoExpirationSurvivesDefaultTTL(t *testing.T) {
	c := NewMemoryCache(10*time.Millisecond, time.Minute)
	c.Set("product:1", "kept", cache.NoExpiration)
	c.Set("product:2", "gone", 0)

	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("product:1"); !ok {
		t.Fatalf("expected non-expiring entry to survive")
	}
	if _, ok := c.Get("product:2"); ok {
		t.Fatalf("expected default TTL entry to expire")
	}
}

func TestMemoryCacheDeletePrefix(t *testing.T) {
	c := NewMemoryCache(0, time.Minute)
	c.Set("location:provinces", 1, 0)
	c.Set("location:localities:2", 2, 0)
	c.Set("product:9", 3, 0)

	c.DeletePrefix("location:")

	if _, ok := c.Get("location:provinces"); ok {
		t.Fatalf("expected location entries removed")
	}
	if _, ok := c.Get("product:9"); !ok {
		t.Fatalf("expected unrelated entry to stay")
	}
}
