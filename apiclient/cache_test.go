package apiclient

import (
	"testing"
	"time"
)

func TestCacheKeyDeterminism(t *testing.T) {
	a := CacheKey("GET", "https://api.example.com/matters", "")
	b := CacheKey("GET", "https://api.example.com/matters", "")
	if a != b {
		t.Errorf("identical requests produced different keys: %q vs %q", a, b)
	}

	variants := []string{
		CacheKey("POST", "https://api.example.com/matters", ""),
		CacheKey("GET", "https://api.example.com/documents", ""),
		CacheKey("GET", "https://api.example.com/matters", `{"q":"x"}`),
	}
	for _, v := range variants {
		if v == a {
			t.Errorf("differing request collided with %q", a)
		}
	}
}

func TestCacheFreshnessWindow(t *testing.T) {
	c := NewCache()
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set("k", "v")

	c.now = func() time.Time { return base.Add(59 * time.Second) }
	e, ok := c.Get("k")
	if !ok {
		t.Fatal("entry missing")
	}
	if !c.IsFresh(e, time.Minute) {
		t.Error("entry younger than TTL reported stale")
	}

	c.now = func() time.Time { return base.Add(time.Minute) }
	if c.IsFresh(e, time.Minute) {
		t.Error("entry at exactly TTL age reported fresh; age >= TTL must be stale")
	}
}

func TestCacheSetOverwrites(t *testing.T) {
	c := NewCache()
	c.Set("k", "old")
	c.Set("k", "new")
	e, ok := c.Get("k")
	if !ok || e.Value != "new" {
		t.Errorf("Get() = %v, %v; want overwritten value", e.Value, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache()
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("entry survived Clear")
	}
}
