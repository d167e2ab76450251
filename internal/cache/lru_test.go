package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestLRU_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[string](10, time.Minute, WithClock(clock.now))

	c.Set("k", "v")
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}

	clock.advance(61 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected entry to expire")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be removed on read, len=%d", c.Len())
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive as recently used")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be present")
	}
}

func TestLRU_Add(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := NewLRU[int](4, time.Minute, WithClock(clock.now))

	if !c.Add("k", 1) {
		t.Fatal("first Add should store")
	}
	if c.Add("k", 2) {
		t.Fatal("second Add should not overwrite a live entry")
	}
	if v, _ := c.Get("k"); v != 1 {
		t.Fatalf("expected 1, got %d", v)
	}

	clock.advance(2 * time.Minute)
	if !c.Add("k", 3) {
		t.Fatal("Add should replace an expired entry")
	}
}

func TestJanitor_Sweep(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := NewLRU[int](10, time.Minute, WithClock(clock.now))
	c.Set("a", 1)
	c.Set("b", 2)
	clock.advance(30 * time.Second)
	c.Set("c", 3)
	clock.advance(45 * time.Second)

	j := NewJanitor(time.Hour)
	j.Register("test", c)
	if n := j.Sweep(context.Background()); n != 2 {
		t.Fatalf("expected 2 entries removed, got %d", n)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry left, got %d", c.Len())
	}
}
