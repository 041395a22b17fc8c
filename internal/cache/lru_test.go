package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLRUCache_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](4, time.Minute).WithClock(clock.Now)

	c.Set("2026-03", "少喝飲料")
	if v, ok := c.Get("2026-03"); !ok || v != "少喝飲料" {
		t.Fatalf("Get = %q, %v", v, ok)
	}

	clock.Advance(2 * time.Minute)
	if _, ok := c.Get("2026-03"); ok {
		t.Fatal("expired entry returned")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry not removed, size %d", c.Size())
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a was recently used and should remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be present")
	}
}

func TestManager_Sweep(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewLRUCache[int](10, time.Second).WithClock(clock.Now)
	c.Set("a", 1)
	c.Set("b", 2)

	m := NewManager(nil)
	m.Register(c)
	clock.Advance(time.Minute)

	if n := m.Sweep(); n != 2 {
		t.Fatalf("Sweep removed %d, want 2", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

func TestLRUCache_Purge(t *testing.T) {
	var c Cache[int] = NewLRUCache[int](3, time.Hour)
	c.Set("a", 1)
	c.(*LRUCache[int]).Purge()
	if c.Size() != 0 {
		t.Fatal("purge left entries")
	}
}
