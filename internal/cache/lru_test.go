package cache

import (
	"errors"
	"testing"
	"time"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %v, %v", v, ok)
	}
	if c.Stats().Evictions != 1 {
		t.Fatalf("evictions = %d", c.Stats().Evictions)
	}
}

func TestLRUCache_ExpiresEntries(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("other", "v")
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired removed %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUCache_GetOrLoad(t *testing.T) {
	c := NewLRUCache[[]string](4, time.Minute)
	calls := 0
	load := func() ([]string, error) {
		calls++
		return []string{"salary"}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("income", load)
		if err != nil || len(v) != 1 {
			t.Fatalf("GetOrLoad = %v, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("loader called %d times", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrLoad("expense", func() ([]string, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if _, ok := c.Get("expense"); ok {
		t.Fatal("failed loads must not be cached")
	}

	st := c.Stats()
	if st.Hits != 2 {
		t.Fatalf("hits = %d", st.Hits)
	}
}

func TestManager_Sweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewLRUCache[int](4, time.Second)
	a.now = func() time.Time { return now }
	b := NewLRUCache[int](4, time.Hour)
	b.now = func() time.Time { return now }
	a.Set("x", 1)
	b.Set("y", 2)

	m := NewManager(a)
	m.Register(b)
	now = now.Add(time.Minute)

	if n := m.Sweep(); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}
}
