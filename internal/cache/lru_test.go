package cache

import (
	"testing"
)

func TestLRUCacheEviction(t *testing.T) {
	var evicted []string
	c := NewLRUCache[int](2, func(k string) { evicted = append(evicted, k) })
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("a", 10)
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if got := c.Keys(); len(got) != 2 || got[0] != "c" || got[1] != "a" {
		t.Errorf("Keys() = %v, want [c a]", got)
	}
	if v, _ := c.Get("a"); v != 10 {
		t.Errorf("Get(a) = %d, want 10", v)
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Errorf("evicted = %v, want [b]", evicted)
	}
}

func TestLRUCachePurge(t *testing.T) {
	evictions := 0
	c := NewLRUCache[int](0, func(string) { evictions++ })
	for i, k := range []string{"a", "b", "c"} {
		c.Set(k, i)
	}
	if got := len(c.Keys()); got != 3 {
		t.Fatalf("len(Keys()) = %d, want 3", got)
	}
	c.Purge()
	if len(c.Keys()) != 0 {
		t.Errorf("cache not empty after Purge")
	}
	if _, ok := c.Get("a"); ok {
		t.Error("a present after Purge")
	}
	if evictions != 0 {
		t.Errorf("evictions = %d, want 0", evictions)
	}
}
