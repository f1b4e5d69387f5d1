package cache_test

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"interpcore/pkg/cache"
)

type exec struct{ name string }

var (
	execA   = &exec{"a"}
	execB   = &exec{"b"}
	execOld = &exec{"old"}
)

func TestAddGetRemove(t *testing.T) {
	c := cache.New()

	if !c.AddOrUpdate("foo", execA, false) {
		t.Fatal("AddOrUpdate failed")
	}
	if c.Count() != 1 {
		t.Errorf("expected count 1, got %d", c.Count())
	}

	got, ok := c.TryGet("foo", true)
	if !ok || got != execA {
		t.Errorf("TryGet(foo, true) = (%v, %v), want (execA, true)", got, ok)
	}

	if !c.Remove("foo", false) {
		t.Error("Remove(foo) should report removal")
	}
	if c.Count() != 0 {
		t.Errorf("expected count 0, got %d", c.Count())
	}
	if c.Remove("foo", false) {
		t.Error("second Remove(foo) should report nothing removed")
	}
}

func TestAddOrUpdateOverwrites(t *testing.T) {
	c := cache.New(cache.WithStatistics())

	c.AddOrUpdate("foo", execA, false)
	if !c.AddOrUpdate("foo", execB, false) {
		t.Fatal("update failed")
	}
	if c.Count() != 1 {
		t.Errorf("expected count 1, got %d", c.Count())
	}

	got, ok := c.TryGet("foo", true)
	if !ok || got != execB {
		t.Errorf("TryGet(foo, true) = (%v, %v), want (execB, true)", got, ok)
	}

	stats := c.Statistics()
	if stats.Get(cache.Add) != 1 || stats.Get(cache.Change) != 1 {
		t.Errorf("expected add=1 change=1, got %s", stats.String(true))
	}
}

func TestNegativeEntry(t *testing.T) {
	c := cache.New()
	c.AddOrUpdate("foo", nil, false)

	if _, ok := c.TryGet("foo", true); ok {
		t.Error("validated lookup of a nil entry should miss")
	}

	got, ok := c.TryGet("foo", false)
	if !ok || got != nil {
		t.Errorf("raw lookup = (%v, %v), want (nil, true)", got, ok)
	}

	if _, ok := c.TryGet("bar", false); ok {
		t.Error("absent name should miss")
	}
}

func TestInvalidateClearsEverything(t *testing.T) {
	tests := []struct {
		name  string
		apply func(c *cache.Cache) bool
		count int
	}{
		{"AddOrUpdate", func(c *cache.Cache) bool { return c.AddOrUpdate("x", execA, true) }, 1},
		{"AddOrUpdate existing", func(c *cache.Cache) bool { return c.AddOrUpdate("a", execA, true) }, 1},
		{"Rename", func(c *cache.Cache) bool { return c.Rename("a", "z", execA, true) }, 1},
		{"Remove", func(c *cache.Cache) bool { return c.Remove("missing", true) }, 0},
	}

	for _, test := range tests {
		c := cache.New(cache.WithStatistics())
		for i := 0; i < 5; i++ {
			c.AddOrUpdate(fmt.Sprintf("%c", 'a'+i), execOld, false)
		}

		if !test.apply(c) {
			t.Errorf("%s: expected success", test.name)
		}
		if c.Count() != test.count {
			t.Errorf("%s: expected count %d, got %d", test.name, test.count, c.Count())
		}
		if c.Statistics().Get(cache.Clear) != 1 {
			t.Errorf("%s: expected one clear, got %d", test.name, c.Statistics().Get(cache.Clear))
		}
	}
}

func TestRenameAlwaysWins(t *testing.T) {
	c := cache.New()
	c.AddOrUpdate("b", execOld, false)

	if !c.Rename("a", "b", execA, false) {
		t.Fatal("Rename failed")
	}
	if c.Count() != 1 {
		t.Errorf("expected only b, count %d", c.Count())
	}
	got, ok := c.TryGet("b", true)
	if !ok || got != execA {
		t.Errorf("b = (%v, %v), want execA", got, ok)
	}

	c.AddOrUpdate("c", execB, false)
	c.Rename("c", "d", execB, false)
	if _, ok := c.TryGet("c", false); ok {
		t.Error("old name should be gone after rename")
	}
	if got, _ := c.TryGet("d", true); got != execB {
		t.Errorf("d = %v, want execB", got)
	}
}

func TestNilCacheIsAlwaysMiss(t *testing.T) {
	var c *cache.Cache

	c.Clear()
	if c.Count() != 0 {
		t.Error("nil cache should be empty")
	}
	if _, ok := c.TryGet("foo", false); ok {
		t.Error("nil cache should miss")
	}
	if c.AddOrUpdate("foo", execA, false) {
		t.Error("nil cache should refuse AddOrUpdate")
	}
	if c.Rename("a", "b", execA, false) {
		t.Error("nil cache should refuse Rename")
	}
	if c.Remove("foo", true) {
		t.Error("nil cache should refuse Remove")
	}
	if c.Statistics() != nil {
		t.Error("nil cache has no statistics")
	}
}

func TestCaseSensitiveNames(t *testing.T) {
	c := cache.New()
	c.AddOrUpdate("Foo", execA, false)

	if _, ok := c.TryGet("foo", false); ok {
		t.Error("lookup must be case-sensitive")
	}
}

// TestCountMatchesLiveKeys replays random non-invalidating operations against
// a plain map and checks that Count and lookups agree with it.
func TestCountMatchesLiveKeys(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	names := []string{"a", "b", "c", "d", "e", "f"}
	values := []cache.Executable{execA, execB, execOld, nil}

	c := cache.New()
	model := map[string]cache.Executable{}

	for step := 0; step < 2000; step++ {
		name := names[rng.Intn(len(names))]
		value := values[rng.Intn(len(values))]

		switch rng.Intn(3) {
		case 0:
			c.AddOrUpdate(name, value, false)
			model[name] = value
		case 1:
			other := names[rng.Intn(len(names))]
			c.Rename(name, other, value, false)
			delete(model, name)
			model[other] = value
		case 2:
			_, present := model[name]
			if removed := c.Remove(name, false); removed != present {
				t.Fatalf("step %d: Remove(%s) = %v, model says %v", step, name, removed, present)
			}
			delete(model, name)
		}

		if c.Count() != len(model) {
			t.Fatalf("step %d: count %d, model %d", step, c.Count(), len(model))
		}

		for _, n := range names {
			want, present := model[n]
			got, ok := c.TryGet(n, false)
			if ok != present || got != want {
				t.Fatalf("step %d: raw %s = (%v, %v), want (%v, %v)", step, n, got, ok, want, present)
			}
			_, ok = c.TryGet(n, true)
			if ok != (present && want != nil) {
				t.Fatalf("step %d: validated %s = %v", step, n, ok)
			}
		}
	}
}

func TestStatisticsConcurrentWithLockedMutation(t *testing.T) {
	c := cache.New(cache.WithStatistics())

	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				mu.Lock()
				c.AddOrUpdate(fmt.Sprintf("cmd%d", i%10), execA, false)
				c.TryGet(fmt.Sprintf("cmd%d", (i+w)%20), true)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	stats := c.Statistics()
	if got := stats.Get(cache.Add) + stats.Get(cache.Change); got != 8*500 {
		t.Errorf("expected %d add+change events, got %d", 8*500, got)
	}
	if got := stats.Get(cache.Found) + stats.Get(cache.NotFound); got != 8*500 {
		t.Errorf("expected %d lookups, got %d", 8*500, got)
	}
}
