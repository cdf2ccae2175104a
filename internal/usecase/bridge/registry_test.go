package bridge

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistry_RegisterAndCount(t *testing.T) {
	reg := NewRegistry(nil)

	s1 := NewSession("S1", "CA1", nil, nil, nil, reg, nil)
	if _, created := reg.Register(s1); !created {
		t.Fatal("expected first registration to succeed")
	}
	if reg.Count() != 1 {
		t.Fatalf("expected count 1, got %d", reg.Count())
	}

	got, ok := reg.Get("S1")
	if !ok || got != s1 {
		t.Fatal("Get returned wrong session")
	}
}

func TestRegistry_DuplicateReturnsExisting(t *testing.T) {
	reg := NewRegistry(nil)

	s1 := NewSession("S1", "CA1", nil, nil, nil, reg, nil)
	s2 := NewSession("S1", "CA1", nil, nil, nil, reg, nil)
	reg.Register(s1)

	got, created := reg.Register(s2)
	if created {
		t.Fatal("duplicate registration must not create")
	}
	if got != s1 {
		t.Fatal("duplicate registration must return the existing session")
	}
	if reg.Count() != 1 {
		t.Fatalf("expected count 1, got %d", reg.Count())
	}
}

func TestRegistry_UnregisterIdempotent(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(NewSession("S1", "CA1", nil, nil, nil, reg, nil))

	reg.Unregister("S1")
	reg.Unregister("S1")
	reg.Unregister("never-existed")

	if reg.Count() != 0 {
		t.Fatalf("expected count 0, got %d", reg.Count())
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("S%d", n)
			reg.Register(NewSession(id, "CA", nil, nil, nil, reg, nil))
			reg.Get(id)
			reg.Count()
			reg.Snapshot()
			reg.Unregister(id)
		}(i)
	}
	wg.Wait()

	if reg.Count() != 0 {
		t.Fatalf("expected empty registry, got %d", reg.Count())
	}
}
