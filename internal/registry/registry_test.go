package registry

import (
	"sync"
	"testing"

	"github.com/fentz26/interleave/internal/strategy"
)

func newTestOpStrategy() strategy.OperationStrategy {
	return strategy.NewRandom(nil, 100)
}

func TestGetOrCreateReturnsSameSchedulerForSameID(t *testing.T) {
	r := New()
	s1 := r.GetOrCreate("sess-1", newTestOpStrategy(), nil, nil)
	s2 := r.GetOrCreate("sess-1", newTestOpStrategy(), nil, nil)

	if s1 != s2 {
		t.Fatal("expected GetOrCreate to return the same scheduler for the same id")
	}
	if r.Count() != 1 {
		t.Fatalf("expected 1 registered scheduler, got %d", r.Count())
	}
}

func TestGetReturnsFalseForUnknownID(t *testing.T) {
	r := New()
	if _, ok := r.Get("unknown"); ok {
		t.Fatal("expected Get to report false for an unregistered id")
	}
}

func TestRemoveDropsScheduler(t *testing.T) {
	r := New()
	r.GetOrCreate("sess-1", newTestOpStrategy(), nil, nil)
	r.Remove("sess-1")

	if _, ok := r.Get("sess-1"); ok {
		t.Fatal("expected scheduler to be gone after Remove")
	}
	if r.Count() != 0 {
		t.Fatalf("expected 0 registered schedulers, got %d", r.Count())
	}
}

func TestGetOrCreateConcurrentCallsCreateOnlyOne(t *testing.T) {
	r := New()
	var wg sync.WaitGroup

	results := make([]string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sch := r.GetOrCreate("shared", newTestOpStrategy(), nil, nil)
			results[i] = sch.ID()
		}(i)
	}
	wg.Wait()

	for _, id := range results {
		if id != "shared" {
			t.Fatalf("expected every caller to observe the same scheduler id, got %q", id)
		}
	}
	if r.Count() != 1 {
		t.Fatalf("expected exactly 1 scheduler after concurrent GetOrCreate, got %d", r.Count())
	}
}
