// Package registry maps session ids to their scheduler, in the shape of
// the teacher's mcp.Registry: a concurrency-safe lookup table that is
// constructed once and passed around explicitly, never a package-level
// singleton.
package registry

import (
	"log"
	"sync"

	"github.com/fentz26/interleave/internal/scheduler"
	"github.com/fentz26/interleave/internal/strategy"
)

// Registry is the entry point external requests use to reach a session's
// scheduler.
type Registry struct {
	mu         sync.RWMutex
	schedulers map[string]*scheduler.Scheduler
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		schedulers: make(map[string]*scheduler.Scheduler),
	}
}

// Get returns the scheduler for id, if one exists.
func (r *Registry) Get(id string) (*scheduler.Scheduler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sch, ok := r.schedulers[id]
	return sch, ok
}

// GetOrCreate returns the existing scheduler for id, or constructs one
// driven by opStrategy/delayStrategy and registers it.
func (r *Registry) GetOrCreate(id string, opStrategy strategy.OperationStrategy, delayStrategy strategy.DelayStrategy, logger *log.Logger) *scheduler.Scheduler {
	r.mu.RLock()
	sch, ok := r.schedulers[id]
	r.mu.RUnlock()
	if ok {
		return sch
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if sch, ok := r.schedulers[id]; ok {
		return sch
	}
	sch = scheduler.New(id, opStrategy, delayStrategy, logger)
	r.schedulers[id] = sch
	return sch
}

// Remove drops id's scheduler from the registry.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.schedulers, id)
}

// Count returns the number of registered schedulers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schedulers)
}

// List returns the ids of every registered scheduler.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.schedulers))
	for id := range r.schedulers {
		ids = append(ids, id)
	}
	return ids
}
