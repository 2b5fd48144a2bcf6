package strategy

import (
	"sync"
	"time"

	"github.com/fentz26/interleave/internal/prng"
)

const rapidContextSwitchCeiling = 300 * time.Millisecond

// RapidContextSwitchDelayStrategy is the one strategy that actually
// blocks the calling goroutine rather than just returning a number for
// the client to sleep on: it parks on a private channel until either
// another call wakes it or rapidContextSwitchCeiling elapses, after first
// waking one other currently-parked call if one exists. The effect is to
// force rapid, synchronous handoffs between concurrently pending calls
// instead of letting them proceed independently.
//
// Picking "a random other registered" waiter falls out of Go's map
// iteration order, which the runtime deliberately randomizes; the first
// entry found in the range below is as good as an explicit random pick.
//
// This is the sole exception to "the scheduler never blocks internally":
// holding the scheduler's monitor for up to rapidContextSwitchCeiling is
// intentional here.
type RapidContextSwitchDelayStrategy struct {
	descriptorBase
	mu      sync.Mutex
	waiters map[string]chan struct{}
	rnd     *prng.Source
}

// NewRapidContextSwitch constructs a RapidContextSwitchDelayStrategy.
func NewRapidContextSwitch(rnd *prng.Source) *RapidContextSwitchDelayStrategy {
	return &RapidContextSwitchDelayStrategy{
		descriptorBase: descriptorBase{fair: true, description: "rapid-context-switch"},
		waiters:        make(map[string]chan struct{}),
		rnd:            rnd,
	}
}

func (s *RapidContextSwitchDelayStrategy) InitializeNextIteration(iteration int) {
	s.descriptorBase.InitializeNextIteration(iteration)
	s.mu.Lock()
	s.waiters = make(map[string]chan struct{})
	s.mu.Unlock()
}

func (s *RapidContextSwitchDelayStrategy) GetNextDelay(maxValue int, taskID string) (bool, int) {
	s.tick()

	s.mu.Lock()
	for id, ch := range s.waiters {
		if id == taskID {
			continue
		}
		close(ch)
		delete(s.waiters, id)
		break
	}
	ch := make(chan struct{})
	s.waiters[taskID] = ch
	s.mu.Unlock()

	timer := time.NewTimer(rapidContextSwitchCeiling)
	defer timer.Stop()
	select {
	case <-ch:
	case <-timer.C:
	}

	s.mu.Lock()
	if cur, ok := s.waiters[taskID]; ok && cur == ch {
		delete(s.waiters, taskID)
	}
	s.mu.Unlock()

	return true, 0
}
