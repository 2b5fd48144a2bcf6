package strategy

import "github.com/fentz26/interleave/internal/prng"

// PPCTDelayStrategy (probabilistic PCT) partitions tasks into a
// high-priority bag (delay 0) and a low-priority bag, with a 5% chance of
// landing in the low-priority bag the first time a task is seen after a
// reshuffle. Low-priority tasks are further split into a light sub-bag
// (delay uniform in [0, 50)) and a heavy one ([50, 100)), so low-priority
// tasks don't all pay the same cost. The whole partition is reshuffled
// every maxSteps/5 steps.
type PPCTDelayStrategy struct {
	descriptorBase
	rnd             *prng.Source
	reshufflePeriod int
	sinceReshuffle  int
	lowPriority     map[string]bool
	heavyBag        map[string]bool
}

// NewPPCT constructs a PPCTDelayStrategy.
func NewPPCT(rnd *prng.Source, maxSteps int) *PPCTDelayStrategy {
	period := maxSteps / 5
	if period <= 0 {
		period = 1
	}
	return &PPCTDelayStrategy{
		descriptorBase:  descriptorBase{maxSteps: maxSteps, fair: true, description: "ppct"},
		rnd:             rnd,
		reshufflePeriod: period,
		lowPriority:     make(map[string]bool),
		heavyBag:        make(map[string]bool),
	}
}

func (s *PPCTDelayStrategy) InitializeNextIteration(iteration int) {
	s.descriptorBase.InitializeNextIteration(iteration)
	s.sinceReshuffle = 0
	s.lowPriority = make(map[string]bool)
	s.heavyBag = make(map[string]bool)
}

func (s *PPCTDelayStrategy) reshuffleIfDue() {
	s.sinceReshuffle++
	if s.sinceReshuffle >= s.reshufflePeriod {
		s.sinceReshuffle = 0
		s.lowPriority = make(map[string]bool)
		s.heavyBag = make(map[string]bool)
	}
}

func (s *PPCTDelayStrategy) assign(taskID string) {
	if _, ok := s.lowPriority[taskID]; ok {
		return
	}
	low := s.rnd.NextDouble() < 0.05
	s.lowPriority[taskID] = low
	if low {
		s.heavyBag[taskID] = s.rnd.NextBool()
	}
}

func (s *PPCTDelayStrategy) GetNextDelay(maxValue int, taskID string) (bool, int) {
	s.tick()
	s.reshuffleIfDue()
	s.assign(taskID)
	if !s.lowPriority[taskID] {
		return true, 0
	}
	if s.heavyBag[taskID] {
		return true, 50 + s.rnd.Next(50)
	}
	return true, s.rnd.Next(50)
}
