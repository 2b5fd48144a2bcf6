package strategy

import "github.com/fentz26/interleave/internal/prng"

// FairPCTDelayStrategy is PCT's priority-demotion idea applied per task
// instead of globally: each task has its own step counter and its own set
// of randomly chosen change points (within [0, observedMaxStepCount)), and
// only steps that land on a change point inject a delay. The number of
// change points per task grows by one for every 1000 iterations, up to
// observedMaxStepCount, so later iterations probe more of each task's
// timeline without ever exceeding what was actually observed.
//
// This is distinct from the fairpct variant of PCTOperationStrategy: that
// one is an operation-selection strategy reachable via Initialize's
// strategyType; this one is a delay-injection strategy reachable only
// through Config.DelayStrategy.
type FairPCTDelayStrategy struct {
	descriptorBase
	rnd                  *prng.Source
	observedMaxStepCount int
	iteration            int
	changePointCount     int
	perTaskSteps         map[string]int
	perTaskChangePoints  map[string]map[int]bool
}

// NewFairPCTDelay constructs a FairPCTDelayStrategy bounded by
// observedMaxStepCount, the largest step count seen across prior
// iterations (callers typically pass the configured max scheduling
// steps as a stand-in before any iteration has run).
func NewFairPCTDelay(rnd *prng.Source, observedMaxStepCount int) *FairPCTDelayStrategy {
	return &FairPCTDelayStrategy{
		descriptorBase:       descriptorBase{fair: true, description: "fairpct-delay"},
		rnd:                  rnd,
		observedMaxStepCount: observedMaxStepCount,
		perTaskSteps:         make(map[string]int),
		perTaskChangePoints:  make(map[string]map[int]bool),
	}
}

func (s *FairPCTDelayStrategy) InitializeNextIteration(iteration int) {
	s.descriptorBase.InitializeNextIteration(iteration)
	s.iteration = iteration
	s.perTaskSteps = make(map[string]int)
	s.perTaskChangePoints = make(map[string]map[int]bool)

	grown := iteration/1000 + 1
	if s.observedMaxStepCount > 0 && grown > s.observedMaxStepCount {
		grown = s.observedMaxStepCount
	}
	s.changePointCount = grown
}

func (s *FairPCTDelayStrategy) changePointsFor(taskID string) map[int]bool {
	if pts, ok := s.perTaskChangePoints[taskID]; ok {
		return pts
	}
	bound := s.observedMaxStepCount
	if bound <= 0 {
		bound = 1
	}
	pts := make(map[int]bool, s.changePointCount)
	for i := 0; i < s.changePointCount; i++ {
		pts[s.rnd.Next(bound)] = true
	}
	s.perTaskChangePoints[taskID] = pts
	return pts
}

func (s *FairPCTDelayStrategy) GetNextDelay(maxValue int, taskID string) (bool, int) {
	s.tick()
	step := s.perTaskSteps[taskID]
	s.perTaskSteps[taskID] = step + 1
	if s.changePointsFor(taskID)[step] {
		return true, s.rnd.Next(10) * 50
	}
	return true, 0
}
