package strategy

import "github.com/fentz26/interleave/internal/prng"

const coinTossDelayCap = 500

// CoinTossDelayStrategy tracks a per-task delay that starts at 1ms and,
// on each call for that task, doubles with 50% probability (capped at
// coinTossDelayCap). Tasks that keep getting unlucky coin flips
// accumulate long, compounding delays; tasks that get lucky stay cheap.
type CoinTossDelayStrategy struct {
	descriptorBase
	rnd     *prng.Source
	perTask map[string]int
}

// NewCoinToss constructs a CoinTossDelayStrategy.
func NewCoinToss(rnd *prng.Source, maxSteps int) *CoinTossDelayStrategy {
	return &CoinTossDelayStrategy{
		descriptorBase: descriptorBase{maxSteps: maxSteps, fair: true, description: "cointoss"},
		rnd:            rnd,
		perTask:        make(map[string]int),
	}
}

func (s *CoinTossDelayStrategy) InitializeNextIteration(iteration int) {
	s.descriptorBase.InitializeNextIteration(iteration)
	s.perTask = make(map[string]int)
}

func (s *CoinTossDelayStrategy) GetNextDelay(maxValue int, taskID string) (bool, int) {
	s.tick()
	cur, ok := s.perTask[taskID]
	if !ok {
		cur = 1
	}
	if s.rnd.NextBool() {
		cur *= 2
		if cur > coinTossDelayCap {
			cur = coinTossDelayCap
		}
	}
	s.perTask[taskID] = cur
	return true, cur
}
