package strategy

import "github.com/fentz26/interleave/internal/prng"

// LowDelayPercentageStrategy injects a nonzero delay only rarely (1% of
// steps), and is a no-op delay the rest of the time. This biases toward
// the un-delayed schedule while still occasionally perturbing timing.
type LowDelayPercentageStrategy struct {
	descriptorBase
	rnd *prng.Source
}

// NewLowDelayPercentage constructs a LowDelayPercentageStrategy.
func NewLowDelayPercentage(rnd *prng.Source, maxSteps int) *LowDelayPercentageStrategy {
	return &LowDelayPercentageStrategy{
		descriptorBase: descriptorBase{maxSteps: maxSteps, fair: true, description: "low-delay-percentage"},
		rnd:            rnd,
	}
}

func (s *LowDelayPercentageStrategy) GetNextDelay(maxValue int, taskID string) (bool, int) {
	s.tick()
	if s.rnd.NextDouble() < 0.01 {
		return true, rndInt(s.rnd, maxValue)
	}
	return true, 0
}
