package strategy

import (
	"github.com/fentz26/interleave/internal/operation"
	"github.com/fentz26/interleave/internal/prng"
)

// RandomOperationStrategy picks uniformly among the enabled operations at
// every step. It is fair: every persistently-enabled operation has a
// nonzero chance of selection at each step, so over an unbounded run it is
// selected with probability 1.
type RandomOperationStrategy struct {
	descriptorBase
	rnd *prng.Source
}

// NewRandom constructs a RandomOperationStrategy bounded by maxSteps per
// iteration (0 disables the bound).
func NewRandom(rnd *prng.Source, maxSteps int) *RandomOperationStrategy {
	return &RandomOperationStrategy{
		descriptorBase: descriptorBase{maxSteps: maxSteps, fair: true, description: "random"},
		rnd:            rnd,
	}
}

func (s *RandomOperationStrategy) GetNextOperation(enabled []*operation.Operation, current *operation.Operation, isYielding bool) (bool, *operation.Operation) {
	s.tick()
	if len(enabled) == 0 {
		return false, nil
	}
	return true, enabled[s.rnd.Next(len(enabled))]
}

func (s *RandomOperationStrategy) NextBoolean() bool {
	return s.rnd.NextBool()
}

func (s *RandomOperationStrategy) NextInteger(max int) int {
	return rndInt(s.rnd, max)
}

// RandomDelayStrategy injects a uniform delay in [0, maxValue) at every
// step, independent of taskID.
type RandomDelayStrategy struct {
	descriptorBase
	rnd *prng.Source
}

// NewRandomDelay constructs a RandomDelayStrategy.
func NewRandomDelay(rnd *prng.Source, maxSteps int) *RandomDelayStrategy {
	return &RandomDelayStrategy{
		descriptorBase: descriptorBase{maxSteps: maxSteps, fair: true, description: "random-delay"},
		rnd:            rnd,
	}
}

func (s *RandomDelayStrategy) GetNextDelay(maxValue int, taskID string) (bool, int) {
	s.tick()
	return true, rndInt(s.rnd, maxValue)
}
