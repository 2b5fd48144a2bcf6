package strategy

import (
	"github.com/fentz26/interleave/internal/operation"
	"github.com/fentz26/interleave/internal/prng"
)

// ProbabilisticRandomOperationStrategy is Random with a biased boolean
// hook: NextBoolean returns true with probability 1/bias, and otherwise
// falls back to an unbiased coin flip. Operation selection itself stays
// uniform, matching the unbiased PRNG used for the choice of which
// operation runs next.
type ProbabilisticRandomOperationStrategy struct {
	descriptorBase
	rnd  *prng.Source
	bias int
}

// NewProbabilisticRandom constructs the strategy with the given bias
// denominator (1/bias chance of a forced true). bias <= 0 is treated as 1,
// i.e. always true.
func NewProbabilisticRandom(rnd *prng.Source, maxSteps, bias int) *ProbabilisticRandomOperationStrategy {
	if bias <= 0 {
		bias = 1
	}
	return &ProbabilisticRandomOperationStrategy{
		descriptorBase: descriptorBase{maxSteps: maxSteps, fair: true, description: "probabilistic"},
		rnd:            rnd,
		bias:           bias,
	}
}

func (s *ProbabilisticRandomOperationStrategy) GetNextOperation(enabled []*operation.Operation, current *operation.Operation, isYielding bool) (bool, *operation.Operation) {
	s.tick()
	if len(enabled) == 0 {
		return false, nil
	}
	return true, enabled[s.rnd.Next(len(enabled))]
}

func (s *ProbabilisticRandomOperationStrategy) NextBoolean() bool {
	if s.rnd.Next(s.bias) == 0 {
		return true
	}
	return s.rnd.NextBool()
}

func (s *ProbabilisticRandomOperationStrategy) NextInteger(max int) int {
	return rndInt(s.rnd, max)
}
