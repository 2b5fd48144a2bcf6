package strategy

import "github.com/fentz26/interleave/internal/prng"

const torchRandomTotalCap = 5000

// TorchRandomDelayStrategy injects a uniform [0, 100) delay with
// probability 0.05 per step, clamped so a single task's cumulative
// injected delay across the iteration never exceeds torchRandomTotalCap.
type TorchRandomDelayStrategy struct {
	descriptorBase
	rnd    *prng.Source
	totals map[string]int
}

// NewTorchRandom constructs a TorchRandomDelayStrategy.
func NewTorchRandom(rnd *prng.Source, maxSteps int) *TorchRandomDelayStrategy {
	return &TorchRandomDelayStrategy{
		descriptorBase: descriptorBase{maxSteps: maxSteps, fair: true, description: "torch-random"},
		rnd:            rnd,
		totals:         make(map[string]int),
	}
}

func (s *TorchRandomDelayStrategy) InitializeNextIteration(iteration int) {
	s.descriptorBase.InitializeNextIteration(iteration)
	s.totals = make(map[string]int)
}

func (s *TorchRandomDelayStrategy) GetNextDelay(maxValue int, taskID string) (bool, int) {
	s.tick()
	delay := 0
	if s.rnd.NextDouble() < 0.05 {
		delay = s.rnd.Next(100)
	}
	total := s.totals[taskID] + delay
	if total > torchRandomTotalCap {
		delay -= total - torchRandomTotalCap
		if delay < 0 {
			delay = 0
		}
		total = torchRandomTotalCap
	}
	s.totals[taskID] = total
	return true, delay
}
