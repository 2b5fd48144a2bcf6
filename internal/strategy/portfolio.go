package strategy

// PortfolioDelayStrategy rotates through a fixed set of delay strategies,
// one per iteration, so a single exploration run samples several distinct
// timing perturbations rather than committing to one for its whole
// duration.
type PortfolioDelayStrategy struct {
	descriptorBase
	strategies []DelayStrategy
	active     int
}

// NewPortfolio constructs a PortfolioDelayStrategy over strategies, in the
// order they rotate.
func NewPortfolio(strategies ...DelayStrategy) *PortfolioDelayStrategy {
	return &PortfolioDelayStrategy{
		descriptorBase: descriptorBase{fair: true, description: "portfolio"},
		strategies:     strategies,
	}
}

func (s *PortfolioDelayStrategy) InitializeNextIteration(iteration int) {
	s.descriptorBase.InitializeNextIteration(iteration)
	if len(s.strategies) == 0 {
		return
	}
	s.active = iteration % len(s.strategies)
	s.strategies[s.active].InitializeNextIteration(iteration)
}

func (s *PortfolioDelayStrategy) GetNextDelay(maxValue int, taskID string) (bool, int) {
	s.tick()
	if len(s.strategies) == 0 {
		return true, 0
	}
	return s.strategies[s.active].GetNextDelay(maxValue, taskID)
}

// IsFair reflects whichever member strategy is currently active.
func (s *PortfolioDelayStrategy) IsFair() bool {
	if len(s.strategies) == 0 {
		return true
	}
	return s.strategies[s.active].IsFair()
}
