package strategy

import "github.com/fentz26/interleave/internal/operation"

// ComboOperationStrategy runs prefix for its first prefixLen steps of an
// iteration, then hands off to suffix for the rest. This is the
// "safety prefix" pattern: explore a bounded random prefix with one
// strategy, then continue with another (typically PCT) to concentrate
// exploration past the setup phase.
type ComboOperationStrategy struct {
	descriptorBase
	prefix    OperationStrategy
	suffix    OperationStrategy
	prefixLen int
}

// NewCombo constructs a ComboOperationStrategy.
func NewCombo(prefix, suffix OperationStrategy, prefixLen int) *ComboOperationStrategy {
	return &ComboOperationStrategy{
		descriptorBase: descriptorBase{description: "combo"},
		prefix:         prefix,
		suffix:         suffix,
		prefixLen:      prefixLen,
	}
}

func (s *ComboOperationStrategy) InitializeNextIteration(iteration int) {
	s.descriptorBase.InitializeNextIteration(iteration)
	s.prefix.InitializeNextIteration(iteration)
	s.suffix.InitializeNextIteration(iteration)
}

func (s *ComboOperationStrategy) active() OperationStrategy {
	if s.stepCount < s.prefixLen {
		return s.prefix
	}
	return s.suffix
}

func (s *ComboOperationStrategy) GetNextOperation(enabled []*operation.Operation, current *operation.Operation, isYielding bool) (bool, *operation.Operation) {
	ok, next := s.active().GetNextOperation(enabled, current, isYielding)
	s.tick()
	return ok, next
}

func (s *ComboOperationStrategy) NextBoolean() bool {
	return s.active().NextBoolean()
}

func (s *ComboOperationStrategy) NextInteger(max int) int {
	return s.active().NextInteger(max)
}

// IsFair defers to the suffix strategy: the combo's long-run behavior is
// whatever it settles into once the prefix is exhausted.
func (s *ComboOperationStrategy) IsFair() bool {
	return s.suffix.IsFair()
}

func (s *ComboOperationStrategy) GetDescription() string {
	return "combo(" + s.prefix.GetDescription() + "->" + s.suffix.GetDescription() + ")"
}
