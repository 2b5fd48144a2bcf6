package strategy

import (
	"github.com/fentz26/interleave/internal/operation"
	"github.com/fentz26/interleave/internal/trace"
)

// ReplayOperationStrategy drives scheduling from a previously recorded
// trace instead of a PRNG, consuming one token per decision (scheduling
// choice or nondeterministic choice alike, in the order they were
// recorded). It is used to deterministically reproduce a failure found
// under another strategy.
type ReplayOperationStrategy struct {
	descriptorBase
	reader *trace.Reader
	failed bool
}

// NewReplay constructs a ReplayOperationStrategy over tr.
func NewReplay(tr *trace.Trace) *ReplayOperationStrategy {
	return &ReplayOperationStrategy{
		descriptorBase: descriptorBase{fair: true, description: "replay"},
		reader:         trace.NewReader(tr),
	}
}

func (s *ReplayOperationStrategy) InitializeNextIteration(iteration int) {
	s.descriptorBase.InitializeNextIteration(iteration)
	s.failed = false
}

// IsMaxStepsReached also reports true once the trace is exhausted, since a
// replay has nothing further to say about scheduling beyond that point.
func (s *ReplayOperationStrategy) IsMaxStepsReached() bool {
	return s.failed || s.reader.Remaining() == 0
}

func (s *ReplayOperationStrategy) GetNextOperation(enabled []*operation.Operation, current *operation.Operation, isYielding bool) (bool, *operation.Operation) {
	s.tick()
	if s.failed {
		return false, nil
	}
	token, ok := s.reader.Next()
	if !ok {
		s.failed = true
		return false, nil
	}
	for _, op := range enabled {
		if op.SequenceID == token {
			return true, op
		}
	}
	// the recorded choice is no longer enabled: the program under test
	// diverged from the recorded run.
	s.failed = true
	return false, nil
}

func (s *ReplayOperationStrategy) NextBoolean() bool {
	token, ok := s.reader.Next()
	if !ok {
		s.failed = true
		return false
	}
	return token != 0
}

func (s *ReplayOperationStrategy) NextInteger(max int) int {
	token, ok := s.reader.Next()
	if !ok {
		s.failed = true
		return 0
	}
	return int(token)
}
