package strategy

import (
	"github.com/fentz26/interleave/internal/operation"
	"github.com/fentz26/interleave/internal/prng"
)

// PCTOperationStrategy is prioritized-concurrency-testing: operations are
// assigned a random priority the first time they are seen, the
// highest-priority enabled operation always runs, and at up to d
// (StrategyBound) randomly chosen steps per iteration the running
// operation's priority is demoted.
//
// It is not fair in its plain form: a demoted operation sent to the very
// bottom of the order can remain there, enabled but never chosen, for the
// rest of the iteration if no further demotion reaches it. The fairpct
// variant (fair=true) bounds that by reinserting a demoted operation at a
// random position instead of strictly last, so no operation is ever
// pinned at rock bottom for long — see DESIGN.md.
type PCTOperationStrategy struct {
	descriptorBase
	rnd  *prng.Source
	d    int
	fair bool

	priorityOrder []int64 // front = highest priority
	changePoints  map[int]bool
	demotions     int
}

// NewPCT constructs a PCTOperationStrategy with bound d and the given
// fairness variant.
func NewPCT(rnd *prng.Source, maxSteps, d int, fairVariant bool) *PCTOperationStrategy {
	desc := "pct"
	if fairVariant {
		desc = "fairpct"
	}
	return &PCTOperationStrategy{
		descriptorBase: descriptorBase{maxSteps: maxSteps, fair: false, description: desc},
		rnd:            rnd,
		d:              d,
		fair:           fairVariant,
	}
}

func (s *PCTOperationStrategy) InitializeNextIteration(iteration int) {
	s.descriptorBase.InitializeNextIteration(iteration)
	s.priorityOrder = nil
	s.demotions = 0
	bound := s.maxSteps
	if bound <= 0 {
		bound = 1
	}
	s.changePoints = make(map[int]bool, s.d)
	for i := 0; i < s.d; i++ {
		s.changePoints[s.rnd.Next(bound)] = true
	}
}

func (s *PCTOperationStrategy) assignPriority(seq int64) {
	for _, existing := range s.priorityOrder {
		if existing == seq {
			return
		}
	}
	pos := 0
	if len(s.priorityOrder) > 0 {
		pos = s.rnd.Next(len(s.priorityOrder) + 1)
	}
	s.priorityOrder = insertAt(s.priorityOrder, pos, seq)
}

func (s *PCTOperationStrategy) demote(seq int64) {
	idx := indexOf(s.priorityOrder, seq)
	if idx < 0 {
		return
	}
	s.priorityOrder = append(s.priorityOrder[:idx], s.priorityOrder[idx+1:]...)
	if s.fair {
		pos := s.rnd.Next(len(s.priorityOrder) + 1)
		s.priorityOrder = insertAt(s.priorityOrder, pos, seq)
	} else {
		s.priorityOrder = append(s.priorityOrder, seq)
	}
}

func (s *PCTOperationStrategy) highestPriorityEnabled(enabled []*operation.Operation) int {
	enabledSet := make(map[int64]int, len(enabled))
	for i, op := range enabled {
		enabledSet[op.SequenceID] = i
	}
	for _, seq := range s.priorityOrder {
		if i, ok := enabledSet[seq]; ok {
			return i
		}
	}
	return -1
}

func (s *PCTOperationStrategy) GetNextOperation(enabled []*operation.Operation, current *operation.Operation, isYielding bool) (bool, *operation.Operation) {
	if len(enabled) == 0 {
		return false, nil
	}
	for _, op := range enabled {
		s.assignPriority(op.SequenceID)
	}

	if s.changePoints[s.stepCount] && s.demotions < s.d {
		if idx := s.highestPriorityEnabled(enabled); idx >= 0 {
			s.demote(enabled[idx].SequenceID)
			s.demotions++
		}
	}
	s.tick()

	idx := s.highestPriorityEnabled(enabled)
	if idx < 0 {
		return false, nil
	}
	return true, enabled[idx]
}

func (s *PCTOperationStrategy) NextBoolean() bool {
	return s.rnd.NextBool()
}

func (s *PCTOperationStrategy) NextInteger(max int) int {
	return rndInt(s.rnd, max)
}

func indexOf(xs []int64, v int64) int {
	for i, x := range xs {
		if x == v {
			return i
		}
	}
	return -1
}

func insertAt(xs []int64, pos int, v int64) []int64 {
	xs = append(xs, 0)
	copy(xs[pos+1:], xs[pos:])
	xs[pos] = v
	return xs
}
