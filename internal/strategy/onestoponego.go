package strategy

import "github.com/fentz26/interleave/internal/prng"

// OneStopOneGoDelayStrategy picks one mode at random per iteration. In
// "one stop" mode, the first task seen gets no delay and every other task
// gets a fixed delay; in "one go" mode the roles are reversed. This
// isolates a single task as either the sole one racing ahead or the sole
// one held back, which is a cheap way to surface ordering bugs that only
// show up when exactly one participant is out of step with the rest.
type OneStopOneGoDelayStrategy struct {
	descriptorBase
	rnd       *prng.Source
	oneStop   bool
	chosen    string
	chosenSet bool
}

const oneStopOneGoFixedDelay = 100

// NewOneStopOneGo constructs a OneStopOneGoDelayStrategy.
func NewOneStopOneGo(rnd *prng.Source, maxSteps int) *OneStopOneGoDelayStrategy {
	return &OneStopOneGoDelayStrategy{
		descriptorBase: descriptorBase{maxSteps: maxSteps, fair: true, description: "one-stop-one-go"},
		rnd:            rnd,
	}
}

func (s *OneStopOneGoDelayStrategy) InitializeNextIteration(iteration int) {
	s.descriptorBase.InitializeNextIteration(iteration)
	s.oneStop = s.rnd.NextBool()
	s.chosen = ""
	s.chosenSet = false
}

func (s *OneStopOneGoDelayStrategy) GetNextDelay(maxValue int, taskID string) (bool, int) {
	s.tick()
	if !s.chosenSet {
		s.chosen = taskID
		s.chosenSet = true
	}
	isChosen := taskID == s.chosen
	if s.oneStop == isChosen {
		return true, 0
	}
	return true, oneStopOneGoFixedDelay
}
