// Package strategy implements the pluggable exploration policies: the
// operation-selection family that chooses the next enabled operation, and
// the delay-injection family used for weaker, probabilistic fuzzing.
//
// The source this was distilled from models these as a base class with two
// overridable hooks and many subclasses. Go has no use for that hierarchy:
// each concrete strategy here is an independent value behind a small
// interface, in the shape of the teacher's Router/KeywordRouter pair.
package strategy

import (
	"github.com/fentz26/interleave/internal/operation"
	"github.com/fentz26/interleave/internal/prng"
)

// Descriptor is the shape every strategy shares, operation-selection and
// delay-injection alike.
type Descriptor interface {
	// InitializeNextIteration resets per-iteration state (step counters,
	// change points, priorities) ahead of a new test iteration.
	InitializeNextIteration(iteration int)
	// GetStepCount returns the number of scheduling/delay decisions made
	// in the current iteration.
	GetStepCount() int
	// IsMaxStepsReached reports whether the current iteration has used
	// its step budget.
	IsMaxStepsReached() bool
	// IsFair reports whether the strategy is guaranteed to eventually
	// select every persistently-enabled operation.
	IsFair() bool
	// GetDescription returns a short human-readable strategy name.
	GetDescription() string
}

// OperationStrategy chooses the next enabled operation to run.
type OperationStrategy interface {
	Descriptor
	// GetNextOperation picks among enabled, given the currently scheduled
	// operation and the (reserved) isYielding hint. ok is false if the
	// strategy could not make a choice (e.g. Replay ran out of trace).
	GetNextOperation(enabled []*operation.Operation, current *operation.Operation, isYielding bool) (ok bool, next *operation.Operation)
	// NextBoolean is the nondeterministic-choice hook backing
	// GetNextBoolean when no delay strategy is configured.
	NextBoolean() bool
	// NextInteger is the nondeterministic-choice hook backing
	// GetNextInteger when no delay strategy is configured.
	NextInteger(max int) int
}

// DelayStrategy chooses a cooperative delay to inject before a step,
// rather than choosing an operation. It is a distinct, independently
// configured strategy family — see Scheduler.GetNextInteger for how the
// two families interact.
type DelayStrategy interface {
	Descriptor
	// GetNextDelay returns the delay, in milliseconds, to inject for
	// taskID, bounded by maxValue where the strategy honors it.
	GetNextDelay(maxValue int, taskID string) (ok bool, delayMs int)
}

// descriptorBase implements the shared bookkeeping every concrete strategy
// embeds: step counting, the step budget, fairness, and description.
type descriptorBase struct {
	stepCount   int
	maxSteps    int
	fair        bool
	description string
}

func (d *descriptorBase) InitializeNextIteration(int) {
	d.stepCount = 0
}

func (d *descriptorBase) GetStepCount() int {
	return d.stepCount
}

func (d *descriptorBase) IsMaxStepsReached() bool {
	return d.maxSteps > 0 && d.stepCount >= d.maxSteps
}

func (d *descriptorBase) IsFair() bool {
	return d.fair
}

func (d *descriptorBase) GetDescription() string {
	return d.description
}

func (d *descriptorBase) tick() {
	d.stepCount++
}

// rndInt returns a uniform draw in [0, max) from rnd, treating max <= 0 as
// "no choice to make" rather than panicking — several strategies call this
// with a caller-supplied bound that may legitimately be zero.
func rndInt(rnd *prng.Source, max int) int {
	if max <= 0 {
		return 0
	}
	return rnd.Next(max)
}
