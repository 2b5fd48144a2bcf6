package strategy

import (
	"testing"

	"github.com/fentz26/interleave/internal/operation"
	"github.com/fentz26/interleave/internal/prng"
)

func enabledOps(seqs ...int64) []*operation.Operation {
	ops := make([]*operation.Operation, len(seqs))
	for i, seq := range seqs {
		op := operation.New("session-1", seq)
		op.Enable()
		ops[i] = op
	}
	return ops
}

func TestRandomOperationStrategyPicksOnlyAmongEnabled(t *testing.T) {
	s := NewRandom(prng.New(7), 0)
	enabled := enabledOps(1, 2, 3)
	for i := 0; i < 50; i++ {
		ok, next := s.GetNextOperation(enabled, nil, false)
		if !ok {
			t.Fatalf("expected a choice, got none")
		}
		found := false
		for _, op := range enabled {
			if op == next {
				found = true
			}
		}
		if !found {
			t.Fatalf("chosen operation %v is not in the enabled set", next)
		}
	}
}

func TestRandomOperationStrategyNoChoiceWhenNothingEnabled(t *testing.T) {
	s := NewRandom(prng.New(1), 0)
	ok, next := s.GetNextOperation(nil, nil, false)
	if ok || next != nil {
		t.Fatalf("expected no choice with an empty enabled set, got ok=%v next=%v", ok, next)
	}
}

func TestRandomOperationStrategyIsDeterministicGivenSeed(t *testing.T) {
	enabled := enabledOps(1, 2, 3, 4, 5)

	run := func(seed int64) []int64 {
		s := NewRandom(prng.New(seed), 0)
		var choices []int64
		for i := 0; i < 20; i++ {
			_, next := s.GetNextOperation(enabled, nil, false)
			choices = append(choices, next.SequenceID)
		}
		return choices
	}

	a := run(42)
	b := run(42)
	if len(a) != len(b) {
		t.Fatalf("length mismatch")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different choice at step %d: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestRandomOperationStrategyMaxStepsReached(t *testing.T) {
	s := NewRandom(prng.New(1), 3)
	enabled := enabledOps(1)
	for i := 0; i < 3; i++ {
		if s.IsMaxStepsReached() {
			t.Fatalf("max steps reached too early at step %d", i)
		}
		s.GetNextOperation(enabled, nil, false)
	}
	if !s.IsMaxStepsReached() {
		t.Fatalf("expected max steps reached after 3 steps with a bound of 3")
	}
}
