package strategy

import (
	"testing"

	"github.com/fentz26/interleave/internal/trace"
)

func TestReplayFollowsRecordedSequenceIDs(t *testing.T) {
	tr := trace.New()
	tr.Append(2)
	tr.Append(1)

	s := NewReplay(tr)
	enabled := enabledOps(1, 2)

	ok, next := s.GetNextOperation(enabled, nil, false)
	if !ok || next.SequenceID != 2 {
		t.Fatalf("expected replay to pick sequence 2 first, got ok=%v next=%v", ok, next)
	}

	ok, next = s.GetNextOperation(enabled, nil, false)
	if !ok || next.SequenceID != 1 {
		t.Fatalf("expected replay to pick sequence 1 second, got ok=%v next=%v", ok, next)
	}
}

func TestReplayFailsWhenTraceExhausted(t *testing.T) {
	tr := trace.New()
	tr.Append(1)

	s := NewReplay(tr)
	enabled := enabledOps(1)

	ok, _ := s.GetNextOperation(enabled, nil, false)
	if !ok {
		t.Fatalf("expected first choice to succeed")
	}

	ok, _ = s.GetNextOperation(enabled, nil, false)
	if ok {
		t.Fatalf("expected replay to fail once the trace is exhausted")
	}
	if !s.IsMaxStepsReached() {
		t.Fatalf("expected IsMaxStepsReached to report true after exhaustion")
	}
}

func TestReplayFailsWhenRecordedChoiceNoLongerEnabled(t *testing.T) {
	tr := trace.New()
	tr.Append(99)

	s := NewReplay(tr)
	enabled := enabledOps(1, 2)

	ok, _ := s.GetNextOperation(enabled, nil, false)
	if ok {
		t.Fatalf("expected replay to fail when the recorded sequenceId is not enabled")
	}
}
