// Package scheduler implements the controlled-concurrency serializer: the
// single-monitor engine that owns one test session's operation and
// resource tables, drives the configured strategies, and maintains the
// replayable schedule trace.
//
// Every exported method acquires the scheduler's own mutex for its full
// duration — there is no internal concurrency here, mirroring the
// teacher's "every mutation happens under sch.mu" discipline, just with a
// single mutex guarding everything instead of the teacher's worker-pool
// counters.
package scheduler

import (
	"log"
	"sort"
	"sync"

	"github.com/fentz26/interleave/internal/errcode"
	"github.com/fentz26/interleave/internal/ids"
	"github.com/fentz26/interleave/internal/operation"
	"github.com/fentz26/interleave/internal/resource"
	"github.com/fentz26/interleave/internal/strategy"
	"github.com/fentz26/interleave/internal/trace"
)

// Scheduler serializes one test session's concurrency events into a
// single, reproducible interleaving.
type Scheduler struct {
	id     string
	logger *log.Logger

	mu sync.Mutex

	opStrategy    strategy.OperationStrategy
	delayStrategy strategy.DelayStrategy

	operations map[string]*operation.Operation
	resources  map[string]*resource.Resource
	enabled    map[string]struct{}
	bySeq      map[int64]string

	scheduledOp     string
	sequenceCounter int64
	mainOperationID string
	iterationCount  int
	attached        bool
	disabled        bool
	disableCode     errcode.Code

	trace *trace.Trace
}

// New constructs a Scheduler identified by id, driven by opStrategy
// (required) and optionally delayStrategy (nil disables delay injection).
func New(id string, opStrategy strategy.OperationStrategy, delayStrategy strategy.DelayStrategy, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		id:            id,
		logger:        logger,
		opStrategy:    opStrategy,
		delayStrategy: delayStrategy,
		operations:    make(map[string]*operation.Operation),
		resources:     make(map[string]*resource.Resource),
		enabled:       make(map[string]struct{}),
		bySeq:         make(map[int64]string),
		trace:         trace.New(),
	}
}

// ID returns the session id this scheduler serves.
func (s *Scheduler) ID() string {
	return s.id
}

func (s *Scheduler) checkLiveLocked() *errcode.Error {
	if s.disabled {
		return errcode.ErrSchedulerDisabled
	}
	return nil
}

func (s *Scheduler) checkAttachedLocked() *errcode.Error {
	if err := s.checkLiveLocked(); err != nil {
		return err
	}
	if !s.attached {
		return errcode.ErrClientNotAttached
	}
	return nil
}

// disableLocked flips the scheduler into its terminal SchedulerDisabled
// state, reached only via a 500 InternalError or a 101 DeadlockDetected.
func (s *Scheduler) disableLocked(code errcode.Code, msg string) *errcode.Error {
	s.disabled = true
	s.disableCode = code
	s.logger.Printf("scheduler %s disabled: %s", s.id, msg)
	return errcode.New(code, msg)
}

// Attach binds a new program under test to this scheduler, creating and
// enabling the distinguished main operation. Returns the current
// iteration count and the main operation's id.
func (s *Scheduler) Attach() (mainOperationID string, iteration int, rerr *errcode.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLiveLocked(); err != nil {
		return "", 0, err
	}
	if s.attached {
		return "", 0, errcode.ErrClientAttached
	}

	s.attached = true
	s.trace.Reset()
	s.operations = make(map[string]*operation.Operation)
	s.resources = make(map[string]*resource.Resource)
	s.enabled = make(map[string]struct{})
	s.bySeq = make(map[int64]string)
	s.sequenceCounter = 0

	s.mainOperationID = ids.New().String()
	s.sequenceCounter++
	mainOp := operation.New(s.mainOperationID, s.sequenceCounter)
	mainOp.Enable()
	s.operations[s.mainOperationID] = mainOp
	s.bySeq[mainOp.SequenceID] = s.mainOperationID
	s.enabled[s.mainOperationID] = struct{}{}
	s.scheduledOp = s.mainOperationID

	s.opStrategy.InitializeNextIteration(s.iterationCount)
	if s.delayStrategy != nil {
		s.delayStrategy.InitializeNextIteration(s.iterationCount)
	}

	s.logger.Printf("scheduler %s attached, iteration %d, main %s", s.id, s.iterationCount, s.mainOperationID)
	return s.mainOperationID, s.iterationCount, nil
}

// Detach cancels every non-completed operation, clears the operation and
// resource tables, and advances the iteration count.
func (s *Scheduler) Detach() *errcode.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Detach is the escape hatch out of SchedulerDisabled, so it is
	// allowed through even when the scheduler is currently disabled.
	if !s.attached {
		return errcode.ErrClientNotAttached
	}

	for _, op := range s.operations {
		if !op.IsCompleted() {
			op.Cancel()
		}
	}
	s.operations = make(map[string]*operation.Operation)
	s.resources = make(map[string]*resource.Resource)
	s.enabled = make(map[string]struct{})
	s.bySeq = make(map[int64]string)
	s.sequenceCounter = 0
	s.scheduledOp = ""
	s.attached = false
	s.disabled = false
	s.disableCode = errcode.Success
	s.iterationCount++

	s.logger.Printf("scheduler %s detached, next iteration %d", s.id, s.iterationCount)
	return nil
}

// CreateOperation registers a new operation under id, or resets it to
// None if id belongs to a previously-used, now-terminal operation.
func (s *Scheduler) CreateOperation(id string) *errcode.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAttachedLocked(); err != nil {
		return err
	}
	if id == s.mainOperationID {
		return errcode.New(errcode.MainOperationExplicitlyCreated, "cannot explicitly create the main operation")
	}
	if existing, ok := s.operations[id]; ok {
		if !existing.IsCompleted() {
			return errcode.New(errcode.DuplicateOperation, "operation "+id+" already exists")
		}
		existing.ResetToNone()
		return nil
	}

	s.sequenceCounter++
	op := operation.New(id, s.sequenceCounter)
	s.operations[id] = op
	s.bySeq[op.SequenceID] = id
	return nil
}

// StartOperation transitions id from None to Enabled.
func (s *Scheduler) StartOperation(id string) *errcode.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAttachedLocked(); err != nil {
		return err
	}
	if id == s.mainOperationID {
		return errcode.New(errcode.MainOperationExplicitlyStarted, "cannot explicitly start the main operation")
	}
	op, ok := s.operations[id]
	if !ok {
		return errcode.New(errcode.NotExistingOperation, "operation "+id+" does not exist")
	}
	switch {
	case op.IsCompleted():
		return errcode.New(errcode.OperationAlreadyCompleted, "operation "+id+" already completed")
	case op.Status != operation.None:
		return errcode.New(errcode.OperationAlreadyStarted, "operation "+id+" already started")
	}
	op.Enable()
	s.enabled[id] = struct{}{}
	return nil
}

// WaitOperation blocks the currently scheduled operation on targetID and
// returns the next operation id to run. If targetID is already completed,
// the caller is not blocked and may continue immediately.
func (s *Scheduler) WaitOperation(targetID string) (string, *errcode.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAttachedLocked(); err != nil {
		return ids.None.String(), err
	}
	target, ok := s.operations[targetID]
	if !ok {
		return ids.None.String(), errcode.New(errcode.NotExistingOperation, "operation "+targetID+" does not exist")
	}
	if target.IsCompleted() {
		return s.scheduledOp, nil
	}

	self, ok := s.operations[s.scheduledOp]
	if !ok {
		return ids.None.String(), s.disableLocked(errcode.InternalError, "no current scheduled operation to block")
	}
	self.BeginWaitAll([]int64{target.SequenceID})
	target.AddSignal(self.SequenceID)
	delete(s.enabled, self.SessionID)

	return s.scheduleNextLocked()
}

// WaitOperationsAllAny blocks the currently scheduled operation on
// targetIDs, either until all complete (waitAll) or until any one
// completes. A wait-any call never blocks if any target is already
// completed at call time.
func (s *Scheduler) WaitOperationsAllAny(targetIDs []string, waitAll bool) (string, *errcode.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAttachedLocked(); err != nil {
		return ids.None.String(), err
	}

	targets := make([]*operation.Operation, 0, len(targetIDs))
	pending := make([]int64, 0, len(targetIDs))
	anyCompleted := false
	for _, tid := range targetIDs {
		t, ok := s.operations[tid]
		if !ok {
			return ids.None.String(), errcode.New(errcode.NotExistingOperation, "operation "+tid+" does not exist")
		}
		targets = append(targets, t)
		if t.IsCompleted() {
			anyCompleted = true
		} else {
			pending = append(pending, t.SequenceID)
		}
	}

	if !waitAll && anyCompleted {
		return s.scheduledOp, nil
	}

	self, ok := s.operations[s.scheduledOp]
	if !ok {
		return ids.None.String(), s.disableLocked(errcode.InternalError, "no current scheduled operation to block")
	}
	if waitAll {
		self.BeginWaitAll(pending)
	} else {
		self.BeginWaitAny(pending)
	}
	for _, t := range targets {
		if !t.IsCompleted() {
			t.AddSignal(self.SequenceID)
		}
	}
	delete(s.enabled, self.SessionID)

	return s.scheduleNextLocked()
}

// WaitResource blocks the currently scheduled operation on resID.
func (s *Scheduler) WaitResource(resID string) (string, *errcode.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAttachedLocked(); err != nil {
		return ids.None.String(), err
	}
	r, ok := s.resources[resID]
	if !ok {
		return ids.None.String(), errcode.New(errcode.NotExistingResource, "resource "+resID+" does not exist")
	}
	self, ok := s.operations[s.scheduledOp]
	if !ok {
		return ids.None.String(), s.disableLocked(errcode.InternalError, "no current scheduled operation to block")
	}
	self.BeginWaitResource()
	r.Register(self.SequenceID)
	delete(s.enabled, self.SessionID)

	return s.scheduleNextLocked()
}

// SignalOperation signals opID if it is registered as a waiter on resID,
// re-enabling it. A no-op if opID was not waiting on resID.
func (s *Scheduler) SignalOperation(resID, opID string) *errcode.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAttachedLocked(); err != nil {
		return err
	}
	r, ok := s.resources[resID]
	if !ok {
		return errcode.New(errcode.NotExistingResource, "resource "+resID+" does not exist")
	}
	op, ok := s.operations[opID]
	if !ok {
		return errcode.New(errcode.NotExistingOperation, "operation "+opID+" does not exist")
	}
	if r.SignalOne(op.SequenceID) {
		op.Enable()
		s.enabled[opID] = struct{}{}
	}
	return nil
}

// SignalOperations signals every waiter on resID, re-enabling each.
func (s *Scheduler) SignalOperations(resID string) *errcode.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAttachedLocked(); err != nil {
		return err
	}
	r, ok := s.resources[resID]
	if !ok {
		return errcode.New(errcode.NotExistingResource, "resource "+resID+" does not exist")
	}
	for _, seq := range r.SignalAll() {
		id, ok := s.bySeq[seq]
		if !ok {
			continue
		}
		op, ok := s.operations[id]
		if !ok {
			continue
		}
		op.Enable()
		s.enabled[id] = struct{}{}
	}
	return nil
}

// CompleteOperation transitions id to Completed, cascading re-enables
// through its back-links, and returns the next operation id to run.
func (s *Scheduler) CompleteOperation(id string) (string, *errcode.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAttachedLocked(); err != nil {
		return ids.None.String(), err
	}
	if id == s.mainOperationID {
		return ids.None.String(), errcode.New(errcode.MainOperationExplicitlyCompleted, "cannot explicitly complete the main operation")
	}
	op, ok := s.operations[id]
	if !ok {
		return ids.None.String(), errcode.New(errcode.NotExistingOperation, "operation "+id+" does not exist")
	}
	switch {
	case op.IsCompleted():
		return ids.None.String(), errcode.New(errcode.OperationAlreadyCompleted, "operation "+id+" already completed")
	case op.Status == operation.None:
		return ids.None.String(), errcode.New(errcode.OperationNotStarted, "operation "+id+" not started")
	}

	signaled := op.Complete()
	delete(s.enabled, id)
	for _, seq := range signaled {
		wid, ok := s.bySeq[seq]
		if !ok {
			continue
		}
		waiter, ok := s.operations[wid]
		if !ok {
			continue
		}
		if waiter.TryEnable(s.isCompletedBySeqLocked) {
			s.enabled[wid] = struct{}{}
		}
	}

	return s.scheduleNextLocked()
}

func (s *Scheduler) isCompletedBySeqLocked(seq int64) bool {
	id, ok := s.bySeq[seq]
	if !ok {
		return false
	}
	op, ok := s.operations[id]
	if !ok {
		return false
	}
	return op.IsCompleted()
}

// CreateResource registers a new, empty resource under id.
func (s *Scheduler) CreateResource(id string) *errcode.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAttachedLocked(); err != nil {
		return err
	}
	if _, ok := s.resources[id]; ok {
		return errcode.New(errcode.DuplicateResource, "resource "+id+" already exists")
	}
	s.resources[id] = resource.New(id)
	return nil
}

// DeleteResource removes id unconditionally; deleting an unknown or
// already-deleted id is not an error.
func (s *Scheduler) DeleteResource(id string) *errcode.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAttachedLocked(); err != nil {
		return err
	}
	delete(s.resources, id)
	return nil
}

// ScheduleNext asks the configured operation strategy to choose among the
// enabled operations and returns its pick, or the "no operation" sentinel
// if none is enabled or the strategy declines to choose.
func (s *Scheduler) ScheduleNext() (string, *errcode.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAttachedLocked(); err != nil {
		return ids.None.String(), err
	}
	return s.scheduleNextLocked()
}

func (s *Scheduler) scheduleNextLocked() (string, *errcode.Error) {
	enabledOps := s.enabledOperationsLocked()
	if len(enabledOps) == 0 {
		s.scheduledOp = ""
		if s.hasOutstandingOperationsLocked() {
			return ids.None.String(), s.disableLocked(errcode.DeadlockDetected, "no operation is enabled but uncompleted operations remain")
		}
		return ids.None.String(), nil
	}

	var current *operation.Operation
	if s.scheduledOp != "" {
		current = s.operations[s.scheduledOp]
	}

	ok, next := s.opStrategy.GetNextOperation(enabledOps, current, false)
	if !ok || next == nil {
		return ids.None.String(), nil
	}

	s.trace.Append(next.SequenceID)
	s.scheduledOp = next.SessionID
	return next.SessionID, nil
}

func (s *Scheduler) enabledOperationsLocked() []*operation.Operation {
	ops := make([]*operation.Operation, 0, len(s.enabled))
	for id := range s.enabled {
		if op, ok := s.operations[id]; ok {
			ops = append(ops, op)
		}
	}
	// Sorted by sequenceId so the strategy sees a deterministic order:
	// map iteration order is randomized, and an undeterministic index
	// mapping would break Testable Property 6 even with a seeded PRNG.
	sort.Slice(ops, func(i, j int) bool { return ops[i].SequenceID < ops[j].SequenceID })
	return ops
}

func (s *Scheduler) hasOutstandingOperationsLocked() bool {
	for _, op := range s.operations {
		if !op.IsCompleted() {
			return true
		}
	}
	return false
}

// GetNextBoolean returns a nondeterministic boolean choice from the
// active operation strategy and records it in the trace. Delay strategies
// have no boolean hook, so this always goes through the operation
// strategy regardless of delay-strategy configuration.
func (s *Scheduler) GetNextBoolean() (bool, *errcode.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAttachedLocked(); err != nil {
		return false, err
	}
	v := s.opStrategy.NextBoolean()
	s.trace.Append(boolToToken(v))
	return v, nil
}

// GetNextInteger returns a nondeterministic integer choice and records it
// in the trace. Without a delay strategy the operation strategy draws it
// in [0, max). When a delay strategy is configured it drives this call
// instead, using the currently scheduled operation as the per-task
// identity the delay strategies key their state on; the returned delay
// is bounded by max only where that strategy honors it.
func (s *Scheduler) GetNextInteger(max int) (int, *errcode.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAttachedLocked(); err != nil {
		return 0, err
	}
	var v int
	if s.delayStrategy != nil {
		_, v = s.delayStrategy.GetNextDelay(max, s.scheduledOp)
	} else {
		v = s.opStrategy.NextInteger(max)
	}
	s.trace.Append(int64(v))
	return v, nil
}

// Status is a point-in-time snapshot of this scheduler, for monitoring and
// for the report recorded when a session detaches.
type Status struct {
	Attached            bool
	Disabled            bool
	DisableCode         errcode.Code
	Iteration           int
	ScheduledOp         string
	EnabledOps          []string
	MainOperationID     string
	Trace               string
	StrategyDescription string
}

// Status returns a snapshot of the scheduler's current state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	enabled := make([]string, 0, len(s.enabled))
	for id := range s.enabled {
		enabled = append(enabled, id)
	}
	sort.Strings(enabled)

	return Status{
		Attached:            s.attached,
		Disabled:            s.disabled,
		DisableCode:         s.disableCode,
		Iteration:           s.iterationCount,
		ScheduledOp:         s.scheduledOp,
		EnabledOps:          enabled,
		MainOperationID:     s.mainOperationID,
		Trace:               s.trace.String(),
		StrategyDescription: s.opStrategy.GetDescription(),
	}
}

// GetTrace returns the serialized schedule trace recorded so far.
func (s *Scheduler) GetTrace() (string, *errcode.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLiveLocked(); err != nil {
		return "", err
	}
	return s.trace.String(), nil
}

func boolToToken(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
