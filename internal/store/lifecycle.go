package store

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/roach88/reflux/internal/action"
)

// Lifecycle states of one store in one dispatch cycle.
const (
	StateIdle                   = "idle"
	StateWaitingForDependencies = "waitingForDependencies"
	StateBefore                 = "before"
	StateRunning                = "running"
	StateSuccess                = "success"
	StateFail                   = "fail"
	StateAfter                  = "after"
	StateSettled                = "settled"
)

// Lifecycle events.
const (
	eventIgnore  = "ignore"
	eventWait    = "wait"
	eventBegin   = "begin"
	eventRun     = "run"
	eventSucceed = "succeed"
	eventFail    = "fail"
	eventFinish  = "finish"
	eventSettle  = "settle"
)

var lifecycleEvents = fsm.Events{
	{Name: eventIgnore, Src: []string{StateIdle}, Dst: StateSettled},
	{Name: eventWait, Src: []string{StateIdle}, Dst: StateWaitingForDependencies},
	{Name: eventBegin, Src: []string{StateWaitingForDependencies}, Dst: StateBefore},
	{Name: eventRun, Src: []string{StateBefore}, Dst: StateRunning},
	{Name: eventSucceed, Src: []string{StateRunning}, Dst: StateSuccess},
	{Name: eventFail, Src: []string{StateWaitingForDependencies, StateRunning}, Dst: StateFail},
	{Name: eventFinish, Src: []string{StateSuccess, StateFail}, Dst: StateAfter},
	{Name: eventSettle, Src: []string{StateAfter}, Dst: StateSettled},
}

// lifecycle drives one store through one cycle.
type lifecycle struct {
	store *Store
	cycle *Cycle
	rec   *handlerRecord
	fsm   *fsm.FSM

	// failure is the error carried into the fail state.
	failure error
}

func newLifecycle(s *Store, c *Cycle, rec *handlerRecord) *lifecycle {
	lc := &lifecycle{store: s, cycle: c, rec: rec}
	lc.fsm = fsm.NewFSM(
		StateIdle,
		lifecycleEvents,
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				lc.transitioned(ctx, e)
			},
		},
	)
	return lc
}

func (lc *lifecycle) transitioned(ctx context.Context, e *fsm.Event) {
	ev := TraceEvent{
		Flow:     lc.cycle.Flow,
		Seq:      lc.cycle.Seq,
		Step:     lc.cycle.nextStep(),
		Store:    lc.store.name,
		Constant: lc.cycle.Constant,
		Event:    e.Event,
		From:     e.Src,
		To:       e.Dst,
	}
	if e.Dst == StateFail {
		ev.Err = lc.failure
	}

	lc.store.logger.Debug("lifecycle transition",
		"flow", ev.Flow,
		"store", ev.Store,
		"constant", string(ev.Constant),
		"from", ev.From,
		"to", ev.To,
	)
	if lc.cycle.tracer != nil {
		lc.cycle.tracer.Record(ctx, ev)
	}
}

func (lc *lifecycle) current() string { return lc.fsm.Current() }

// fire performs a transition. The event table is static, so a rejected
// transition is a programming error.
func (lc *lifecycle) fire(ctx context.Context, event string) {
	if err := lc.fsm.Event(ctx, event); err != nil {
		panic(fmt.Sprintf("store %s: lifecycle event %q from %q: %v", lc.store.name, event, lc.fsm.Current(), err))
	}
}

// runCycle settles s for c. It is called once per (store, cycle) by
// Cycle.Settle.
func (s *Store) runCycle(ctx context.Context, c *Cycle) Outcome {
	rec, ok := s.handler(c.Constant)
	lc := newLifecycle(s, c, rec)
	if !ok {
		lc.fire(ctx, eventIgnore)
		return Outcome{Store: s}
	}

	lc.fire(ctx, eventWait)
	if err := c.await(ctx, s, rec.def.WaitFor); err != nil {
		s.dispatchMu.Lock()
		defer s.dispatchMu.Unlock()

		lc.failure = err
		lc.fire(ctx, eventFail)
		lc.finish(ctx, c.Payload)
		return Outcome{Store: s, Handled: true, Err: err}
	}

	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	p := c.Payload.Clone()

	lc.fire(ctx, eventBegin)
	if err := guard("before", func() { callHook(ctx, rec.def.Before, s, p) }); err != nil {
		lc.fire(ctx, eventRun)
		lc.failure = err
		lc.fire(ctx, eventFail)
		lc.finish(ctx, p)
		return Outcome{Store: s, Handled: true, Err: err}
	}

	lc.fire(ctx, eventRun)
	var err error
	if rec.def.Callback != nil {
		if perr := guard("callback", func() { err = rec.def.Callback(ctx, s, p) }); perr != nil {
			err = perr
		}
	}

	if err != nil {
		lc.failure = err
		lc.fire(ctx, eventFail)
	} else {
		lc.fire(ctx, eventSucceed)
	}
	lc.finish(ctx, p)
	return Outcome{Store: s, Handled: true, Err: err}
}

// finish runs exactly one of success/fail, then after, then settles.
// Hook panics are logged; they do not change the outcome.
func (lc *lifecycle) finish(ctx context.Context, p action.Payload) {
	s, def := lc.store, lc.rec.def

	var err error
	if lc.current() == StateFail {
		if def.Fail != nil {
			err = guard("fail", func() { def.Fail(ctx, s, p, lc.failure) })
		}
	} else {
		err = guard("success", func() { callHook(ctx, def.Success, s, p) })
	}
	lc.logHookPanic(err)

	lc.fire(ctx, eventFinish)
	lc.logHookPanic(guard("after", func() { callHook(ctx, def.After, s, p) }))
	lc.fire(ctx, eventSettle)
}

func (lc *lifecycle) logHookPanic(err error) {
	if err == nil {
		return
	}
	lc.store.logger.Error("lifecycle hook failed",
		"flow", lc.cycle.Flow,
		"store", lc.store.name,
		"constant", string(lc.cycle.Constant),
		"error", err,
	)
}

func callHook(ctx context.Context, h Hook, s *Store, p action.Payload) {
	if h != nil {
		h(ctx, s, p)
	}
}

// guard runs fn and converts a panic into an error.
func guard(phase string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", phase, r)
		}
	}()
	fn()
	return nil
}
