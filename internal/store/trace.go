package store

import (
	"context"

	"github.com/roach88/reflux/internal/action"
)

// TraceEvent records one lifecycle transition of one store in one cycle.
type TraceEvent struct {
	Flow     string
	Seq      int64
	Step     int64
	Store    string
	Constant action.Constant
	Event    string
	From     string
	To       string

	// Err is the failure carried into the fail state, if any.
	Err error
}

// Tracer receives lifecycle transitions. Record is called from the store's
// own goroutine; implementations must be safe for concurrent use.
type Tracer interface {
	Record(ctx context.Context, ev TraceEvent)
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(ctx context.Context, ev TraceEvent)

// Record implements Tracer.
func (f TracerFunc) Record(ctx context.Context, ev TraceEvent) { f(ctx, ev) }

// CycleObserver is an optional extension of Tracer notified at the start and
// end of each cycle.
type CycleObserver interface {
	CycleStarted(ctx context.Context, c *Cycle)
	CycleSettled(ctx context.Context, c *Cycle, outcomes []Outcome)
}

// Outcome is the settled result of one store in one cycle.
type Outcome struct {
	Store *Store

	// Handled is false when the store had no handler for the constant.
	Handled bool

	// Err is the error that moved the lifecycle to fail, if any.
	Err error
}

// Failed reports whether the store settled through fail.
func (o Outcome) Failed() bool { return o.Err != nil }

// MultiTracer fans every transition and cycle notification out to each of
// its tracers in order. Nil entries are skipped.
type MultiTracer []Tracer

// Record implements Tracer.
func (m MultiTracer) Record(ctx context.Context, ev TraceEvent) {
	for _, t := range m {
		if t != nil {
			t.Record(ctx, ev)
		}
	}
}

// CycleStarted implements CycleObserver for the tracers that do.
func (m MultiTracer) CycleStarted(ctx context.Context, c *Cycle) {
	for _, t := range m {
		if obs, ok := t.(CycleObserver); ok {
			obs.CycleStarted(ctx, c)
		}
	}
}

// CycleSettled implements CycleObserver for the tracers that do.
func (m MultiTracer) CycleSettled(ctx context.Context, c *Cycle, outcomes []Outcome) {
	for _, t := range m {
		if obs, ok := t.(CycleObserver); ok {
			obs.CycleSettled(ctx, c, outcomes)
		}
	}
}
