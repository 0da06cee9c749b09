package engine

import (
	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/store"
)

// Result describes one settled cycle.
type Result struct {
	Flow     string
	Seq      int64
	Constant action.Constant
	Depth    int

	// Outcomes holds one entry per registered store, in registration order.
	Outcomes []store.Outcome
}

// Handled returns the names of the stores that had a handler.
func (r *Result) Handled() []string {
	var names []string
	for _, o := range r.Outcomes {
		if o.Handled {
			names = append(names, o.Store.Name())
		}
	}
	return names
}

// Failed returns the outcomes that settled through fail.
func (r *Result) Failed() []store.Outcome {
	var failed []store.Outcome
	for _, o := range r.Outcomes {
		if o.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Outcome returns the outcome of the store named name.
func (r *Result) Outcome(name string) (store.Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Store.Name() == name {
			return o, true
		}
	}
	return store.Outcome{}, false
}
