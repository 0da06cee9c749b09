package harness

import (
	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/state"
)

// StoreTrace is the lifecycle of one store in one cycle.
type StoreTrace struct {
	Store   string   `json:"store"`
	Events  []string `json:"events"`
	Handled bool     `json:"handled"`
	Error   string   `json:"error,omitempty"`
}

// Status is "ignored", "ok" or "failed".
func (s StoreTrace) Status() string {
	switch {
	case !s.Handled:
		return "ignored"
	case s.Error != "":
		return "failed"
	default:
		return "ok"
	}
}

// CycleTrace is one settled dispatch cycle.
type CycleTrace struct {
	Flow     string          `json:"flow"`
	Seq      int64           `json:"seq"`
	Constant action.Constant `json:"constant"`
	Depth    int             `json:"depth"`

	// Stores is sorted by store name.
	Stores []StoreTrace `json:"stores"`
}

// Store returns the trace of the named store.
func (c CycleTrace) Store(name string) (StoreTrace, bool) {
	for _, s := range c.Stores {
		if s.Store == name {
			return s, true
		}
	}
	return StoreTrace{}, false
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step and assertion held.
	Pass bool `json:"pass"`

	// Cycles holds every cycle in seq order, follow-ups included.
	Cycles []CycleTrace `json:"cycles"`

	// Errors contains step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State holds the final snapshot of each store, keyed by store name.
	State map[string]state.State `json:"state"`

	// ActionState holds the final handler sub-states, keyed by store name
	// then constant.
	ActionState map[string]map[action.Constant]state.State `json:"action_state"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:        true,
		Cycles:      []CycleTrace{},
		Errors:      []string{},
		State:       make(map[string]state.State),
		ActionState: make(map[string]map[action.Constant]state.State),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// LastCycle returns the most recent cycle of constant c.
func (r *Result) LastCycle(c action.Constant) (CycleTrace, bool) {
	for i := len(r.Cycles) - 1; i >= 0; i-- {
		if r.Cycles[i].Constant == c {
			return r.Cycles[i], true
		}
	}
	return CycleTrace{}, false
}
