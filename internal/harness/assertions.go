package harness

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/state"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Cycles   []CycleTrace
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Cycles) > 0 {
		fmt.Fprintf(&buf, "\nCycles:\n")
		for _, c := range e.Cycles {
			fmt.Fprintf(&buf, "  [%d] %s (flow=%s)\n", c.Seq, c.Constant, c.Flow)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertState:
		return assertState(result, a)
	case AssertActionState:
		return assertActionState(result, a)
	case AssertOutcome:
		return assertOutcome(result, a)
	case AssertLifecycle:
		return assertLifecycle(result, a)
	case AssertCycleOrder:
		return assertCycleOrder(result, a)
	case AssertCycleCount:
		return assertCycleCount(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertState checks the store's final state (subset match).
func assertState(result *Result, a Assertion) error {
	st, ok := result.State[a.Store]
	if !ok {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("store %s", a.Store), Actual: "store not found"}
	}
	return matchSubset(a.Type, a.Store+" state", a.Expect, st)
}

// assertActionState checks a handler's final sub-state (subset match).
func assertActionState(result *Result, a Assertion) error {
	c, err := resolveAction(a.Action)
	if err != nil {
		return err
	}
	sub, ok := result.ActionState[a.Store][c]
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("handler for %s on store %s", c, a.Store),
			Actual:   "handler not defined",
		}
	}
	return matchSubset(a.Type, fmt.Sprintf("%s[%s] action state", a.Store, c), a.Expect, sub)
}

// assertOutcome checks how a store settled the most recent cycle of the
// action.
func assertOutcome(result *Result, a Assertion) error {
	st, err := storeInLastCycle(result, a)
	if err != nil {
		return err
	}
	if a.Status != "" && st.Status() != a.Status {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s settled %s as %s", a.Store, a.Action, a.Status),
			Actual:   fmt.Sprintf("%s (error: %q)", st.Status(), st.Error),
			Cycles:   result.Cycles,
		}
	}
	if a.Error != "" && !strings.Contains(st.Error, a.Error) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s error containing %q", a.Store, a.Error),
			Actual:   fmt.Sprintf("%q", st.Error),
			Cycles:   result.Cycles,
		}
	}
	return nil
}

// assertLifecycle checks the exact event sequence of a store in the most
// recent cycle of the action.
func assertLifecycle(result *Result, a Assertion) error {
	st, err := storeInLastCycle(result, a)
	if err != nil {
		return err
	}
	if strings.Join(st.Events, " ") != strings.Join(a.Events, " ") {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s events %v", a.Store, a.Events),
			Actual:   fmt.Sprintf("%v", st.Events),
			Cycles:   result.Cycles,
		}
	}
	return nil
}

// assertCycleOrder checks that the actions were dispatched in the given
// order. Intervening cycles are allowed.
func assertCycleOrder(result *Result, a Assertion) error {
	want := make([]action.Constant, len(a.Actions))
	for i, name := range a.Actions {
		c, err := resolveAction(name)
		if err != nil {
			return err
		}
		want[i] = c
	}

	next := 0
	for _, c := range result.Cycles {
		if next < len(want) && c.Constant == want[next] {
			next++
		}
	}
	if next < len(want) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("cycles in order: %v", want),
			Actual:   fmt.Sprintf("%s not found after %v", want[next], want[:next]),
			Cycles:   result.Cycles,
		}
	}
	return nil
}

// assertCycleCount checks how many cycles dispatched the action.
func assertCycleCount(result *Result, a Assertion) error {
	c, err := resolveAction(a.Action)
	if err != nil {
		return err
	}
	count := 0
	for _, cycle := range result.Cycles {
		if cycle.Constant == c {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d cycles of %s", a.Count, c),
			Actual:   fmt.Sprintf("%d cycles", count),
			Cycles:   result.Cycles,
		}
	}
	return nil
}

func storeInLastCycle(result *Result, a Assertion) (StoreTrace, error) {
	c, err := resolveAction(a.Action)
	if err != nil {
		return StoreTrace{}, err
	}
	cycle, ok := result.LastCycle(c)
	if !ok {
		return StoreTrace{}, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("a cycle of %s", c),
			Actual:   "action was never dispatched",
			Cycles:   result.Cycles,
		}
	}
	st, ok := cycle.Store(a.Store)
	if !ok {
		return StoreTrace{}, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("store %s in cycle %d", a.Store, cycle.Seq),
			Actual:   "store not registered",
			Cycles:   result.Cycles,
		}
	}
	return st, nil
}

// matchSubset checks every expected key against actual. Values compare by
// canonical JSON, so 1 (YAML int) equals int64(1) and nested maps compare
// by content.
func matchSubset(typ, what string, expected map[string]any, actual state.State) error {
	for _, key := range action.SortedKeys(expected) {
		want := expected[key]
		got, exists := actual[key]
		if !exists && want != nil {
			return &AssertionError{
				Type:     typ,
				Expected: fmt.Sprintf("%s key %q = %v", what, key, want),
				Actual:   fmt.Sprintf("key %q not set", key),
			}
		}
		if !valuesEqual(want, got) {
			return &AssertionError{
				Type:     typ,
				Expected: fmt.Sprintf("%s key %q = %v (type %T)", what, key, want, want),
				Actual:   fmt.Sprintf("%v (type %T)", got, got),
			}
		}
	}
	return nil
}

func valuesEqual(a, b any) bool {
	ja, errA := action.MarshalCanonical(a)
	jb, errB := action.MarshalCanonical(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
