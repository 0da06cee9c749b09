package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// FormatTrace renders the cycles of a run as stable text:
//
//	scenario: login-success
//	cycle 1 USER_LOGIN flow=login-1 depth=0
//	  audit: wait begin run succeed finish settle -> ok
//
// Stores are listed by name and step numbers are omitted, so the output
// does not depend on goroutine scheduling.
func FormatTrace(name string, cycles []CycleTrace) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for _, c := range cycles {
		fmt.Fprintf(&b, "cycle %d %s flow=%s depth=%d\n", c.Seq, c.Constant, c.Flow, c.Depth)
		for _, s := range c.Stores {
			fmt.Fprintf(&b, "  %s: %s -> %s\n", s.Store, strings.Join(s.Events, " "), s.Status())
		}
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result's trace against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, FormatTrace(scenarioName, result.Cycles))
}
