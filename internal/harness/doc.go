// Package harness runs YAML scenarios against the demo application.
//
// A scenario dispatches a list of actions through a fresh demo.App and then
// evaluates assertions against the resulting store state, handler sub-state,
// per-store outcomes and lifecycle traces.
//
// # Determinism
//
// Every run uses a fresh application, a DeterministicClock (seq 1, 2, ...)
// and a SequentialFlowGenerator seeded with the scenario's flow_token, so the
// same scenario always produces the same cycles. Stores settle concurrently
// within a cycle, so traces are grouped per store and sorted by store name
// before they are compared or written to golden files.
//
// # Scenario format
//
//	name: login-success
//	description: A correct password authenticates and opens a session.
//	flow_token: login
//	steps:
//	  - dispatch: LOGIN
//	    payload: {username: mustermann, password: "1234567"}
//	assertions:
//	  - type: state
//	    store: user
//	    expect: {isAuth: true}
//	  - type: lifecycle
//	    action: LOGIN
//	    store: session
//	    events: [wait, begin, run, succeed, finish, settle]
//
// Scenario files are checked against an embedded CUE schema before they are
// decoded; see ValidateScenario.
//
// # Golden files
//
// RunWithGolden renders the trace with FormatTrace and compares it with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
