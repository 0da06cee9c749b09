package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflux/internal/journal"
)

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--flow", "flow-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTrace_ListsFlows(t *testing.T) {
	dbPath := seedJournal(t, sessionConfig{maxAttempts: 2}, login("0000000"), login("1111111"), logout())

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "flow-1  USER_LOGIN   cycles=1 failed=1")
	assert.Contains(t, out, "flow-2  USER_LOGIN   cycles=2 failed=1")
	assert.Contains(t, out, "flow-3  USER_LOGOUT  cycles=1 failed=0")
}

func TestTrace_ListsFlowsEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No flows found in database")
}

func TestTraceEmptyFlow(t *testing.T) {
	dbPath := seedJournal(t, sessionConfig{}, login("1234567"))

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--flow", "nope")
	require.NoError(t, err)
	assert.Contains(t, out, "No cycles found for flow: nope")
}

func TestTraceWithFlow(t *testing.T) {
	dbPath := seedJournal(t, sessionConfig{}, login("1234567"))

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--flow", "flow-1")
	require.NoError(t, err)

	assert.Contains(t, out, "Flow: flow-1")
	assert.Contains(t, out, `cycle 1 USER_LOGIN depth=0 status=settled payload={"password":"1234567","username":"ada"}`)
	assert.Contains(t, out, "user     wait     idle -> waitingForDependencies")
	assert.Contains(t, out, "  => session: ok")
	assert.Contains(t, out, "Summary: 1 cycle(s), 18 transition(s), 0 failed")
}

func TestTraceWithFlowJSON(t *testing.T) {
	dbPath := seedJournal(t, sessionConfig{maxAttempts: 2}, login("0000000"), login("1111111"))

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--flow", "flow-2")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "flow-2", resp.Data.FlowToken)
	require.Len(t, resp.Data.Cycles, 2)

	loginCycle, lockCycle := resp.Data.Cycles[0], resp.Data.Cycles[1]
	assert.Equal(t, journal.StatusFailed, loginCycle.Status)
	assert.Equal(t, "USER_LOCK", lockCycle.Constant)
	assert.Equal(t, 1, lockCycle.Depth)
	assert.Equal(t, "ada", lockCycle.Payload["username"])
	assert.Equal(t, []StoreOutcome{
		{Store: "audit", Status: "ok"},
		{Store: "session", Status: "ignored"},
		{Store: "user", Status: "ok"},
	}, lockCycle.Outcomes)
	assert.Equal(t, TraceStats{Cycles: 2, Transitions: len(loginCycle.Transitions) + len(lockCycle.Transitions), Failed: 1}, resp.Data.Stats)
}

func TestTraceWithStoreFilter(t *testing.T) {
	dbPath := seedJournal(t, sessionConfig{}, login("0000000"))

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--flow", "flow-1", "--store", "session")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Cycles, 1)

	var events []string
	for _, tr := range resp.Data.Cycles[0].Transitions {
		assert.Equal(t, "session", tr.Store)
		events = append(events, tr.Event)
	}
	assert.Equal(t, []string{"wait", "fail", "finish", "settle"}, events)
	require.Len(t, resp.Data.Cycles[0].Outcomes, 1)
	assert.Equal(t, "failed", resp.Data.Cycles[0].Outcomes[0].Status)
}

func TestTraceWithActionFilter(t *testing.T) {
	dbPath := seedJournal(t, sessionConfig{maxAttempts: 1}, login("0000000"))

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--flow", "flow-1", "--action", "LOCK")
	require.NoError(t, err)
	assert.Contains(t, out, "cycle 2 USER_LOCK depth=1")
	assert.NotContains(t, out, "USER_LOGIN")
	assert.Contains(t, out, "Summary: 1 cycle(s)")

	_, err = execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--flow", "flow-1", "--action", "REGISTER")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceHelpText(t *testing.T) {
	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--db")
	assert.Contains(t, out, "--flow")
	assert.Contains(t, out, "--store")
}

func TestFormatPayload(t *testing.T) {
	assert.Equal(t, `{"a":1,"b":"<x>"}`, formatPayload(map[string]any{"b": "<x>", "a": 1}))
	assert.Equal(t, `{}`, formatPayload(map[string]any{}))
}
