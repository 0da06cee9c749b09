package journal

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflux/internal/action"
)

// ============================================================================
// WriteCycle
// ============================================================================

func TestWriteCycle_RoundTrip(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	rec := createTestCycle("flow-1", 1, testConstants["LOGIN"], action.Payload{
		"username": "mustermann",
		"attempt":  int64(2),
	})
	rec.Depth = 1
	require.NoError(t, j.WriteCycle(ctx, rec))

	got, err := j.ReadCycle(ctx, "flow-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "flow-1", got.Flow)
	assert.Equal(t, int64(1), got.Seq)
	assert.Equal(t, 1, got.Depth)
	assert.Equal(t, testConstants["LOGIN"], got.Constant)
	assert.Equal(t, "mustermann", got.Payload["username"])
	assert.Equal(t, json.Number("2"), got.Payload["attempt"], "numbers decode as json.Number")
	assert.Equal(t, StatusRunning, got.Status)
	assert.Zero(t, got.Failures)

	hash, err := action.PayloadHash(rec.Constant, rec.Payload)
	require.NoError(t, err)
	assert.Equal(t, hash, got.PayloadHash)
}

func TestWriteCycle_Idempotent(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	first := createTestCycle("flow-1", 1, testConstants["LOGIN"], action.Payload{"v": "first"})
	second := createTestCycle("flow-1", 1, testConstants["LOGOUT"], action.Payload{"v": "second"})
	require.NoError(t, j.WriteCycle(ctx, first))
	require.NoError(t, j.WriteCycle(ctx, second))

	cycles, err := j.ReadCycles(ctx)
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, testConstants["LOGIN"], cycles[0].Constant, "first write wins")
}

func TestWriteCycle_NilPayload(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.WriteCycle(ctx, createTestCycle("flow-1", 1, testConstants["LOGOUT"], nil)))

	var raw string
	require.NoError(t, j.DB().QueryRow("SELECT payload FROM cycles").Scan(&raw))
	assert.Equal(t, "{}", raw)

	got, err := j.ReadCycle(ctx, "flow-1", 1)
	require.NoError(t, err)
	assert.NotNil(t, got.Payload)
	assert.Empty(t, got.Payload)
}

func TestWriteCycle_CanonicalPayload(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.WriteCycle(ctx, createTestCycle("flow-1", 1, testConstants["LOGIN"], action.Payload{
		"b": "<b>", "a": 1,
	})))

	var raw string
	require.NoError(t, j.DB().QueryRow("SELECT payload FROM cycles").Scan(&raw))
	assert.Equal(t, `{"a":1,"b":"<b>"}`, raw)
}

func TestWriteCycle_RejectsUnencodablePayload(t *testing.T) {
	j := createTestJournal(t)

	err := j.WriteCycle(context.Background(), createTestCycle("flow-1", 1, testConstants["LOGIN"], action.Payload{
		"fn": func() {},
	}))
	assert.Error(t, err)
}

// ============================================================================
// WriteTransition
// ============================================================================

func TestWriteTransition_RequiresCycle(t *testing.T) {
	j := createTestJournal(t)

	err := j.WriteTransition(context.Background(), TransitionRecord{
		Flow: "missing", Seq: 1, Step: 1, Store: "user", Event: "wait", From: "idle", To: "waitingForDependencies",
	})
	assert.Error(t, err, "foreign key must reject an orphan transition")
}

func TestWriteTransition_Idempotent(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	require.NoError(t, j.WriteCycle(ctx, createTestCycle("flow-1", 1, testConstants["LOGIN"], nil)))

	tr := TransitionRecord{Flow: "flow-1", Seq: 1, Step: 1, Store: "user", Event: "wait", From: "idle", To: "waitingForDependencies"}
	require.NoError(t, j.WriteTransition(ctx, tr))
	require.NoError(t, j.WriteTransition(ctx, tr))

	got, err := j.ReadTransitions(ctx, "flow-1", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// ============================================================================
// SettleCycle
// ============================================================================

func TestSettleCycle_Settled(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	require.NoError(t, j.WriteCycle(ctx, createTestCycle("flow-1", 1, testConstants["LOGIN"], nil)))

	require.NoError(t, j.SettleCycle(ctx, "flow-1", 1, []OutcomeRecord{
		{Store: "user", Handled: true},
		{Store: "audit", Handled: false},
	}))

	got, err := j.ReadCycle(ctx, "flow-1", 1)
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, got.Status)
	assert.Zero(t, got.Failures)

	outcomes, err := j.ReadOutcomes(ctx, "flow-1", 1)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, "audit", outcomes[0].Store)
	assert.False(t, outcomes[0].Handled)
	assert.Equal(t, "user", outcomes[1].Store)
	assert.True(t, outcomes[1].Handled)
}

func TestSettleCycle_Failed(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	require.NoError(t, j.WriteCycle(ctx, createTestCycle("flow-1", 1, testConstants["LOGIN"], nil)))

	require.NoError(t, j.SettleCycle(ctx, "flow-1", 1, []OutcomeRecord{
		{Store: "user", Handled: true, Error: "wrong password"},
		{Store: "session", Handled: true, Error: "dependency failed"},
	}))

	got, err := j.ReadCycle(ctx, "flow-1", 1)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, 2, got.Failures)
}

func TestSettleCycle_MissingCycleRollsBack(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	err := j.SettleCycle(ctx, "missing", 7, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cycle")

	outcomes, err := j.ReadOutcomes(ctx, "missing", 7)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}
