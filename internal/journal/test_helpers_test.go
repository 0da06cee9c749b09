package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/reflux/internal/action"
)

var testConstants = action.MustCreateConstants([]string{"LOGIN", "LOGOUT"}, "USER")

// createTestJournal opens a journal in a temp dir, closed on cleanup.
func createTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func createTestCycle(flow string, seq int64, c action.Constant, p action.Payload) CycleRecord {
	return CycleRecord{Flow: flow, Seq: seq, Constant: c, Payload: p}
}
