package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/demo"
	"github.com/roach88/reflux/internal/engine"
)

// seedAction is one dispatch written to a test journal.
type seedAction struct {
	constant action.Constant
	payload  action.Payload
}

func login(password string) seedAction {
	return seedAction{demo.Login, demo.LoginPayload("ada", password)}
}

func logout() seedAction {
	return seedAction{demo.Logout, nil}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedJournal dispatches actions into a new journal under flow tokens
// flow-1, flow-2, ... and returns its path.
func seedJournal(t *testing.T, cfg sessionConfig, actions ...seedAction) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "reflux.db")

	tokens := make([]string, len(actions))
	for i := range tokens {
		tokens[i] = fmt.Sprintf("flow-%d", i+1)
	}
	cfg.flowGen = engine.NewFixedGenerator(tokens...)

	ctx := context.Background()
	s, err := openSession(ctx, dbPath, discardLogger(), cfg)
	require.NoError(t, err)
	for _, a := range actions {
		// Failed logins are part of the record.
		_, _ = s.app.Dispatch(ctx, a.constant, a.payload)
	}
	require.NoError(t, s.Close())
	return dbPath
}

// execute runs cmd with args and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
