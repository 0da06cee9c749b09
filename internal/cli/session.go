package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/reflux/internal/demo"
	"github.com/roach88/reflux/internal/engine"
	"github.com/roach88/reflux/internal/journal"
)

// session is the demo application backed by a journal. Opening a session
// replays the journal, so the stores start from the state the previous
// commands left behind.
type session struct {
	journal *journal.Journal
	app     *demo.App

	// replayed counts the cycles rebuilt from the journal.
	replayed int
}

type sessionConfig struct {
	maxAttempts int
	flowGen     engine.FlowTokenGenerator
}

// openSession opens the journal at dbPath, attaches it to a fresh demo
// application and replays every recorded action.
//
// Replayed cycles are written back under their recorded flow and seq, which
// the journal ignores as duplicates. New dispatches continue the sequence.
func openSession(ctx context.Context, dbPath string, logger *slog.Logger, cfg sessionConfig) (*session, error) {
	j, err := journal.Open(dbPath, journal.WithLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	events, err := j.RecordedEvents(ctx)
	if err != nil {
		j.Close()
		return nil, WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	engineOpts := []engine.EngineOption{engine.WithTracer(j)}
	if cfg.flowGen != nil {
		engineOpts = append(engineOpts, engine.WithFlowGenerator(cfg.flowGen))
	}
	app, err := demo.New(
		demo.WithLogger(logger),
		demo.WithMaxAttempts(cfg.maxAttempts),
		demo.WithEngineOptions(engineOpts...),
	)
	if err != nil {
		j.Close()
		return nil, WrapExitError(ExitCommandError, "failed to build application", err)
	}

	// Failed cycles are part of the record; only cancellation aborts.
	results, err := app.Engine.Replay(ctx, events)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		j.Close()
		return nil, WrapExitError(ExitCommandError, "replay interrupted", err)
	}
	logger.Debug("journal replayed", "db", dbPath, "actions", len(events), "cycles", len(results))

	return &session{journal: j, app: app, replayed: len(results)}, nil
}

// Close closes the journal. Write failures collected while the session ran
// are returned with the close error.
func (s *session) Close() error {
	return errors.Join(s.journal.Err(), s.journal.Close())
}
