package engine

import (
	"context"
	"errors"
	"sort"
)

// Replay re-dispatches recorded actions in seq order under their recorded
// flow tokens, draining emitted follow-ups after each one.
//
// Only root actions (Depth 0) are re-dispatched: follow-ups are emitted
// again by the same hooks, so dispatching recorded ones too would run them
// twice. Store failures are collected and replay continues.
func (e *Engine) Replay(ctx context.Context, events []RecordedEvent) ([]*Result, error) {
	roots := make([]RecordedEvent, 0, len(events))
	for _, ev := range events {
		if ev.Depth == 0 {
			roots = append(roots, ev)
		}
	}
	sort.SliceStable(roots, func(i, j int) bool { return roots[i].Seq < roots[j].Seq })

	var (
		results []*Result
		errs    []error
	)
	for _, ev := range roots {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := e.dispatch(ctx, ev.Event)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			errs = append(errs, err)
		}

		drained, err := e.Drain(ctx)
		results = append(results, drained...)
		if err != nil {
			errs = append(errs, err)
		}
	}

	e.logger.Info("replay finished", "actions", len(roots), "cycles", len(results), "errors", len(errs))
	return results, errors.Join(errs...)
}

// RecordedEvent is an action read back from a journal.
type RecordedEvent struct {
	Event
	Seq int64
}
