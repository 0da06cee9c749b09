package journal

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/reflux/internal/store"
)

var (
	_ store.Tracer        = (*Journal)(nil)
	_ store.CycleObserver = (*Journal)(nil)
)

// CycleStarted records the cycle. Implements store.CycleObserver.
func (j *Journal) CycleStarted(ctx context.Context, c *store.Cycle) {
	j.report(j.WriteCycle(ctx, CycleRecord{
		Flow:     c.Flow,
		Seq:      c.Seq,
		Depth:    c.Depth,
		Constant: c.Constant,
		Payload:  c.Payload,
	}), "cycle", c.Flow, c.Seq)
}

// Record records one transition. Implements store.Tracer.
func (j *Journal) Record(ctx context.Context, ev store.TraceEvent) {
	j.report(j.WriteTransition(ctx, TransitionRecord{
		Flow:  ev.Flow,
		Seq:   ev.Seq,
		Step:  ev.Step,
		Store: ev.Store,
		Event: ev.Event,
		From:  ev.From,
		To:    ev.To,
		Error: errorText(ev.Err),
	}), "transition", ev.Flow, ev.Seq)
}

// CycleSettled records the outcomes. Implements store.CycleObserver.
func (j *Journal) CycleSettled(ctx context.Context, c *store.Cycle, outcomes []store.Outcome) {
	recs := make([]OutcomeRecord, len(outcomes))
	for i, o := range outcomes {
		recs[i] = OutcomeRecord{
			Flow:    c.Flow,
			Seq:     c.Seq,
			Store:   o.Store.Name(),
			Handled: o.Handled,
			Error:   errorText(o.Err),
		}
	}
	j.report(j.SettleCycle(ctx, c.Flow, c.Seq, recs), "outcomes", c.Flow, c.Seq)
}

// Err returns the write failures seen by the tracer callbacks, joined.
// The callbacks cannot return errors, so callers check Err after
// dispatching.
func (j *Journal) Err() error {
	return j.errs.err()
}

func (j *Journal) report(err error, what, flow string, seq int64) {
	if err == nil {
		return
	}
	j.errs.add(err)
	j.logger.Error("journal write failed", "record", what, "flow", flow, "seq", seq, "error", err)
}

type errorLog struct {
	mu   sync.Mutex
	errs []error
}

func (l *errorLog) add(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err)
}

func (l *errorLog) err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return errors.Join(l.errs...)
}
