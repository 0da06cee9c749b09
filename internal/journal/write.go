package journal

import (
	"context"
	"fmt"

	"github.com/roach88/reflux/internal/action"
)

// WriteCycle inserts a cycle record with status running.
// Uses ON CONFLICT(flow_token, seq) DO NOTHING for idempotency.
func (j *Journal) WriteCycle(ctx context.Context, rec CycleRecord) error {
	payloadJSON, err := marshalPayload(rec.Payload)
	if err != nil {
		return fmt.Errorf("write cycle: %w", err)
	}
	hash, err := action.PayloadHash(rec.Constant, rec.Payload)
	if err != nil {
		return fmt.Errorf("write cycle: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO cycles
		(flow_token, seq, depth, constant, payload, payload_hash, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(flow_token, seq) DO NOTHING
	`,
		rec.Flow,
		rec.Seq,
		rec.Depth,
		string(rec.Constant),
		payloadJSON,
		hash,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("write cycle: %w", err)
	}
	return nil
}

// WriteTransition inserts a lifecycle transition.
// Uses ON CONFLICT DO NOTHING for idempotency.
//
// Note: the cycle referenced by (Flow, Seq) must exist (foreign key constraint).
func (j *Journal) WriteTransition(ctx context.Context, rec TransitionRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO transitions
		(flow_token, seq, step, store, event, from_state, to_state, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(flow_token, seq, step) DO NOTHING
	`,
		rec.Flow,
		rec.Seq,
		rec.Step,
		rec.Store,
		rec.Event,
		rec.From,
		rec.To,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("write transition: %w", err)
	}
	return nil
}

// SettleCycle writes the store outcomes of a cycle and its final status in
// one transaction. Either all rows persist or none do.
func (j *Journal) SettleCycle(ctx context.Context, flow string, seq int64, outcomes []OutcomeRecord) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("settle cycle: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	failures := 0
	for _, o := range outcomes {
		if o.Error != "" {
			failures++
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO outcomes (flow_token, seq, store, handled, error)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(flow_token, seq, store) DO NOTHING
		`, flow, seq, o.Store, o.Handled, o.Error)
		if err != nil {
			return fmt.Errorf("settle cycle: insert outcome %s: %w", o.Store, err)
		}
	}

	status := StatusSettled
	if failures > 0 {
		status = StatusFailed
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE cycles SET status = ?, failures = ?
		WHERE flow_token = ? AND seq = ?
	`, status, failures, flow, seq)
	if err != nil {
		return fmt.Errorf("settle cycle: update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("settle cycle: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("settle cycle: no cycle (flow=%s, seq=%d)", flow, seq)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("settle cycle: commit: %w", err)
	}
	return nil
}
