package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/engine"
)

const cycleColumns = `id, flow_token, seq, depth, constant, payload, payload_hash, status, failures`

// ReadCycles returns every cycle ordered by seq.
//
// Returns an empty slice (not nil) for an empty journal.
func (j *Journal) ReadCycles(ctx context.Context) ([]CycleRecord, error) {
	return j.queryCycles(ctx, `SELECT `+cycleColumns+` FROM cycles ORDER BY seq ASC, id ASC`)
}

// ReadFlow returns the cycles of one flow ordered by seq.
func (j *Journal) ReadFlow(ctx context.Context, flow string) ([]CycleRecord, error) {
	return j.queryCycles(ctx, `SELECT `+cycleColumns+` FROM cycles WHERE flow_token = ? ORDER BY seq ASC, id ASC`, flow)
}

// ReadCycle returns one cycle. Returns sql.ErrNoRows if not found.
func (j *Journal) ReadCycle(ctx context.Context, flow string, seq int64) (CycleRecord, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+cycleColumns+` FROM cycles WHERE flow_token = ? AND seq = ?`, flow, seq)
	return scanCycle(row)
}

// Flows returns the distinct flow tokens in order of first appearance.
func (j *Journal) Flows(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT flow_token FROM cycles
		GROUP BY flow_token
		ORDER BY MIN(seq) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query flows: %w", err)
	}
	defer rows.Close()

	flows := []string{}
	for rows.Next() {
		var flow string
		if err := rows.Scan(&flow); err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		flows = append(flows, flow)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flows: %w", err)
	}
	return flows, nil
}

// ReadTransitions returns the transitions of one cycle ordered by step.
func (j *Journal) ReadTransitions(ctx context.Context, flow string, seq int64) ([]TransitionRecord, error) {
	return j.queryTransitions(ctx, `
		SELECT flow_token, seq, step, store, event, from_state, to_state, error
		FROM transitions
		WHERE flow_token = ? AND seq = ?
		ORDER BY step ASC
	`, flow, seq)
}

// ReadStoreTransitions returns every transition of one store in one flow,
// ordered by seq then step.
func (j *Journal) ReadStoreTransitions(ctx context.Context, flow, storeName string) ([]TransitionRecord, error) {
	return j.queryTransitions(ctx, `
		SELECT flow_token, seq, step, store, event, from_state, to_state, error
		FROM transitions
		WHERE store = ? AND flow_token = ?
		ORDER BY seq ASC, step ASC
	`, storeName, flow)
}

// ReadOutcomes returns the store outcomes of one cycle ordered by store name.
func (j *Journal) ReadOutcomes(ctx context.Context, flow string, seq int64) ([]OutcomeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT flow_token, seq, store, handled, error
		FROM outcomes
		WHERE flow_token = ? AND seq = ?
		ORDER BY store COLLATE BINARY ASC
	`, flow, seq)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []OutcomeRecord{}
	for rows.Next() {
		var o OutcomeRecord
		if err := rows.Scan(&o.Flow, &o.Seq, &o.Store, &o.Handled, &o.Error); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}

// MaxSeq returns the highest recorded seq, or 0 for an empty journal.
// Engines continue from it with engine.NewClockAt.
func (j *Journal) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := j.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM cycles`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query max seq: %w", err)
	}
	return seq.Int64, nil
}

// RecordedEvents returns every cycle as a replayable action, in seq order.
func (j *Journal) RecordedEvents(ctx context.Context) ([]engine.RecordedEvent, error) {
	cycles, err := j.ReadCycles(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]engine.RecordedEvent, len(cycles))
	for i, c := range cycles {
		events[i] = c.Event()
	}
	return events, nil
}

func (j *Journal) queryCycles(ctx context.Context, query string, args ...any) ([]CycleRecord, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	cycles := []CycleRecord{}
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycles: %w", err)
	}
	return cycles, nil
}

func (j *Journal) queryTransitions(ctx context.Context, query string, args ...any) ([]TransitionRecord, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	transitions := []TransitionRecord{}
	for rows.Next() {
		var t TransitionRecord
		if err := rows.Scan(&t.Flow, &t.Seq, &t.Step, &t.Store, &t.Event, &t.From, &t.To, &t.Error); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		transitions = append(transitions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return transitions, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCycle(row scanner) (CycleRecord, error) {
	var (
		c           CycleRecord
		constant    string
		payloadJSON string
	)
	err := row.Scan(&c.ID, &c.Flow, &c.Seq, &c.Depth, &constant, &payloadJSON, &c.PayloadHash, &c.Status, &c.Failures)
	if errors.Is(err, sql.ErrNoRows) {
		return CycleRecord{}, err
	}
	if err != nil {
		return CycleRecord{}, fmt.Errorf("scan cycle: %w", err)
	}

	c.Constant = action.Constant(constant)
	if c.Payload, err = unmarshalPayload(payloadJSON); err != nil {
		return CycleRecord{}, fmt.Errorf("cycle %s/%d: %w", c.Flow, c.Seq, err)
	}
	return c, nil
}
