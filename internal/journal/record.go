package journal

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/engine"
)

// Cycle statuses.
const (
	StatusRunning = "running"
	StatusSettled = "settled"
	StatusFailed  = "failed"
)

// CycleRecord is one dispatch cycle.
type CycleRecord struct {
	ID          int64
	Flow        string
	Seq         int64
	Depth       int
	Constant    action.Constant
	Payload     action.Payload
	PayloadHash string
	Status      string
	Failures    int
}

// Event converts the record into an action the engine can replay.
func (r CycleRecord) Event() engine.RecordedEvent {
	return engine.RecordedEvent{
		Seq: r.Seq,
		Event: engine.Event{
			Constant: r.Constant,
			Payload:  r.Payload,
			Flow:     r.Flow,
			Depth:    r.Depth,
		},
	}
}

// TransitionRecord is one lifecycle transition of one store.
type TransitionRecord struct {
	Flow  string
	Seq   int64
	Step  int64
	Store string
	Event string
	From  string
	To    string
	Error string
}

// OutcomeRecord is the settled result of one store in one cycle.
type OutcomeRecord struct {
	Flow    string
	Seq     int64
	Store   string
	Handled bool
	Error   string
}

// marshalPayload converts a payload to canonical JSON TEXT for storage.
func marshalPayload(p action.Payload) (string, error) {
	if p == nil {
		p = action.Payload{}
	}
	data, err := action.MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT. Numbers decode as
// json.Number so large integers survive the round trip.
func unmarshalPayload(data string) (action.Payload, error) {
	if data == "" || data == "{}" {
		return action.Payload{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var p action.Payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return p, nil
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
