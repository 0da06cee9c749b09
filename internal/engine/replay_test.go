package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/state"
	"github.com/roach88/reflux/internal/store"
)

func newCountingStore(t *testing.T) *store.Store {
	t.Helper()
	return newTestStore(t, "counter",
		store.On(testConstants["PING"], func(ctx context.Context, s *store.Store, p action.Payload) error {
			n, _ := s.Get("pings").(int)
			s.Set(state.State{"pings": n + 1})
			Emit(ctx, testConstants["PONG"], p)
			return nil
		}),
		store.On(testConstants["PONG"], func(_ context.Context, s *store.Store, p action.Payload) error {
			if p.String("fail") != "" {
				return errors.New(p.String("fail"))
			}
			n, _ := s.Get("pongs").(int)
			s.Set(state.State{"pongs": n + 1})
			return nil
		}),
	)
}

func TestEngine_ReplayRebuildsState(t *testing.T) {
	s := newCountingStore(t)
	e := New()
	require.NoError(t, e.Register(s))

	events := []RecordedEvent{
		{Seq: 3, Event: Event{Constant: testConstants["PING"], Flow: "f-2"}},
		{Seq: 2, Event: Event{Constant: testConstants["PONG"], Flow: "f-1", Depth: 1}},
		{Seq: 1, Event: Event{Constant: testConstants["PING"], Flow: "f-1"}},
	}

	results, err := e.Replay(context.Background(), events)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Get("pings"))
	assert.Equal(t, 2, s.Get("pongs"), "recorded follow-ups are not dispatched twice")

	require.Len(t, results, 4)
	assert.Equal(t, "f-1", results[0].Flow)
	assert.Equal(t, "f-1", results[1].Flow)
	assert.Equal(t, 1, results[1].Depth)
	assert.Equal(t, "f-2", results[2].Flow)
}

func TestEngine_ReplayContinuesAfterFailure(t *testing.T) {
	s := newCountingStore(t)
	e := New()
	require.NoError(t, e.Register(s))

	events := []RecordedEvent{
		{Seq: 1, Event: Event{Constant: testConstants["PING"], Flow: "f-1", Payload: action.Payload{"fail": "bad pong"}}},
		{Seq: 2, Event: Event{Constant: testConstants["PING"], Flow: "f-2"}},
	}

	_, err := e.Replay(context.Background(), events)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad pong")
	assert.Equal(t, 2, s.Get("pings"))
	assert.Equal(t, 1, s.Get("pongs"))
}
