package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflux/internal/action"
)

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()
	for _, c := range []action.Constant{"A", "B", "C"} {
		require.True(t, q.Enqueue(Event{Constant: c}))
	}

	for _, want := range []action.Constant{"A", "B", "C"} {
		ev, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, ev.Constant)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestEventQueue_Signal(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(Event{Constant: "A"})
	q.Enqueue(Event{Constant: "B"})

	select {
	case <-q.Wait():
	default:
		t.Fatal("expected a pending signal")
	}
	assert.Equal(t, 2, q.Len())
}

func TestEventQueue_Close(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(Event{Constant: "A"})
	q.Close()
	q.Close()

	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(Event{Constant: "B"}))

	// Queued events survive Close.
	ev, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, action.Constant("A"), ev.Constant)

	// The pending signal from Enqueue is still delivered, then the
	// channel reports closed.
	_, open := <-q.Wait()
	assert.True(t, open)
	_, open = <-q.Wait()
	assert.False(t, open)
}

func TestEventQueue_ConcurrentProducers(t *testing.T) {
	q := newEventQueue()
	const producers, each = 10, 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.Enqueue(Event{Constant: "X"})
			}
		}()
	}
	wg.Wait()

	n := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		n++
	}
	assert.Equal(t, producers*each, n)
}
