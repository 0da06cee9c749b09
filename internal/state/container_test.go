package state

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) Changed() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *counter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func newObserved(initial State) (*Container, *counter) {
	bus := NewBus()
	spy := &counter{}
	bus.Subscribe(spy)
	return NewContainer(initial, bus), spy
}

func TestContainer_GetUnsetKeyIsNil(t *testing.T) {
	c, _ := newObserved(State{"id": 1})

	assert.Equal(t, 1, c.Get("id"))
	assert.Nil(t, c.Get("missing"))

	_, ok := c.Lookup("missing")
	assert.False(t, ok)
}

func TestContainer_SetMergesShallow(t *testing.T) {
	c, spy := newObserved(State{"id": 1, "username": "mustermann"})

	c.Set(State{"id": 3})

	assert.Equal(t, 3, c.Get("id"))
	assert.Equal(t, "mustermann", c.Get("username"))
	assert.Equal(t, 1, spy.count())
}

func TestContainer_EmptySetIsSilent(t *testing.T) {
	c, spy := newObserved(State{"id": 1})

	c.Set(State{})
	c.Set(nil)

	assert.Equal(t, 0, spy.count())
}

func TestContainer_SetFiresOncePerCall(t *testing.T) {
	c, spy := newObserved(nil)

	c.Set(State{"a": 1, "b": 2, "c": 3})
	assert.Equal(t, 1, spy.count())

	c.Set(State{"a": 4})
	assert.Equal(t, 2, spy.count())
}

func TestContainer_ReplaceDiscardsKeys(t *testing.T) {
	c, spy := newObserved(nil)

	c.Set(State{"a": 1})
	c.Replace(State{"b": 2})

	assert.Nil(t, c.Get("a"))
	assert.Equal(t, 2, c.Get("b"))
	assert.Equal(t, 2, spy.count(), "set and replace fire one notification each")
	assert.Equal(t, []string{"b"}, c.Keys())
}

func TestContainer_ReplaceWithEmptyStillNotifies(t *testing.T) {
	c, spy := newObserved(State{"a": 1})

	c.Replace(State{})

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 1, spy.count())
}

func TestContainer_SnapshotsAreCopies(t *testing.T) {
	c, _ := newObserved(State{"user": map[string]any{"name": "a"}, "tags": []any{"x"}})

	snaps := []State{c.Snapshot(), c.ToJS(), c.ToObject(), c.ToJSON()}

	c.Set(State{"user": map[string]any{"name": "b"}})

	for _, snap := range snaps {
		assert.Equal(t, "a", snap["user"].(map[string]any)["name"])
	}

	// Mutating a snapshot never reaches the container.
	snaps[0]["user"].(map[string]any)["name"] = "mutated"
	snaps[0]["tags"].([]any)[0] = "mutated"
	assert.Equal(t, "b", c.Get("user").(map[string]any)["name"])
	assert.Equal(t, "x", c.Get("tags").([]any)[0])
}

func TestContainer_InitialStateIsCopied(t *testing.T) {
	initial := State{"id": 1}
	c := NewContainer(initial, nil)

	initial["id"] = 2
	assert.Equal(t, 1, c.Get("id"))
}

func TestContainer_ResetDoesNotNotify(t *testing.T) {
	c, spy := newObserved(State{"a": 1})

	c.Reset(State{"b": 2})

	assert.Nil(t, c.Get("a"))
	assert.Equal(t, 2, c.Get("b"))
	assert.Equal(t, 0, spy.count())
}

func TestContainer_MarshalJSONIsCanonical(t *testing.T) {
	c := NewContainer(State{"b": 1, "a": "<x>"}, nil)

	data, err := c.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<x>","b":1}`, string(data))

	// json.Marshal compacts the output again and escapes HTML.
	data, err = json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"\u003cx\u003e","b":1}`, string(data))
}

func TestContainer_ListenerMayReadContainer(t *testing.T) {
	bus := NewBus()
	c := NewContainer(nil, bus)

	var seen any
	bus.Subscribe(NewListener(func() {
		seen = c.Get("k")
	}))

	c.Set(State{"k": "v"})
	assert.Equal(t, "v", seen)
}

type opaque struct{ secret int }

type point struct {
	X, Y int
	Tags []string
}

func TestState_CloneKeepsOpaqueValues(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ch := make(chan int)
	called := false
	s := State{
		"t":  when,
		"o":  opaque{secret: 7},
		"op": &opaque{secret: 8},
		"fn": func() { called = true },
		"ch": ch,
	}

	clone := s.Clone()
	assert.Equal(t, when, clone["t"])
	assert.Equal(t, opaque{secret: 7}, clone["o"])
	assert.Same(t, s["op"], clone["op"])
	assert.Equal(t, ch, clone["ch"])

	clone["fn"].(func())()
	assert.True(t, called)
	assert.NotNil(t, State(nil).Clone())
}

func TestState_CloneCopiesPlainValues(t *testing.T) {
	tags := []string{"a"}
	counts := map[string]int{"n": 1}
	p := &point{X: 1, Y: 2, Tags: []string{"p"}}
	s := State{"tags": tags, "counts": counts, "p": p, "v": point{X: 3, Tags: []string{"v"}}}

	clone := s.Clone()
	tags[0] = "changed"
	counts["n"] = 2
	p.Tags[0] = "changed"

	assert.Equal(t, []string{"a"}, clone["tags"])
	assert.Equal(t, map[string]int{"n": 1}, clone["counts"])
	assert.Equal(t, &point{X: 1, Y: 2, Tags: []string{"p"}}, clone["p"])
	assert.Equal(t, point{X: 3, Tags: []string{"v"}}, clone["v"])
}

func TestContainer_ReplaceAndSnapshotKeepOpaqueValues(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewContainer(State{"t": when}, nil)
	assert.Equal(t, when, c.Get("t"))

	c.Replace(State{"t": when, "o": opaque{secret: 7}})
	assert.Equal(t, when, c.Get("t"))
	assert.Equal(t, opaque{secret: 7}, c.Get("o"))

	snap := c.Snapshot()
	assert.Equal(t, when, snap["t"])
	assert.Equal(t, opaque{secret: 7}, snap["o"])
}

func TestContainer_ConcurrentAccess(t *testing.T) {
	c, spy := newObserved(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set(State{"k": i})
			_ = c.Snapshot()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, spy.count())
	assert.Equal(t, 1, c.Len())
}
