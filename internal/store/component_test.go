package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/reflux/internal/state"
)

func TestMixin_ComponentLifecycle(t *testing.T) {
	s := newEmptyStore(t)
	s.Set(state.State{"count": 0})

	var renders []state.State
	lc := s.Mixin(func(snap state.State) { renders = append(renders, snap) })

	assert.Equal(t, state.State{"count": 0}, lc.InitialState())

	lc.ComponentWillMount()
	lc.ComponentDidMount()
	s.Set(state.State{"count": 1})

	lc.ComponentWillUnmount()
	s.Set(state.State{"count": 2})

	assert.Equal(t, []state.State{{"count": 0}, {"count": 1}}, renders)
}

func TestMixin_AdaptersAreIndependent(t *testing.T) {
	s := newEmptyStore(t)
	var first, second int
	a := s.Mixin(func(state.State) { first++ })
	b := s.Mixin(func(state.State) { second++ })

	a.ComponentWillMount()
	b.ComponentWillMount()
	a.ComponentWillUnmount()

	s.Set(state.State{"k": 1})
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestMixin_NilRender(t *testing.T) {
	s := newEmptyStore(t)
	lc := s.Mixin(nil)

	assert.NotPanics(t, func() {
		lc.ComponentWillMount()
		lc.ComponentDidMount()
		s.Set(state.State{"k": 1})
		lc.ComponentWillUnmount()
	})
}
