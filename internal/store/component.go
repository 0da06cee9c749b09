package store

import (
	"github.com/roach88/reflux/internal/state"
)

// Lifecycle adapts a store to a UI component's mount cycle. The component
// calls the three methods at the corresponding phases; render receives a
// fresh snapshot on mount and after every change while mounted.
type Lifecycle struct {
	store    *Store
	render   func(state.State)
	listener *state.FuncListener
}

// Mixin returns a lifecycle adapter that pushes snapshots of s to render.
func (s *Store) Mixin(render func(state.State)) *Lifecycle {
	l := &Lifecycle{store: s, render: render}
	l.listener = state.NewListener(l.push)
	return l
}

// InitialState returns the snapshot a component should start from.
func (l *Lifecycle) InitialState() state.State {
	return l.store.ToJS()
}

// ComponentWillMount subscribes to store changes.
func (l *Lifecycle) ComponentWillMount() {
	l.store.OnChange(l.listener)
}

// ComponentDidMount pushes the current snapshot.
func (l *Lifecycle) ComponentDidMount() {
	l.push()
}

// ComponentWillUnmount unsubscribes. No render happens afterwards.
func (l *Lifecycle) ComponentWillUnmount() {
	l.store.OffChange(l.listener)
}

func (l *Lifecycle) push() {
	if l.render != nil {
		l.render(l.store.ToJS())
	}
}
