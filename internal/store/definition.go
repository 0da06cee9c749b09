package store

import (
	"github.com/roach88/reflux/internal/state"
)

// Method is a named behavior copied onto a store from its definition or one
// of its mixins. The store is passed explicitly in place of a receiver.
type Method func(s *Store, args ...any) (any, error)

// Definition describes a store or a mixin.
//
// Mixins form a tree: each mixin may declare its own Mixins, which are
// resolved before the mixin itself. The tree must be acyclic.
type Definition struct {
	// Name identifies the store in errors, logs and traces. Mixin names are
	// only used in error messages.
	Name string

	// Mixins are resolved depth-first, in order, before this definition.
	Mixins []*Definition

	// GetInitialState contributes keys to the store's initial state.
	// Results of all sources are merged; later sources win per key.
	GetInitialState func() state.State

	// StoreDidMount runs once after the store is fully assembled.
	// Every source's hook runs, in resolution order.
	StoreDidMount func(s *Store)

	// Methods are copied onto the store; later sources win per name.
	Methods map[string]Method
}

func (d *Definition) displayName() string {
	if d == nil || d.Name == "" {
		return "<anonymous>"
	}
	return d.Name
}
