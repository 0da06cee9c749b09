package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/state"
)

// Callback is the main body of an action handler. A returned error moves the
// lifecycle to fail. Blocking is allowed; the cycle waits for it.
type Callback func(ctx context.Context, s *Store, p action.Payload) error

// Hook is a lifecycle hook (before, success, after).
type Hook func(ctx context.Context, s *Store, p action.Payload)

// FailHook receives the error that failed the lifecycle.
type FailHook func(ctx context.Context, s *Store, p action.Payload, err error)

// ActionHandler describes how a store reacts to one constant.
// Every field is optional.
type ActionHandler struct {
	// WaitFor lists other stores that must settle the same cycle first.
	WaitFor []*Store

	// GetInitialState seeds the handler's private sub-state. Its result is
	// also what ResetActionState restores.
	GetInitialState func() state.State

	Before   Hook
	Callback Callback
	Success  Hook
	Fail     FailHook
	After    Hook
}

// handlerRecord is a registered handler with its sub-state.
type handlerRecord struct {
	constant action.Constant
	index    int
	def      ActionHandler
	initial  state.State

	// sub is guarded by the owning store's mu.
	sub state.State
}

// AddActionHandler registers h for constant c.
//
// Constants are unique per store. WaitFor must list other, non-nil stores,
// and may not close a waitFor cycle with handlers already registered for c
// on those stores.
func (s *Store) AddActionHandler(c action.Constant, h ActionHandler) error {
	const op = "Store.addActionHandler"
	fail := func(format string, args ...any) error {
		return &Error{Kind: KindConstruction, Op: op, Store: s.name, Constant: c, Message: fmt.Sprintf(format, args...)}
	}

	if c.IsZero() {
		return fail(msgMissingConstant)
	}
	for i, dep := range h.WaitFor {
		if dep == nil {
			return fail("%s (entry %d is nil)", msgWaitForNotStores, i)
		}
		if dep == s {
			return fail("waitFor for [%s] must not contain the store itself", c)
		}
	}
	if path := s.waitForCycle(c, h.WaitFor); path != nil {
		return fail("waitFor cycle for [%s]: %s", c, strings.Join(path, " -> "))
	}

	s.mu.Lock()
	if _, exists := s.handlers[c]; exists {
		s.mu.Unlock()
		return fail("handler for constant [%s] is already defined", c)
	}
	s.mu.Unlock()

	var initial state.State
	if h.GetInitialState != nil {
		initial = h.GetInitialState()
	}
	initial = initial.Clone()

	h.WaitFor = append([]*Store(nil), h.WaitFor...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.handlers[c]; exists {
		return fail("handler for constant [%s] is already defined", c)
	}
	s.handlers[c] = &handlerRecord{
		constant: c,
		index:    len(s.order),
		def:      h,
		initial:  initial,
		sub:      initial.Clone(),
	}
	s.order = append(s.order, c)
	return nil
}

// waitForCycle walks the registered handlers for c starting at deps and
// returns the store path back to s, or nil when there is none.
func (s *Store) waitForCycle(c action.Constant, deps []*Store) []string {
	visited := make(map[*Store]bool)
	var walk func(cur *Store, path []string) []string
	walk = func(cur *Store, path []string) []string {
		if cur == s {
			return path
		}
		if visited[cur] {
			return nil
		}
		visited[cur] = true
		for _, next := range cur.waitsFor(c) {
			if found := walk(next, append(path, next.name)); found != nil {
				return found
			}
		}
		return nil
	}
	for _, dep := range deps {
		if found := walk(dep, []string{s.name, dep.name}); found != nil {
			return found
		}
	}
	return nil
}

func (s *Store) waitsFor(c action.Constant) []*Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.handlers[c]; ok {
		return rec.def.WaitFor
	}
	return nil
}

func (s *Store) handler(c action.Constant) (*handlerRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.handlers[c]
	return rec, ok
}

// Handles reports whether a handler is registered for c.
func (s *Store) Handles(c action.Constant) bool {
	_, ok := s.handler(c)
	return ok
}

// Constants returns the handled constants in registration order.
func (s *Store) Constants() []action.Constant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]action.Constant(nil), s.order...)
}

// GetActionState returns a copy of the sub-state of the handler for c.
func (s *Store) GetActionState(c action.Constant) (state.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.handlers[c]
	if !ok {
		return nil, handlerNotDefined("Store.getActionState", s.name, c)
	}
	return rec.sub.Clone(), nil
}

// GetActionStateValue returns one key of the handler's sub-state, or nil
// when the key is unset.
func (s *Store) GetActionStateValue(c action.Constant, key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.handlers[c]
	if !ok {
		return nil, handlerNotDefined("Store.getActionState", s.name, c)
	}
	return rec.sub[key], nil
}

// SetActionState shallow-merges partial into the handler's sub-state.
// A non-empty merge fires one change notification.
func (s *Store) SetActionState(c action.Constant, partial state.State) error {
	s.mu.Lock()
	rec, ok := s.handlers[c]
	if !ok {
		s.mu.Unlock()
		return handlerNotDefined("Store.setActionState", s.name, c)
	}
	for k, v := range partial {
		rec.sub[k] = v
	}
	s.mu.Unlock()

	if len(partial) > 0 {
		s.bus.Notify()
	}
	return nil
}

// ResetActionState restores the handler's sub-state to what its
// GetInitialState returned at registration. Fires one change notification.
func (s *Store) ResetActionState(c action.Constant) error {
	s.mu.Lock()
	rec, ok := s.handlers[c]
	if !ok {
		s.mu.Unlock()
		return handlerNotDefined("Store.resetActionState", s.name, c)
	}
	rec.sub = rec.initial.Clone()
	s.mu.Unlock()

	s.bus.Notify()
	return nil
}

// GetHandlerIndex returns the registration position of the handler for c.
// The empty constant never resolves.
func (s *Store) GetHandlerIndex(c action.Constant) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.handlers[c]; ok && !c.IsZero() {
		return rec.index, nil
	}
	return -1, &Error{
		Kind:     KindLookup,
		Op:       "Store.getHandlerIndex",
		Store:    s.name,
		Constant: c,
		Message:  fmt.Sprintf("cannot get store handler for constant [%s]", c),
	}
}
