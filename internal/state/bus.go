package state

import "sync"

// Listener is notified after a change has been applied.
//
// Listeners are compared with ==, so implementations must be comparable;
// pointer types are the natural choice. Use NewListener to wrap a func.
type Listener interface {
	Changed()
}

// FuncListener adapts a plain function to the Listener interface.
// Always use it through the pointer returned by NewListener: the pointer
// is the listener's identity.
type FuncListener struct {
	fn func()
}

// NewListener wraps fn in a listener with a stable identity.
func NewListener(fn func()) *FuncListener {
	return &FuncListener{fn: fn}
}

// Changed calls the wrapped function.
func (l *FuncListener) Changed() {
	if l != nil && l.fn != nil {
		l.fn()
	}
}

// Bus is an ordered list of listeners.
//
// Subscribing the same listener twice registers it twice; Unsubscribe
// removes every registration of that listener.
type Bus struct {
	mu        sync.Mutex
	listeners []Listener
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe appends l. A nil listener is ignored.
func (b *Bus) Subscribe(l Listener) {
	if l == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Unsubscribe removes every registration of l and reports whether any
// registration was found.
func (b *Bus) Unsubscribe(l Listener) bool {
	if l == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.listeners[:0]
	removed := false
	for _, existing := range b.listeners {
		if existing == l {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	// Clear the tail so removed listeners can be collected.
	for i := len(kept); i < len(b.listeners); i++ {
		b.listeners[i] = nil
	}
	b.listeners = kept
	return removed
}

// Notify invokes every listener registered at the time of the call.
// Listeners run outside the bus lock and may subscribe or unsubscribe; a
// listener removed while a notification is in flight is skipped.
func (b *Bus) Notify() {
	b.mu.Lock()
	current := make([]Listener, len(b.listeners))
	copy(current, b.listeners)
	b.mu.Unlock()

	for _, l := range current {
		if !b.has(l) {
			continue
		}
		l.Changed()
	}
}

func (b *Bus) has(l Listener) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.listeners {
		if existing == l {
			return true
		}
	}
	return false
}

// Len returns the number of registrations.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
