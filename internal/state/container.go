package state

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/tiendc/go-deepcopy"

	"github.com/roach88/reflux/internal/action"
)

// State is a plain key/value mapping.
type State map[string]any

// Clone returns a copy of s that shares no mutable containers with it.
//
// Nested State, map[string]any and []any values are cloned recursively.
// Other values whose type is built only from exported fields, basic kinds,
// slices, arrays, maps and pointers are deep-copied. Everything else (funcs,
// channels, interfaces, types with unexported fields such as time.Time) is
// kept as is, so Clone never alters a value.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case State:
		return x.Clone()
	case map[string]any:
		if x == nil {
			return x
		}
		return map[string]any(State(x).Clone())
	case []any:
		if x == nil {
			return x
		}
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	}

	t := reflect.TypeOf(v)
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Pointer:
	default:
		return v
	}
	if !deepCopyable(t, map[reflect.Type]bool{}) {
		return v
	}
	dst := reflect.New(t)
	if err := deepcopy.Copy(dst.Interface(), v); err != nil {
		return v
	}
	return dst.Elem().Interface()
}

// deepCopyable reports whether every value reachable through t can be
// copied without losing data.
func deepCopyable(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Slice, reflect.Array, reflect.Pointer:
		return deepCopyable(t.Elem(), seen)
	case reflect.Map:
		return deepCopyable(t.Key(), seen) && deepCopyable(t.Elem(), seen)
	case reflect.Struct:
		seen[t] = true
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || !deepCopyable(f.Type, seen) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Container holds the authoritative state of one store.
type Container struct {
	mu   sync.RWMutex
	data State
	bus  *Bus
}

// NewContainer creates a container seeded with a copy of initial.
// Mutations are announced on bus; a nil bus disables notification.
func NewContainer(initial State, bus *Bus) *Container {
	return &Container{
		data: initial.Clone(),
		bus:  bus,
	}
}

// Get returns the value stored under key, or nil when the key is unset.
func (c *Container) Get(key string) any {
	v, _ := c.Lookup(key)
	return v
}

// Lookup returns the value stored under key and whether it is set.
func (c *Container) Lookup(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

// Set shallow-merges partial into the state and fires one notification.
// An empty partial changes nothing and fires nothing.
func (c *Container) Set(partial State) {
	if len(partial) == 0 {
		return
	}
	c.mu.Lock()
	for k, v := range partial {
		c.data[k] = v
	}
	c.mu.Unlock()

	c.notify()
}

// Replace discards all keys and installs a copy of next. It always fires
// exactly one notification.
func (c *Container) Replace(next State) {
	fresh := next.Clone()
	c.mu.Lock()
	c.data = fresh
	c.mu.Unlock()

	c.notify()
}

// Reset replaces the state with initial without notifying. Used while a
// store is being assembled, before anyone can subscribe.
func (c *Container) Reset(initial State) {
	fresh := initial.Clone()
	c.mu.Lock()
	c.data = fresh
	c.mu.Unlock()
}

// Snapshot returns a deep copy of the current state.
func (c *Container) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.Clone()
}

// ToJS returns a snapshot of the state.
func (c *Container) ToJS() State { return c.Snapshot() }

// ToObject returns a snapshot of the state.
func (c *Container) ToObject() State { return c.Snapshot() }

// ToJSON returns a snapshot of the state suitable for JSON encoding.
func (c *Container) ToJSON() State { return c.Snapshot() }

// MarshalJSON encodes the current state as canonical JSON. json.Marshal
// re-escapes HTML characters in the result; use an Encoder with
// SetEscapeHTML(false) to keep them.
func (c *Container) MarshalJSON() ([]byte, error) {
	snap := c.Snapshot()
	data, err := action.MarshalCanonical(map[string]any(snap))
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return data, nil
}

// Keys returns the set keys in canonical order.
func (c *Container) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return action.SortedKeys(c.data)
}

// Len returns the number of set keys.
func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *Container) notify() {
	if c.bus != nil {
		c.bus.Notify()
	}
}
