package store

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/state"
)

// Store is the runtime instance assembled from a Definition.
//
// Thread-safety model:
//   - state accessors and action-state accessors: safe from any goroutine
//   - dispatch lifecycles: serialized per store by dispatchMu
//   - change listeners: invoked outside all store locks
type Store struct {
	name   string
	def    *Definition
	bus    *state.Bus
	state  *state.Container
	logger *slog.Logger

	methods map[string]Method

	mu       sync.RWMutex
	handlers map[action.Constant]*handlerRecord
	order    []action.Constant

	// dispatchMu serializes lifecycles of this store across cycles.
	dispatchMu sync.Mutex
}

// Option configures a store at construction.
type Option func(*Store)

// WithLogger sets the logger used for lifecycle diagnostics.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

var storeCounter atomic.Int64

// New assembles a store from def and handlerDefs.
//
// handlerDefs is a sequence of handler definitions, each shaped
// [constant, callback] or [constant, []*Store, callback]; see On and OnAfter.
// A nil handlerDefs means no handlers.
//
// Construction is all-or-nothing: on any ConstructionError no store is
// returned and no StoreDidMount has run.
func New(def *Definition, handlerDefs any, opts ...Option) (*Store, error) {
	if def == nil {
		def = &Definition{}
	}

	name := def.Name
	if name == "" {
		name = fmt.Sprintf("store-%d", storeCounter.Add(1))
	}

	specs, err := parseHandlerDefinitions(name, handlerDefs)
	if err != nil {
		return nil, err
	}

	res, err := resolve(name, def)
	if err != nil {
		return nil, err
	}

	bus := state.NewBus()
	s := &Store{
		name:     name,
		def:      def,
		bus:      bus,
		state:    state.NewContainer(nil, bus),
		logger:   slog.Default(),
		methods:  res.methods,
		handlers: make(map[action.Constant]*handlerRecord),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.state.Reset(res.initial)

	for _, spec := range specs {
		if err := s.AddActionHandler(spec.constant, spec.handler); err != nil {
			return nil, err
		}
	}

	for _, mount := range res.mounts {
		mount(s)
	}

	s.logger.Debug("store created",
		"store", s.name,
		"mixins", len(res.order)-1,
		"handlers", len(specs),
		"methods", len(res.methods),
	)
	return s, nil
}

// MustNew is like New but panics on error. Intended for package-level stores.
func MustNew(def *Definition, handlerDefs any, opts ...Option) *Store {
	s, err := New(def, handlerDefs, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the store's name.
func (s *Store) Name() string { return s.name }

// String implements fmt.Stringer.
func (s *Store) String() string { return "store[" + s.name + "]" }

// Definition returns the definition the store was built from, so the store
// can be listed as a mixin of another definition.
func (s *Store) Definition() *Definition { return s.def }

// State returns the store's state container.
func (s *Store) State() *state.Container { return s.state }

// Get returns the state value under key, or nil when unset.
func (s *Store) Get(key string) any { return s.state.Get(key) }

// Lookup returns the state value under key and whether it is set.
func (s *Store) Lookup(key string) (any, bool) { return s.state.Lookup(key) }

// Set shallow-merges partial into the state. An empty partial fires no
// change notification.
func (s *Store) Set(partial state.State) { s.state.Set(partial) }

// SetState is an alias of Set.
func (s *Store) SetState(partial state.State) { s.state.Set(partial) }

// ReplaceState discards the current state and installs next.
func (s *Store) ReplaceState(next state.State) { s.state.Replace(next) }

// ToJS returns a snapshot copy of the state.
func (s *Store) ToJS() state.State { return s.state.ToJS() }

// ToObject returns a snapshot copy of the state.
func (s *Store) ToObject() state.State { return s.state.ToObject() }

// ToJSON returns a snapshot copy of the state.
func (s *Store) ToJSON() state.State { return s.state.ToJSON() }

// MarshalJSON encodes the state as canonical JSON.
func (s *Store) MarshalJSON() ([]byte, error) { return s.state.MarshalJSON() }

// OnChange subscribes l to state changes. Subscribing twice registers twice.
func (s *Store) OnChange(l state.Listener) { s.bus.Subscribe(l) }

// OffChange removes every registration of l.
func (s *Store) OffChange(l state.Listener) { s.bus.Unsubscribe(l) }

// Call invokes the method registered under name.
func (s *Store) Call(name string, args ...any) (any, error) {
	m, ok := s.methods[name]
	if !ok {
		return nil, &Error{
			Kind:    KindLookup,
			Op:      "Store.call",
			Store:   s.name,
			Message: fmt.Sprintf("method [%s] is not defined", name),
		}
	}
	return m(s, args...)
}

// HasMethod reports whether a method named name was resolved onto the store.
func (s *Store) HasMethod(name string) bool {
	_, ok := s.methods[name]
	return ok
}

// Methods returns the resolved method names in sorted order.
func (s *Store) Methods() []string {
	names := make([]string, 0, len(s.methods))
	for name := range s.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
