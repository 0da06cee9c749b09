package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/store"
)

// FlowTokenGenerator generates flow tokens for cycle correlation.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type FlowTokenGenerator interface {
	Generate() string
}

// Sequencer hands out the logical clock values stamped on each cycle.
type Sequencer interface {
	Next() int64
	Current() int64
}

// DefaultMaxCascade is the default limit on how deep actions emitted from
// handler hooks may chain within one flow.
const DefaultMaxCascade = 100

// Engine is the dispatcher: it delivers each action to every registered
// store as one dispatch cycle.
//
// Thread-safety model:
//   - Register(), Dispatch(), Enqueue(), Emit(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - cycles never overlap: Dispatch and the Run loop share one dispatch lock
//
// Handler hooks must not call Dispatch on the engine running them; they
// receive a context that Emit recognizes and should queue follow-up actions
// through it instead.
type Engine struct {
	mu     sync.RWMutex
	stores []*store.Store
	names  map[string]*store.Store

	dispatchMu sync.Mutex

	clock      Sequencer
	flowGen    FlowTokenGenerator
	tracer     store.Tracer
	logger     *slog.Logger
	queue      *eventQueue
	maxCascade int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracer receives every lifecycle transition of every cycle. A tracer
// that also implements store.CycleObserver is told when cycles start and
// settle.
func WithTracer(t store.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithFlowGenerator replaces the default UUIDv7 flow tokens.
func WithFlowGenerator(g FlowTokenGenerator) EngineOption {
	return func(e *Engine) {
		if g != nil {
			e.flowGen = g
		}
	}
}

// WithClock sets the logical clock. Use NewClockAt to continue the
// sequence of an existing journal.
func WithClock(c Sequencer) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithMaxCascade limits the depth of emitted action chains.
//
// Default: 100 (DefaultMaxCascade).
func WithMaxCascade(n int) EngineOption {
	return func(e *Engine) {
		e.maxCascade = n
	}
}

// New creates an Engine with no stores.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		names:      make(map[string]*store.Store),
		clock:      NewClock(),
		flowGen:    UUIDv7Generator{},
		logger:     slog.Default(),
		queue:      newEventQueue(),
		maxCascade: DefaultMaxCascade,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds stores to the dispatch set. Store names must be unique.
// Stores receive actions in registration order, though independent stores
// settle concurrently.
func (e *Engine) Register(stores ...*store.Store) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	seen := make(map[string]bool, len(stores))
	for _, s := range stores {
		if s == nil {
			return &RuntimeError{Code: ErrCodeInvalidStore, Message: "cannot register a nil store"}
		}
		if _, dup := e.names[s.Name()]; dup || seen[s.Name()] {
			return &RuntimeError{
				Code:    ErrCodeDuplicateStore,
				Message: fmt.Sprintf("store [%s] is already registered", s.Name()),
			}
		}
		seen[s.Name()] = true
	}

	for _, s := range stores {
		e.stores = append(e.stores, s)
		e.names[s.Name()] = s
		e.logger.Debug("store registered", "store", s.Name(), "constants", len(s.Constants()))
	}
	return nil
}

// Stores returns the registered stores in registration order.
func (e *Engine) Stores() []*store.Store {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*store.Store(nil), e.stores...)
}

// Store returns the registered store named name.
func (e *Engine) Store(name string) (*store.Store, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.names[name]
	return s, ok
}

// NewFlow generates a flow token.
func (e *Engine) NewFlow() string {
	return e.flowGen.Generate()
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() Sequencer {
	return e.clock
}

// Dispatch delivers one action to every registered store and waits until
// all of them have settled.
//
// Store failures do not stop other stores; they are collected into a
// *DispatchError returned alongside the complete Result.
func (e *Engine) Dispatch(ctx context.Context, c action.Constant, p action.Payload) (*Result, error) {
	if cur, ok := fromContext(ctx); ok && cur.engine == e {
		return nil, &RuntimeError{
			Code:      ErrCodeReentrantDispatch,
			Message:   fmt.Sprintf("cannot dispatch [%s] in the middle of dispatching [%s]; use Emit", c, cur.constant),
			FlowToken: cur.flow,
			Constant:  c,
		}
	}
	return e.dispatch(ctx, Event{Constant: c, Payload: p, Flow: e.NewFlow()})
}

// dispatch runs one cycle. Cycles are serialized.
func (e *Engine) dispatch(ctx context.Context, ev Event) (*Result, error) {
	if ev.Constant.IsZero() {
		return nil, &RuntimeError{Code: ErrCodeInvalidAction, Message: "action constant is empty", FlowToken: ev.Flow}
	}

	e.dispatchMu.Lock()
	defer e.dispatchMu.Unlock()

	seq := e.clock.Next()
	cycle := store.NewCycle(store.CycleConfig{
		Flow:     ev.Flow,
		Seq:      seq,
		Depth:    ev.Depth,
		Constant: ev.Constant,
		Payload:  ev.Payload,
		Tracer:   e.tracer,
		Logger:   e.logger,
	})

	e.logger.Debug("dispatching action",
		"flow", ev.Flow,
		"seq", seq,
		"constant", string(ev.Constant),
		"depth", ev.Depth,
	)

	hookCtx := withDispatch(ctx, dispatchInfo{engine: e, flow: ev.Flow, constant: ev.Constant, depth: ev.Depth})
	outcomes := cycle.SettleAll(hookCtx, e.Stores())

	res := &Result{
		Flow:     ev.Flow,
		Seq:      seq,
		Constant: ev.Constant,
		Depth:    ev.Depth,
		Outcomes: outcomes,
	}

	failed := res.Failed()
	e.logger.Info("action dispatched",
		"flow", ev.Flow,
		"seq", seq,
		"constant", string(ev.Constant),
		"handled", len(res.Handled()),
		"failed", len(failed),
	)

	if len(failed) > 0 {
		return res, &DispatchError{Flow: ev.Flow, Constant: ev.Constant, Failures: failed}
	}
	return res, nil
}

// Enqueue queues an action for the Run loop under a new flow.
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(c action.Constant, p action.Payload) bool {
	return e.queue.Enqueue(Event{Constant: c, Payload: p, Flow: e.NewFlow()})
}

// Emit queues a follow-up action. Called with the context a handler hook
// received, the action joins the hook's flow one cascade level deeper;
// otherwise it behaves like Enqueue.
func (e *Engine) Emit(ctx context.Context, c action.Constant, p action.Payload) bool {
	if cur, ok := fromContext(ctx); ok && cur.engine == e {
		return e.queue.Enqueue(Event{Constant: c, Payload: p, Flow: cur.flow, Depth: cur.depth + 1})
	}
	return e.Enqueue(c, p)
}

// Emit queues a follow-up action on the engine whose cycle produced ctx.
// Returns false when ctx does not come from a dispatch cycle.
func Emit(ctx context.Context, c action.Constant, p action.Payload) bool {
	cur, ok := fromContext(ctx)
	if !ok {
		return false
	}
	return cur.engine.Emit(ctx, c, p)
}

// Len returns the number of queued actions.
func (e *Engine) Len() int {
	return e.queue.Len()
}

// Run starts the single-writer loop over queued actions.
// Blocks until ctx is cancelled or Stop() is called.
//
// ERROR HANDLING: failures are logged with the action's context and the loop
// continues with the next action.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "stores", len(e.Stores()))

	for {
		ev, ok := e.queue.TryDequeue()
		if ok {
			if _, err := e.processEvent(ctx, ev); err != nil {
				e.logEventError(ev, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Len() == 0 && e.queue.Closed() {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Drain processes queued actions, including those emitted while draining,
// until the queue is empty. It returns the results in processing order and
// the errors joined. Intended for callers that do not run the loop.
func (e *Engine) Drain(ctx context.Context) ([]*Result, error) {
	var (
		results []*Result
		errs    []error
	)
	for {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		ev, ok := e.queue.TryDequeue()
		if !ok {
			break
		}
		res, err := e.processEvent(ctx, ev)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			e.logEventError(ev, err)
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

// Stop closes the queue, which makes Run return once it is empty.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) processEvent(ctx context.Context, ev Event) (*Result, error) {
	if ev.Depth > e.maxCascade {
		return nil, &CascadeError{FlowToken: ev.Flow, Constant: ev.Constant, Depth: ev.Depth, Limit: e.maxCascade}
	}
	return e.dispatch(ctx, ev)
}

func (e *Engine) logEventError(ev Event, err error) {
	e.logger.Error("action processing failed",
		"error", err,
		"flow", ev.Flow,
		"constant", string(ev.Constant),
		"depth", ev.Depth,
	)
}
