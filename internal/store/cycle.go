package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/reflux/internal/action"
)

// CycleConfig describes one dispatch cycle.
type CycleConfig struct {
	// Flow identifies the cycle in traces and the journal.
	Flow string

	// Seq is the dispatcher's logical clock value for the cycle.
	Seq int64

	// Depth counts the cycles whose hooks emitted this one. Informational.
	Depth int

	Constant action.Constant
	Payload  action.Payload

	// Tracer receives every lifecycle transition. Optional.
	Tracer Tracer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Cycle is one dispatch of one action. Each store settles at most once per
// cycle; every waiter of a store shares that single settlement.
type Cycle struct {
	Flow     string
	Seq      int64
	Depth    int
	Constant action.Constant
	Payload  action.Payload

	tracer Tracer
	logger *slog.Logger
	step   atomic.Int64

	mu          sync.Mutex
	settlements map[*Store]*settlement
	waits       map[*Store]map[*Store]bool
}

// settlement is the one-shot completion signal of one store in one cycle.
type settlement struct {
	done    chan struct{}
	outcome Outcome
}

// NewCycle creates a cycle. The payload is copied.
func NewCycle(cfg CycleConfig) *Cycle {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Cycle{
		Flow:        cfg.Flow,
		Seq:         cfg.Seq,
		Depth:       cfg.Depth,
		Constant:    cfg.Constant,
		Payload:     cfg.Payload.Clone(),
		tracer:      cfg.Tracer,
		logger:      logger,
		settlements: make(map[*Store]*settlement),
		waits:       make(map[*Store]map[*Store]bool),
	}
}

// Settle runs s through its lifecycle for this cycle, or waits for the run
// already in progress, and returns the outcome.
func (c *Cycle) Settle(ctx context.Context, s *Store) Outcome {
	c.mu.Lock()
	if st, ok := c.settlements[s]; ok {
		c.mu.Unlock()
		<-st.done
		return st.outcome
	}
	st := &settlement{done: make(chan struct{})}
	c.settlements[s] = st
	c.mu.Unlock()

	defer close(st.done)
	st.outcome = s.runCycle(ctx, c)
	return st.outcome
}

// SettleAll settles every store concurrently and returns the outcomes in
// the order of stores.
func (c *Cycle) SettleAll(ctx context.Context, stores []*Store) []Outcome {
	if obs, ok := c.tracer.(CycleObserver); ok {
		obs.CycleStarted(ctx, c)
	}

	outcomes := make([]Outcome, len(stores))
	var wg sync.WaitGroup
	for i, s := range stores {
		i, s := i, s
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = c.Settle(ctx, s)
		}()
	}
	wg.Wait()

	if obs, ok := c.tracer.(CycleObserver); ok {
		obs.CycleSettled(ctx, c, outcomes)
	}
	return outcomes
}

// Settled reports whether s has settled in this cycle.
func (c *Cycle) Settled(s *Store) bool {
	c.mu.Lock()
	st, ok := c.settlements[s]
	c.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case <-st.done:
		return true
	default:
		return false
	}
}

// await joins the settlements of deps. The first failure is returned as a
// DependencyError; every dependency is still settled.
func (c *Cycle) await(ctx context.Context, waiter *Store, deps []*Store) error {
	if len(deps) == 0 {
		return nil
	}
	var g errgroup.Group
	for _, dep := range deps {
		dep := dep
		g.Go(func() error {
			if err := c.addWait(waiter, dep); err != nil {
				return err
			}
			out := c.Settle(ctx, dep)
			if out.Err != nil {
				return newDependencyError(waiter.name, dep.name, c.Constant, out.Err)
			}
			return nil
		})
	}
	return g.Wait()
}

// addWait records the edge waiter -> dep, refusing edges that would make
// the cycle wait on itself.
func (c *Cycle) addWait(waiter, dep *Store) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if path := c.waitPath(dep, waiter, map[*Store]bool{}); path != nil {
		names := []string{waiter.name}
		for _, s := range path {
			names = append(names, s.name)
		}
		return &Error{
			Kind:     KindDependency,
			Op:       "waitFor",
			Store:    waiter.name,
			Constant: c.Constant,
			Message:  fmt.Sprintf("waitFor deadlock: %s", strings.Join(names, " -> ")),
		}
	}

	if c.waits[waiter] == nil {
		c.waits[waiter] = make(map[*Store]bool)
	}
	c.waits[waiter][dep] = true
	return nil
}

// waitPath returns the stores on a path from -> ... -> to in the wait
// graph, or nil. Caller holds c.mu.
func (c *Cycle) waitPath(from, to *Store, visited map[*Store]bool) []*Store {
	if from == to {
		return []*Store{from}
	}
	if visited[from] {
		return nil
	}
	visited[from] = true
	for next := range c.waits[from] {
		if rest := c.waitPath(next, to, visited); rest != nil {
			return append([]*Store{from}, rest...)
		}
	}
	return nil
}

func (c *Cycle) nextStep() int64 { return c.step.Add(1) }
