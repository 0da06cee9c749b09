package harness

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/reflux/internal/store"
)

// recorder collects the trace of a run. It implements store.Tracer and
// store.CycleObserver.
type recorder struct {
	mu     sync.Mutex
	cycles map[int64]*CycleTrace
	events map[int64]map[string][]string
}

var (
	_ store.Tracer        = (*recorder)(nil)
	_ store.CycleObserver = (*recorder)(nil)
)

func newRecorder() *recorder {
	return &recorder{
		cycles: make(map[int64]*CycleTrace),
		events: make(map[int64]map[string][]string),
	}
}

func (r *recorder) CycleStarted(_ context.Context, c *store.Cycle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles[c.Seq] = &CycleTrace{Flow: c.Flow, Seq: c.Seq, Constant: c.Constant, Depth: c.Depth}
	r.events[c.Seq] = make(map[string][]string)
}

// Record appends in arrival order. Each store's transitions come from one
// goroutine, so per-store order is the lifecycle order.
func (r *recorder) Record(_ context.Context, ev store.TraceEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byStore, ok := r.events[ev.Seq]
	if !ok {
		byStore = make(map[string][]string)
		r.events[ev.Seq] = byStore
	}
	byStore[ev.Store] = append(byStore[ev.Store], ev.Event)
}

func (r *recorder) CycleSettled(_ context.Context, c *store.Cycle, outcomes []store.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ct, ok := r.cycles[c.Seq]
	if !ok {
		return
	}
	ct.Stores = make([]StoreTrace, 0, len(outcomes))
	for _, o := range outcomes {
		st := StoreTrace{
			Store:   o.Store.Name(),
			Events:  append([]string(nil), r.events[c.Seq][o.Store.Name()]...),
			Handled: o.Handled,
		}
		if o.Err != nil {
			st.Error = o.Err.Error()
		}
		ct.Stores = append(ct.Stores, st)
	}
	sort.Slice(ct.Stores, func(i, j int) bool { return ct.Stores[i].Store < ct.Stores[j].Store })
}

// snapshot returns the recorded cycles in seq order.
func (r *recorder) snapshot() []CycleTrace {
	r.mu.Lock()
	defer r.mu.Unlock()
	seqs := make([]int64, 0, len(r.cycles))
	for seq := range r.cycles {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	out := make([]CycleTrace, 0, len(seqs))
	for _, seq := range seqs {
		out = append(out, *r.cycles[seq])
	}
	return out
}
