package testutil

import "sync"

// Recorder is a call-order spy. Hooks call Record with a label; tests then
// compare Calls against the expected order.
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends label.
func (r *Recorder) Record(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, label)
}

// Func returns a func() that records label, for hooks without arguments.
func (r *Recorder) Func(label string) func() {
	return func() { r.Record(label) }
}

// Calls returns a copy of the recorded labels in order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Count returns how many times label was recorded.
func (r *Recorder) Count(label string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == label {
			n++
		}
	}
	return n
}

// Index returns the position of the first label, or -1.
func (r *Recorder) Index(label string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.calls {
		if c == label {
			return i
		}
	}
	return -1
}

// Reset forgets all calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
