package tool

import (
	"context"
	"sync"
	"sync/atomic"
)

// Func adapts a plain function to the Tool interface.
type Func func(ctx context.Context, args ...string) (*Result, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, args ...string) (*Result, error) {
	return f(ctx, args...)
}

// Recorder wraps a Tool and records every invocation along with the
// highest number of invocations that were running at the same time.
type Recorder struct {
	Tool Tool

	mu     sync.Mutex
	calls  [][]string
	active atomic.Int32
	peak   atomic.Int32
}

// NewRecorder returns a Recorder around t.
func NewRecorder(t Tool) *Recorder {
	return &Recorder{Tool: t}
}

// Invoke implements Tool.
func (r *Recorder) Invoke(ctx context.Context, args ...string) (*Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string(nil), args...))
	r.mu.Unlock()

	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}

	return r.Tool.Invoke(ctx, args...)
}

// Calls returns a copy of the recorded argument lists.
func (r *Recorder) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// Peak returns the highest observed number of concurrent invocations.
func (r *Recorder) Peak() int {
	return int(r.peak.Load())
}
