// Package session runs one text action at a time. Starting a new action
// cancels the one in flight, whose result is then discarded.
package session

import (
	"context"
	"sync"
)

type Runner struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func NewRunner() *Runner {
	return &Runner{}
}

// Run cancels any previous action and runs fn. A superseded action returns
// context.Canceled even if fn produced a value.
func Run[T any](ctx context.Context, r *Runner, fn func(ctx context.Context) (T, error)) (T, error) {
	actionCtx, seq := r.begin(ctx)
	res, err := fn(actionCtx)

	if !r.finish(seq) {
		var zero T
		return zero, context.Canceled
	}
	return res, err
}

// Cancel aborts the action in flight, if any.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.seq++
}

func (r *Runner) begin(ctx context.Context) (context.Context, uint64) {
	actionCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	r.seq++
	r.cancel = cancel
	return actionCtx, r.seq
}

// finish reports whether seq is still the current action and releases it.
func (r *Runner) finish(seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq {
		return false
	}
	r.cancel()
	r.cancel = nil
	return true
}
