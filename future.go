package assetpipe

import (
	"context"
	"sync"
)

// Status is the terminal state of a request.
type Status uint8

const (
	// StatusOK means ID holds the resource identifier.
	StatusOK Status = iota

	// StatusNoData means the asset produced no payload, even after a retry.
	// Callers attach nothing; it is not an error.
	StatusNoData

	// StatusFailed means normalization or compression failed outright.
	// Err holds the cause.
	StatusFailed

	// StatusRejected means the worker pool was saturated or closed and the
	// request was not run.
	StatusRejected
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoData:
		return "no_data"
	case StatusFailed:
		return "failed"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result is what a request resolves to.
type Result struct {
	// ID is the content-derived resource identifier when Status is StatusOK.
	ID string
	// Status is the terminal state.
	Status Status
	// Cached is true when the identifier came from the identifier cache.
	Cached bool
	// Err explains StatusFailed and StatusRejected.
	Err error
}

// OK reports whether the request produced an identifier.
func (r Result) OK() bool { return r.Status == StatusOK }

// Callback receives a request's result exactly once.
type Callback func(Result)

// Future is the shared completion point of one request. Every waiter
// attached before or after completion observes the same Result.
type Future struct {
	done chan struct{}

	mu      sync.Mutex
	result  Result
	settled bool
	waiters []Callback
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} { return f.done }

// Result returns the result and whether it is available yet.
func (f *Future) Result() (Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.settled
}

// Wait blocks until the result is available or ctx is done.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		r, _ := f.Result()
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// attach adds cb as a waiter. It returns false when the future has already
// settled, in which case cb was not added.
func (f *Future) attach(cb Callback) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settled {
		return false
	}
	if cb != nil {
		f.waiters = append(f.waiters, cb)
	}
	return true
}

// settle stores r and returns the waiters to notify. Only the first call
// has an effect.
func (f *Future) settle(r Result) []Callback {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settled {
		return nil
	}
	f.result = r
	f.settled = true
	waiters := f.waiters
	f.waiters = nil
	close(f.done)
	return waiters
}

// resolved returns an already settled future.
func resolved(r Result) *Future {
	f := newFuture()
	f.settle(r)
	return f
}
