// Package parallel provides the bounded worker pool that runs encode jobs.
package parallel

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// Submission errors.
var (
	// ErrClosed is returned when work is submitted to a closed pool.
	ErrClosed = errors.New("parallel: pool closed")

	// ErrQueueFull is returned when every worker queue is at capacity.
	ErrQueueFull = errors.New("parallel: queue full")
)

// DefaultQueueSize is the per-worker queue capacity when none is given.
const DefaultQueueSize = 64

// WorkerPool is a fixed set of goroutines with bounded per-worker queues.
//
// Work goes to the worker with the shortest queue. Idle workers steal from
// the others, which keeps slow jobs (large assets) from stalling a queue.
// Submission never blocks: when every queue is full, TrySubmit fails with
// ErrQueueFull and the caller decides what a rejected job means.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers    int
	workQueues []chan func()
	done       chan struct{}
	wg         sync.WaitGroup

	// submitMu orders submissions against Close: a job accepted by
	// TrySubmit is always in a queue before the workers start draining.
	submitMu sync.RWMutex
	running  atomic.Bool

	queueSize int
}

// NewWorkerPool creates a pool with the given number of workers and
// per-worker queue capacity. Non-positive workers uses GOMAXPROCS;
// non-positive queueSize uses DefaultQueueSize.
// The pool starts immediately.
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
		queueSize:  queueSize,
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

// worker is the main loop for each worker goroutine.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	myQueue := p.workQueues[id]

	for {
		select {
		case <-p.done:
			p.drainQueue(myQueue)
			return

		case work := <-myQueue:
			run(work)

		default:
			if stolen := p.steal(id); stolen != nil {
				run(stolen)
				continue
			}
			// Nothing anywhere; block on our own queue.
			select {
			case <-p.done:
				p.drainQueue(myQueue)
				return
			case work := <-myQueue:
				run(work)
			}
		}
	}
}

// run executes one work item. A panicking job must not take the worker
// down with it; jobs are expected to report their own failures.
func run(work func()) {
	if work == nil {
		return
	}
	defer func() { _ = recover() }()
	work()
}

// drainQueue executes all remaining work in a queue.
func (p *WorkerPool) drainQueue(queue chan func()) {
	for {
		select {
		case work := <-queue:
			run(work)
		default:
			return
		}
	}
}

// steal attempts to take work from another worker's queue.
func (p *WorkerPool) steal(myID int) func() {
	for i := range p.workers {
		if i == myID {
			continue
		}
		select {
		case work := <-p.workQueues[i]:
			return work
		default:
		}
	}
	return nil
}

// TrySubmit queues fn without blocking.
// Returns ErrClosed after Close and ErrQueueFull when no queue has room.
func (p *WorkerPool) TrySubmit(fn func()) error {
	if fn == nil {
		return nil
	}

	p.submitMu.RLock()
	defer p.submitMu.RUnlock()

	if !p.running.Load() {
		return ErrClosed
	}

	// Shortest queue first, then any queue with room.
	minIdx := 0
	minLen := len(p.workQueues[0])
	for i := 1; i < p.workers; i++ {
		if l := len(p.workQueues[i]); l < minLen {
			minLen = l
			minIdx = i
		}
	}

	for i := range p.workers {
		select {
		case p.workQueues[(minIdx+i)%p.workers] <- fn:
			return nil
		default:
		}
	}
	return ErrQueueFull
}

// Close stops accepting work, runs everything already queued, and waits
// for the workers to exit. Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.submitMu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.submitMu.Unlock()
		return
	}
	close(p.done)
	p.submitMu.Unlock()

	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// QueueSize returns the per-worker queue capacity.
func (p *WorkerPool) QueueSize() int {
	return p.queueSize
}

// IsRunning returns true if the pool is still accepting work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// QueuedWork returns the total number of work items currently queued.
// This is an approximation as queues can change while iterating.
func (p *WorkerPool) QueuedWork() int {
	total := 0
	for _, q := range p.workQueues {
		total += len(q)
	}
	return total
}
