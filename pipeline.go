package assetpipe

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/assetpipe/internal/parallel"
)

// Pipeline errors.
var (
	// ErrClosed is reported for requests made after Close.
	ErrClosed = errors.New("assetpipe: pipeline closed")

	// ErrNilQueue is returned by New without an outbound queue.
	ErrNilQueue = errors.New("assetpipe: nil outbound queue")

	// ErrNilAsset is reported for requests without an asset.
	ErrNilAsset = errors.New("assetpipe: nil asset")

	// ErrPanic wraps a panic recovered from an asset or compressor.
	ErrPanic = errors.New("assetpipe: panic during encode")
)

// Pipeline resolves assets to content-derived resource identifiers and
// delivers each new payload to an outbound queue exactly once.
//
// Requests never block the caller. Concurrent requests for the same
// Signature share a single encode. Completion callbacks run on worker
// goroutines.
//
// Thread safety: Pipeline is safe for concurrent use.
type Pipeline struct {
	workers     *parallel.WorkerPool
	ownsWorkers bool

	normalizer *Normalizer
	compressor Compressor
	hasher     Hasher
	cache      IdentifierCache
	seen       SeenSet
	queue      OutboundQueue
	memory     *MemoryCoordinator
	metrics    *Metrics
	appID      string

	mu      sync.Mutex
	pending map[Signature]*pendingRequest

	closed atomic.Bool
	stats  pipelineCounters
}

// pendingRequest is the in-flight encode for one signature. Its future
// fans the result out to every waiter.
type pendingRequest struct {
	sig    Signature
	asset  classified
	budget int
	future *Future
}

// New creates a pipeline delivering to q. The cache and buffer pool are
// registered with the pipeline's memory coordinator.
func New(q OutboundQueue, opts ...Option) (*Pipeline, error) {
	if q == nil {
		return nil, ErrNilQueue
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pipeline{
		workers:    o.workerPool,
		normalizer: NewNormalizer(o.bufferPool),
		compressor: o.compressor,
		hasher:     o.hasher,
		cache:      o.cache,
		seen:       o.seen,
		queue:      q,
		memory:     o.memory,
		metrics:    o.metrics,
		appID:      o.applicationID,
		pending:    make(map[Signature]*pendingRequest),
	}
	if p.workers == nil {
		p.workers = parallel.NewWorkerPool(o.workers, o.queueSize)
		p.ownsWorkers = true
	}

	p.memory.Register(p.cache)
	p.memory.Register(p.normalizer.Pool())

	Logger().Info("assetpipe: pipeline started",
		"workers", p.workers.Workers(),
		"application_id", p.appID)
	return p, nil
}

// ApplicationID returns the identifier sent with every delivery.
func (p *Pipeline) ApplicationID() string { return p.appID }

// MemoryCoordinator returns the coordinator the cache and pool are
// registered with. Hosts forward their memory signals to it.
func (p *Pipeline) MemoryCoordinator() *MemoryCoordinator { return p.memory }

// Resolve requests the resource identifier for asset, downscaled to fit
// budget bytes of raw pixels (non-positive means no limit). cb is called
// exactly once on another goroutine. Resolve never blocks.
func (p *Pipeline) Resolve(asset Asset, budget int, cb Callback) {
	p.submit(asset, budget, cb)
}

// Submit is Resolve returning a Future instead of taking a callback.
func (p *Pipeline) Submit(asset Asset, budget int) *Future {
	return p.submit(asset, budget, nil)
}

func (p *Pipeline) submit(asset Asset, budget int, cb Callback) *Future {
	if asset == nil {
		return p.reject(cb, StatusFailed, ErrNilAsset)
	}
	if p.closed.Load() {
		return p.reject(cb, StatusRejected, ErrClosed)
	}

	a := classify(asset)
	sig := a.Signature()

	if f, ok := p.cached(sig, cb); ok {
		return f
	}

	p.mu.Lock()
	if req, ok := p.pending[sig]; ok {
		// Completion settles the future under p.mu, so a pending request
		// found here still accepts waiters.
		req.future.attach(cb)
		p.mu.Unlock()
		p.stats.coalesced.Add(1)
		p.metrics.resolve(outcomeCoalesced)
		Logger().Debug("assetpipe: coalesced", "signature", sig)
		return req.future
	}
	// The encode that just finished may have filled the cache between the
	// first lookup and taking the lock.
	if id, ok := peekIdentifier(p.cache, sig); ok {
		p.mu.Unlock()
		return p.hit(id, cb)
	}
	req := &pendingRequest{sig: sig, asset: a, budget: budget, future: newFuture()}
	req.future.attach(cb)
	p.pending[sig] = req
	p.mu.Unlock()

	p.stats.misses.Add(1)
	p.metrics.resolve(outcomeMiss)
	p.metrics.pendingDelta(1)

	if err := p.workers.TrySubmit(func() { p.encode(req) }); err != nil {
		Logger().Warn("assetpipe: encode rejected", "signature", sig, "err", err)
		p.stats.rejected.Add(1)
		p.metrics.resolve(outcomeRejected)
		r := Result{Status: StatusRejected, Err: err}
		go invoke(p.complete(req, r), r)
	}
	return req.future
}

func (p *Pipeline) cached(sig Signature, cb Callback) (*Future, bool) {
	id, ok := p.cache.Get(sig)
	if !ok {
		return nil, false
	}
	return p.hit(id, cb), true
}

func (p *Pipeline) hit(id string, cb Callback) *Future {
	p.stats.hits.Add(1)
	p.metrics.resolve(outcomeHit)
	r := Result{ID: id, Status: StatusOK, Cached: true}
	p.dispatch(cb, r)
	return resolved(r)
}

func (p *Pipeline) reject(cb Callback, status Status, err error) *Future {
	p.stats.rejected.Add(1)
	p.metrics.resolve(outcomeRejected)
	r := Result{Status: status, Err: err}
	p.dispatch(cb, r)
	return resolved(r)
}

// dispatch runs cb asynchronously, on a worker when one has room.
func (p *Pipeline) dispatch(cb Callback, r Result) {
	if cb == nil {
		return
	}
	run := func() { invoke([]Callback{cb}, r) }
	if err := p.workers.TrySubmit(run); err != nil {
		go run()
	}
}

// encodeState is the position of an encode in its retry protocol.
type encodeState uint8

const (
	stateNotStarted encodeState = iota
	stateEncoding
	stateRetryingOnce
	stateDone
)

func (s encodeState) String() string {
	switch s {
	case stateNotStarted:
		return "not_started"
	case stateEncoding:
		return "encoding"
	case stateRetryingOnce:
		return "retrying_once"
	default:
		return "done"
	}
}

// encode runs on a worker and completes req.
func (p *Pipeline) encode(req *pendingRequest) {
	start := time.Now()
	r := p.run(req)
	p.metrics.observeEncode(time.Since(start))

	switch r.Status {
	case StatusNoData:
		p.stats.noData.Add(1)
		p.metrics.empty()
	case StatusFailed:
		p.stats.failed.Add(1)
		Logger().Warn("assetpipe: encode failed", "signature", req.sig, "err", r.Err)
	}

	invoke(p.complete(req, r), r)
}

// run drives the retry protocol: a payload that comes back empty, or a
// buffer invalidated under the encoder, gets exactly one more attempt.
func (p *Pipeline) run(req *pendingRequest) (r Result) {
	defer func() {
		if v := recover(); v != nil {
			r = Result{Status: StatusFailed, Err: fmt.Errorf("%w: %s: %v", ErrPanic, req.sig, v)}
		}
	}()

	state := stateNotStarted
	for state != stateDone {
		switch state {
		case stateNotStarted:
			state = stateEncoding

		case stateEncoding, stateRetryingOnce:
			payload, err := p.attempt(req)
			switch {
			case err == nil && !payload.Empty():
				r = p.publish(req, payload)
				state = stateDone
			case err != nil && !errors.Is(err, ErrBufferInvalidated):
				r = Result{Status: StatusFailed, Err: err}
				state = stateDone
			case state == stateRetryingOnce:
				r = Result{Status: StatusNoData}
				state = stateDone
			default:
				p.stats.retries.Add(1)
				p.metrics.retry()
				Logger().Debug("assetpipe: retrying encode", "signature", req.sig, "err", err)
				state = stateRetryingOnce
			}
		}
	}
	return r
}

// attempt normalizes and compresses once. A buffer that changed while it
// was being compressed yields ErrBufferInvalidated.
func (p *Pipeline) attempt(req *pendingRequest) (Payload, error) {
	c, err := p.normalizer.normalize(req.asset, req.budget)
	if err != nil {
		return Payload{}, err
	}
	defer c.Release()

	p.stats.encodes.Add(1)
	p.metrics.encode()
	payload := p.compressor.Compress(c.Buffer())
	if !c.Valid() {
		return Payload{}, ErrBufferInvalidated
	}
	return payload, nil
}

// publish names the payload, caches the name and delivers the payload if
// this process has not delivered it before.
func (p *Pipeline) publish(req *pendingRequest, payload Payload) Result {
	payload = payload.withMIME()
	id := p.hasher.Hash(payload.Data)
	p.cache.Put(req.sig, id)

	if !p.seen.MarkIfAbsent(id) {
		p.stats.duplicates.Add(1)
		p.metrics.duplicate()
		return Result{ID: id, Status: StatusOK}
	}

	if err := p.queue.Enqueue(id, p.appID, payload.Data); err != nil {
		// The id stays marked: a second attempt could deliver it twice.
		Logger().Warn("assetpipe: enqueue failed", "id", id, "err", err)
	} else {
		p.stats.deliveries.Add(1)
		p.metrics.delivery(payload.MIME)
	}
	return Result{ID: id, Status: StatusOK}
}

// complete removes req from the pending map and settles its future in one
// step. It returns the waiters to notify.
func (p *Pipeline) complete(req *pendingRequest, r Result) []Callback {
	p.mu.Lock()
	if p.pending[req.sig] == req {
		delete(p.pending, req.sig)
	}
	waiters := req.future.settle(r)
	p.mu.Unlock()

	p.metrics.pendingDelta(-1)
	return waiters
}

// invoke calls each waiter; a panicking callback does not stop the rest.
func invoke(waiters []Callback, r Result) {
	for _, cb := range waiters {
		func() {
			defer func() {
				if v := recover(); v != nil {
					Logger().Error("assetpipe: callback panicked", "panic", v)
				}
			}()
			cb(r)
		}()
	}
}

// Pending returns the number of encodes in flight.
func (p *Pipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Close stops accepting requests and waits for queued encodes to finish.
// A worker pool supplied with WithWorkerPool is left running.
func (p *Pipeline) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if p.ownsWorkers {
		p.workers.Close()
	}
	Logger().Info("assetpipe: pipeline closed", "stats", p.Stats())
	return nil
}

// Stats is a point-in-time view of pipeline activity.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Coalesced  uint64
	Rejected   uint64
	Encodes    uint64
	Retries    uint64
	NoData     uint64
	Failed     uint64
	Deliveries uint64
	Duplicates uint64
	Pending    int
}

type pipelineCounters struct {
	hits, misses, coalesced, rejected atomic.Uint64
	encodes, retries, noData, failed  atomic.Uint64
	deliveries, duplicates            atomic.Uint64
}

// Stats returns counters accumulated since New.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Hits:       p.stats.hits.Load(),
		Misses:     p.stats.misses.Load(),
		Coalesced:  p.stats.coalesced.Load(),
		Rejected:   p.stats.rejected.Load(),
		Encodes:    p.stats.encodes.Load(),
		Retries:    p.stats.retries.Load(),
		NoData:     p.stats.noData.Load(),
		Failed:     p.stats.failed.Load(),
		Deliveries: p.stats.deliveries.Load(),
		Duplicates: p.stats.duplicates.Load(),
		Pending:    p.Pending(),
	}
}
