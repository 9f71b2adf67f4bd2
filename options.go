package assetpipe

import (
	"github.com/google/uuid"

	"github.com/gogpu/assetpipe/bitmap"
	"github.com/gogpu/assetpipe/internal/parallel"
)

// DefaultPoolBucketSize is how many free buffers of one shape the default
// buffer pool keeps.
const DefaultPoolBucketSize = 4

// Option configures a Pipeline during creation.
//
// Example:
//
//	// Defaults: PNG, SHA-256 identifiers, GOMAXPROCS workers
//	p, err := assetpipe.New(q)
//
//	// Lossy payloads on a shared pool
//	p, err := assetpipe.New(q,
//		assetpipe.WithCompressor(assetpipe.JPEGCompressor{Quality: 70}),
//		assetpipe.WithWorkerPool(shared))
type Option func(*options)

// options holds optional configuration for Pipeline creation.
type options struct {
	workers       int
	queueSize     int
	workerPool    *parallel.WorkerPool
	compressor    Compressor
	hasher        Hasher
	cache         IdentifierCache
	bufferPool    *bitmap.Pool
	seen          SeenSet
	memory        *MemoryCoordinator
	metrics       *Metrics
	applicationID string
}

// defaultOptions returns the default pipeline options.
func defaultOptions() options {
	return options{
		compressor:    &PNGCompressor{},
		hasher:        DigestHasher{},
		cache:         NewIdentifierCache(0),
		bufferPool:    bitmap.NewPool(DefaultPoolBucketSize),
		seen:          NewSeenSet(),
		memory:        NewMemoryCoordinator(),
		applicationID: uuid.NewString(),
	}
}

// WithWorkers sets the number of encode workers of the pipeline's own pool.
// Zero or less uses GOMAXPROCS. Ignored with WithWorkerPool.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithQueueSize sets the per-worker queue capacity of the pipeline's own
// pool. Requests beyond it are rejected rather than blocking.
func WithQueueSize(n int) Option {
	return func(o *options) {
		o.queueSize = n
	}
}

// WithWorkerPool runs encodes on a shared pool. The pipeline does not close
// it.
func WithWorkerPool(wp *parallel.WorkerPool) Option {
	return func(o *options) {
		o.workerPool = wp
	}
}

// WithCompressor sets the payload encoder.
func WithCompressor(c Compressor) Option {
	return func(o *options) {
		if c != nil {
			o.compressor = c
		}
	}
}

// WithHasher sets how identifiers are derived from payload bytes.
func WithHasher(h Hasher) Option {
	return func(o *options) {
		if h != nil {
			o.hasher = h
		}
	}
}

// WithIdentifierCache replaces the signature to identifier cache.
// Caches that do not implement Trimmable are not shrunk under memory
// pressure; the pipeline logs a warning and carries on.
func WithIdentifierCache(c IdentifierCache) Option {
	return func(o *options) {
		if c != nil {
			o.cache = c
		}
	}
}

// WithBufferPool shares a buffer pool between pipelines.
func WithBufferPool(p *bitmap.Pool) Option {
	return func(o *options) {
		if p != nil {
			o.bufferPool = p
		}
	}
}

// WithSeenSet shares the delivered-identifier set between pipelines that
// feed the same queue.
func WithSeenSet(s SeenSet) Option {
	return func(o *options) {
		if s != nil {
			o.seen = s
		}
	}
}

// WithMemoryCoordinator registers the pipeline's cache and pool with an
// existing coordinator.
func WithMemoryCoordinator(m *MemoryCoordinator) Option {
	return func(o *options) {
		if m != nil {
			o.memory = m
		}
	}
}

// WithMetrics reports pipeline activity to m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithApplicationID sets the application identifier sent with every
// delivery. The default is a random UUID per pipeline.
func WithApplicationID(id string) Option {
	return func(o *options) {
		if id != "" {
			o.applicationID = id
		}
	}
}
