package assetpipe

import (
	"testing"

	"github.com/gogpu/assetpipe/bitmap"
	"github.com/gogpu/assetpipe/internal/parallel"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()

	if _, ok := o.compressor.(*PNGCompressor); !ok {
		t.Errorf("compressor is %T, want *PNGCompressor", o.compressor)
	}
	if _, ok := o.hasher.(DigestHasher); !ok {
		t.Errorf("hasher is %T, want DigestHasher", o.hasher)
	}
	if o.cache == nil || o.bufferPool == nil || o.seen == nil || o.memory == nil {
		t.Errorf("default collaborators missing: %+v", o)
	}
	if o.workerPool != nil || o.metrics != nil {
		t.Error("worker pool and metrics should default to nil")
	}
	if len(o.applicationID) != 36 {
		t.Errorf("applicationID %q is not a UUID", o.applicationID)
	}
	if o.applicationID == defaultOptions().applicationID {
		t.Error("each default gets a fresh application id")
	}
}

func TestOptionsIgnoreNil(t *testing.T) {
	o := defaultOptions()
	want := o

	for _, opt := range []Option{
		WithCompressor(nil),
		WithHasher(nil),
		WithIdentifierCache(nil),
		WithBufferPool(nil),
		WithSeenSet(nil),
		WithMemoryCoordinator(nil),
		WithApplicationID(""),
	} {
		opt(&o)
	}
	if o != want {
		t.Errorf("nil options changed defaults:\ngot  %+v\nwant %+v", o, want)
	}
}

func TestOptionsApply(t *testing.T) {
	wp := parallel.NewWorkerPool(1, 1)
	defer wp.Close()
	pool := bitmap.NewPool(1)
	seen := NewSeenSet()
	mc := NewMemoryCoordinator()
	m := NewMetrics("")

	o := defaultOptions()
	for _, opt := range []Option{
		WithWorkers(3),
		WithQueueSize(5),
		WithWorkerPool(wp),
		WithCompressor(JPEGCompressor{Quality: 50}),
		WithBufferPool(pool),
		WithSeenSet(seen),
		WithMemoryCoordinator(mc),
		WithMetrics(m),
		WithApplicationID("app"),
	} {
		opt(&o)
	}

	want := options{
		workers:       3,
		queueSize:     5,
		workerPool:    wp,
		compressor:    JPEGCompressor{Quality: 50},
		hasher:        o.hasher,
		cache:         o.cache,
		bufferPool:    pool,
		seen:          seen,
		memory:        mc,
		metrics:       m,
		applicationID: "app",
	}
	if o != want {
		t.Errorf("options = %+v, want %+v", o, want)
	}
}

func TestSharedSeenSetAcrossPipelines(t *testing.T) {
	seen := NewSeenSet()
	q := newRecordingQueue()
	p1 := newTestPipeline(t, q, WithSeenSet(seen))
	p2 := newTestPipeline(t, q, WithSeenSet(seen))

	r1 := resolveSync(t, p1, solidAsset("a", 3, 3, red), 0)
	r2 := resolveSync(t, p2, solidAsset("b", 3, 3, red), 0)

	if r1.ID != r2.ID {
		t.Errorf("ids differ across pipelines: %q and %q", r1.ID, r2.ID)
	}
	if n := q.count(r1.ID); n != 1 {
		t.Errorf("Enqueue called %d times, want 1", n)
	}
	if !seen.Contains(r1.ID) {
		t.Error("shared seen set missing the delivered id")
	}
}
