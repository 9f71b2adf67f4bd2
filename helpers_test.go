package assetpipe

import (
	"bytes"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/assetpipe/bitmap"
)

const waitTimeout = 5 * time.Second

// solidAsset is an opaque asset that fills itself with one color.
func solidAsset(key string, w, h int, c [4]uint8) *DrawableAsset {
	return NewDrawableAsset(Signature{Key: key, Width: w, Height: h}, func(dst *bitmap.Buffer) error {
		dst.Fill(c[0], c[1], c[2], c[3])
		return nil
	})
}

var red = [4]uint8{255, 0, 0, 255}

// recordingQueue counts Enqueue calls per id.
type recordingQueue struct {
	mu    sync.Mutex
	calls map[string]int
	app   map[string]string
}

func newRecordingQueue() *recordingQueue {
	return &recordingQueue{calls: make(map[string]int), app: make(map[string]string)}
}

func (q *recordingQueue) Enqueue(id, appID string, _ []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls[id]++
	q.app[id] = appID
	return nil
}

func (q *recordingQueue) count(id string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.calls[id]
}

func (q *recordingQueue) total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, c := range q.calls {
		n += c
	}
	return n
}

// countingCompressor wraps a compressor and counts invocations.
type countingCompressor struct {
	inner Compressor
	calls atomic.Int32
}

func (c *countingCompressor) Compress(buf *bitmap.Buffer) Payload {
	c.calls.Add(1)
	return c.inner.Compress(buf)
}

// gatedCompressor blocks every call until release is closed.
type gatedCompressor struct {
	inner   Compressor
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newGatedCompressor() *gatedCompressor {
	return &gatedCompressor{
		inner:   &PNGCompressor{},
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (g *gatedCompressor) Compress(buf *bitmap.Buffer) Payload {
	g.calls.Add(1)
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	return g.inner.Compress(buf)
}

func (g *gatedCompressor) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(waitTimeout):
		t.Fatal("compressor was never called")
	}
}

// panickingAsset is an opaque asset whose render panics.
func panickingAsset(key string, w, h int) *DrawableAsset {
	return NewDrawableAsset(Signature{Key: key, Width: w, Height: h}, func(*bitmap.Buffer) error {
		panic("render exploded")
	})
}

func newBuffer(t *testing.T, w, h int) *bitmap.Buffer {
	t.Helper()
	buf, err := bitmap.New(w, h, bitmap.FormatRGBA8)
	if err != nil {
		t.Fatalf("bitmap.New(%d, %d): %v", w, h, err)
	}
	return buf
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// resolveSync runs Resolve and waits for its callback.
func resolveSync(t *testing.T, p *Pipeline, a Asset, budget int) Result {
	t.Helper()
	ch := make(chan Result, 1)
	p.Resolve(a, budget, func(r Result) { ch <- r })
	select {
	case r := <-ch:
		return r
	case <-time.After(waitTimeout):
		t.Fatal("callback not invoked")
		return Result{}
	}
}

func newTestPipeline(t *testing.T, q OutboundQueue, opts ...Option) *Pipeline {
	t.Helper()
	p, err := New(q, append([]Option{WithWorkers(4)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// captureLogs routes the package logger into a buffer for the test.
func captureLogs(t *testing.T) *syncBuffer {
	t.Helper()
	orig := Logger()
	buf := &syncBuffer{}
	SetLogger(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { SetLogger(orig) })
	return buf
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}
