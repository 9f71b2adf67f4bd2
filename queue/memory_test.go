package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEnqueueIdempotent(t *testing.T) {
	q := NewMemory()

	payload := []byte{1, 2, 3}
	require.NoError(t, q.Enqueue("abc123", "app", payload))
	payload[0] = 9 // caller reuses its slice
	require.NoError(t, q.Enqueue("abc123", "other", []byte{7}))

	assert.Equal(t, 1, q.Len())
	assert.Equal(t, 2, q.Calls())
	assert.Equal(t, 1, q.Duplicates())

	rec, ok := q.Get("abc123")
	require.True(t, ok)
	assert.Equal(t, "app", rec.ApplicationID)
	assert.Equal(t, []byte{1, 2, 3}, rec.Payload)
	assert.False(t, rec.EnqueuedAt.IsZero())
}

func TestMemoryListOrderAndRemove(t *testing.T) {
	var q Memory
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, q.Enqueue(id, "app", []byte(id)))
	}

	ids := func() []string {
		var out []string
		for _, r := range q.List() {
			out = append(out, r.ResourceID)
		}
		return out
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids())

	assert.True(t, q.Remove("a"))
	assert.False(t, q.Remove("a"))
	assert.Equal(t, []string{"c", "b"}, ids())
}

func TestMemoryConcurrentEnqueue(t *testing.T) {
	q := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Enqueue("same", "app", []byte("x"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, q.Len())
	assert.Equal(t, 50, q.Calls())
	assert.Equal(t, 49, q.Duplicates())
}
