package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerEnqueueGet(t *testing.T) {
	q, err := OpenBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	before := time.Now()
	require.NoError(t, q.Enqueue("abc123", "app-1", []byte("png bytes")))

	rec, ok, err := q.Get("abc123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc123", rec.ResourceID)
	assert.Equal(t, "app-1", rec.ApplicationID)
	assert.Equal(t, []byte("png bytes"), rec.Payload)
	assert.False(t, rec.EnqueuedAt.Before(before.Truncate(time.Second)))

	_, ok, err = q.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBadgerDuplicateKeepsFirst(t *testing.T) {
	q, err := OpenBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	require.NoError(t, q.Enqueue("id", "first", []byte("a")))
	require.NoError(t, q.Enqueue("id", "second", []byte("b")))

	recs, err := q.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "first", recs[0].ApplicationID)
}

func TestBadgerListAndRemove(t *testing.T) {
	q, err := OpenBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	for _, id := range []string{"b", "a", "c"} {
		require.NoError(t, q.Enqueue(id, "app", nil))
	}
	require.NoError(t, q.Remove("b"))
	require.NoError(t, q.Remove("unknown"))

	recs, err := q.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].ResourceID)
	assert.Equal(t, "c", recs[1].ResourceID)
	assert.Empty(t, recs[0].Payload)
}

func TestBadgerPersists(t *testing.T) {
	dir := t.TempDir()

	q, err := OpenBadger(dir, WithSyncWrites(true))
	require.NoError(t, err)
	require.NoError(t, q.Enqueue("persisted", "app", []byte{0xde, 0xad}))
	require.NoError(t, q.Close())

	q, err = OpenBadger(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	rec, ok, err := q.Get("persisted")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0xde, 0xad}, rec.Payload)
}

func TestUnmarshalRecordRejectsTruncated(t *testing.T) {
	rec := Record{ApplicationID: "app", Payload: []byte("payload"), EnqueuedAt: time.Unix(10, 0)}
	b := rec.marshal()

	got, err := unmarshalRecord("id", b)
	require.NoError(t, err)
	assert.Equal(t, "app", got.ApplicationID)
	assert.True(t, got.EnqueuedAt.Equal(rec.EnqueuedAt))

	for _, n := range []int{0, 1, len(b) - 1} {
		_, err := unmarshalRecord("id", b[:n])
		assert.ErrorIs(t, err, ErrCorruptRecord, "truncated to %d", n)
	}
}
