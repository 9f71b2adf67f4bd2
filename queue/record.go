package queue

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// ErrCorruptRecord is returned when a stored record cannot be decoded.
var ErrCorruptRecord = errors.New("queue: corrupt record")

// Record is one payload waiting for delivery.
type Record struct {
	ResourceID    string
	ApplicationID string
	Payload       []byte
	EnqueuedAt    time.Time
}

// marshal encodes everything but the resource id, which is the key.
//
// Layout: uvarint(unix nanos) uvarint(len(app)) app uvarint(len(payload)) payload.
func (r Record) marshal() []byte {
	out := make([]byte, 0, 3*binary.MaxVarintLen64+len(r.ApplicationID)+len(r.Payload))
	out = binary.AppendUvarint(out, uint64(r.EnqueuedAt.UnixNano()))
	out = binary.AppendUvarint(out, uint64(len(r.ApplicationID)))
	out = append(out, r.ApplicationID...)
	out = binary.AppendUvarint(out, uint64(len(r.Payload)))
	out = append(out, r.Payload...)
	return out
}

func unmarshalRecord(id string, b []byte) (Record, error) {
	r := Record{ResourceID: id}

	nanos, n := binary.Uvarint(b)
	if n <= 0 {
		return Record{}, fmt.Errorf("%w: %s: timestamp", ErrCorruptRecord, id)
	}
	b = b[n:]
	r.EnqueuedAt = time.Unix(0, int64(nanos))

	app, b, ok := readBytes(b)
	if !ok {
		return Record{}, fmt.Errorf("%w: %s: application id", ErrCorruptRecord, id)
	}
	r.ApplicationID = string(app)

	payload, b, ok := readBytes(b)
	if !ok || len(b) != 0 {
		return Record{}, fmt.Errorf("%w: %s: payload", ErrCorruptRecord, id)
	}
	r.Payload = payload
	return r, nil
}

func readBytes(b []byte) (field, rest []byte, ok bool) {
	size, n := binary.Uvarint(b)
	if n <= 0 || uint64(len(b)-n) < size {
		return nil, nil, false
	}
	b = b[n:]
	return b[:size:size], b[size:], true
}
