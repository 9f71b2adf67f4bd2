package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
)

const keyPrefix = "res/"

// Badger is a durable queue backed by a badger database.
//
// Thread safety: Badger is safe for concurrent use.
type Badger struct {
	db     *badgerdb.DB
	logger *slog.Logger
}

// BadgerOption configures OpenBadger.
type BadgerOption func(*badgerdb.Options, *Badger)

// WithLogger routes badger's own log output to logger.
func WithLogger(logger *slog.Logger) BadgerOption {
	return func(opts *badgerdb.Options, b *Badger) {
		if logger == nil {
			return
		}
		b.logger = logger
		opts.Logger = badgerLogger{logger}
	}
}

// WithSyncWrites makes every enqueue wait for fsync.
func WithSyncWrites(sync bool) BadgerOption {
	return func(opts *badgerdb.Options, _ *Badger) {
		opts.SyncWrites = sync
	}
}

// OpenBadger opens, or creates, the queue stored in dir.
func OpenBadger(dir string, opts ...BadgerOption) (*Badger, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("queue: create %s: %w", dir, err)
	}
	return open(badgerdb.DefaultOptions(dir), opts)
}

// OpenBadgerInMemory opens a queue that lives only as long as the process.
func OpenBadgerInMemory(opts ...BadgerOption) (*Badger, error) {
	return open(badgerdb.DefaultOptions("").WithInMemory(true), opts)
}

func open(bopts badgerdb.Options, opts []BadgerOption) (*Badger, error) {
	b := &Badger{logger: slog.New(slog.DiscardHandler)}
	bopts.Logger = badgerLogger{b.logger}
	// Payloads are small images; keep the footprint modest.
	bopts.BlockCacheSize = 16 << 20
	bopts.IndexCacheSize = 8 << 20
	bopts.NumMemtables = 2
	bopts.ValueLogFileSize = 64 << 20
	for _, opt := range opts {
		opt(&bopts, b)
	}

	db, err := badgerdb.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("queue: open badger: %w", err)
	}
	b.db = db
	return b, nil
}

// Enqueue stores payload under resourceID unless the id is already queued.
func (b *Badger) Enqueue(resourceID, applicationID string, payload []byte) error {
	key := []byte(keyPrefix + resourceID)
	rec := Record{ResourceID: resourceID, ApplicationID: applicationID, Payload: payload, EnqueuedAt: time.Now()}

	err := b.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			b.logger.Debug("queue: duplicate enqueue ignored", "id", resourceID)
			return nil
		case !errors.Is(err, badgerdb.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, rec.marshal())
	})
	if err != nil {
		return fmt.Errorf("queue: enqueue %s: %w", resourceID, err)
	}
	return nil
}

// Get returns the record for resourceID.
func (b *Badger) Get(resourceID string) (Record, bool, error) {
	var (
		rec   Record
		found bool
	)
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + resourceID))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		rec, err = unmarshalRecord(resourceID, val)
		found = err == nil
		return err
	})
	if err != nil {
		return Record{}, false, fmt.Errorf("queue: get %s: %w", resourceID, err)
	}
	return rec, found, nil
}

// List returns every queued record ordered by resource id.
func (b *Badger) List(ctx context.Context) ([]Record, error) {
	var out []Record
	err := b.db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			id := string(item.Key()[len(prefix):])
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := unmarshalRecord(id, val)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("queue: list: %w", err)
	}
	return out, nil
}

// Remove drops a delivered record. Removing an unknown id is not an error.
func (b *Badger) Remove(resourceID string) error {
	err := b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(keyPrefix + resourceID))
	})
	if err != nil {
		return fmt.Errorf("queue: remove %s: %w", resourceID, err)
	}
	return nil
}

// Close flushes and closes the database.
func (b *Badger) Close() error {
	return b.db.Close()
}

func msg(format string, args []any) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}

// badgerLogger adapts slog to badger's printf-style logger.
type badgerLogger struct {
	l *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.l.Error(msg(format, args), "component", "badger")
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.l.Warn(msg(format, args), "component", "badger")
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.l.Info(msg(format, args), "component", "badger")
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.l.Debug(msg(format, args), "component", "badger")
}
