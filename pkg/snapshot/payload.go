package snapshot

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// PayloadStore holds snapshot record sets in an embedded BadgerDB, keyed by
// the opaque records_ref handle. Keeping payloads out of the metadata store
// lets record sets grow large while snapshot rows stay small.
type PayloadStore struct {
	db *badger.DB
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenPayloadStore opens the payload database. With cfg.InMemory set no
// files are created, which is what the tests use.
func OpenPayloadStore(cfg *StoreConfig, logger *slog.Logger) (*PayloadStore, error) {
	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites)
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open payload store: %w", err)
	}
	return &PayloadStore{db: db}, nil
}

// Put stores a payload under the given ref. Refs are never overwritten in
// normal operation; the store does not enforce that, the caller's
// version-assignment does.
func (p *PayloadStore) Put(ref string, data []byte) error {
	err := p.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(ref), data)
	})
	if err != nil {
		return fmt.Errorf("put payload %s: %w", ref, err)
	}
	return nil
}

// Get retrieves a payload by ref. Returns ErrNotFound if absent.
func (p *PayloadStore) Get(ref string) ([]byte, error) {
	var data []byte
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ref))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("payload %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payload %s: %w", ref, err)
	}
	return data, nil
}

// Delete removes a payload. Deleting a missing ref is not an error, which
// keeps garbage collection idempotent.
func (p *PayloadStore) Delete(ref string) error {
	err := p.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(ref))
	})
	if err != nil {
		return fmt.Errorf("delete payload %s: %w", ref, err)
	}
	return nil
}

// Close releases the underlying database.
func (p *PayloadStore) Close() error {
	return p.db.Close()
}
