package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v3"
)

const badgerGCDiscardRatio = 0.5

// Badger implements Backend on a Badger v3 directory.
type Badger struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenBadger opens or creates a Badger store in dir.
func OpenBadger(dir string, logger *slog.Logger) (*Badger, error) {
	if dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = &badgerLogger{logger: logger}
	// Values are small envelopes; keep the footprint modest.
	opts.ValueLogFileSize = 64 << 20
	opts.MemTableSize = 16 << 20
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	logger.Debug("badger store opened", "dir", dir)
	return &Badger{db: db, logger: logger}, nil
}

// Get retrieves a value by key.
func (e *Badger) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte

	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores a key-value pair.
func (e *Badger) Set(_ context.Context, key string, value []byte) error {
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Delete removes a key.
func (e *Badger) Delete(_ context.Context, key string) error {
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Keys lists all keys without loading values.
func (e *Badger) Keys(_ context.Context) ([]string, error) {
	var keys []string
	err := e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

// Compact runs value log GC until there is nothing left to rewrite.
func (e *Badger) Compact() error {
	rounds := 0
	for {
		err := e.db.RunValueLogGC(badgerGCDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			return fmt.Errorf("badger: value log gc: %w", err)
		}
		rounds++
	}
	e.logger.Debug("badger value log gc finished", "rounds", rounds)
	return nil
}

// Close flushes and closes the store.
func (e *Badger) Close() error {
	return e.db.Close()
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
