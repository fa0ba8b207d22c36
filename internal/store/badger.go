// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/agora/internal/logging"
	"github.com/tomtom215/agora/internal/metrics"
)

// sequenceKey holds the event sequence lease.
const sequenceKey = "meta/event_sequence"

// BadgerConfig configures the BadgerDB backend.
type BadgerConfig struct {
	// Path is the directory where BadgerDB stores its files.
	Path string

	// InMemory keeps all data in memory. Path is ignored.
	InMemory bool

	// SyncWrites forces fsync after every commit.
	SyncWrites bool

	// MaxRetries bounds how often a conflicting transaction is retried.
	MaxRetries int

	// GCRatio is the discard ratio passed to value log GC.
	GCRatio float64

	// SequenceBandwidth is how many event sequence numbers are leased at once.
	SequenceBandwidth uint64
}

// DefaultBadgerConfig returns production defaults.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		Path:              "/data/agora",
		SyncWrites:        true,
		MaxRetries:        3,
		GCRatio:           0.5,
		SequenceBandwidth: 100,
	}
}

// BadgerStore is a durable Store backed by BadgerDB.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
	cfg BadgerConfig

	mu     sync.RWMutex
	closed bool
}

// OpenBadger opens (or creates) a BadgerDB store.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.GCRatio <= 0 || cfg.GCRatio >= 1 {
		cfg.GCRatio = 0.5
	}
	if cfg.SequenceBandwidth == 0 {
		cfg.SequenceBandwidth = 100
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("open BadgerDB: empty path")
		}
		opts = badger.DefaultOptions(cfg.Path)
		opts.SyncWrites = cfg.SyncWrites
	}

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	seq, err := db.GetSequence([]byte(sequenceKey), cfg.SequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("lease event sequence: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Room store opened")

	return &BadgerStore{db: db, seq: seq, cfg: cfg}, nil
}

// Update runs fn in a read-write transaction, retrying on conflicts.
func (s *BadgerStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.db.Update(func(btxn *badger.Txn) error {
			return fn(&txn{kv: &badgerTxn{txn: btxn, seq: s.seq}})
		})
		if errors.Is(err, badger.ErrConflict) {
			metrics.StoreConflicts.Inc()
			logging.Debug().Int("attempt", attempt+1).Msg("Store transaction conflict, retrying")
			continue
		}
		return err
	}
	return ErrConflict
}

// View runs fn in a read-only snapshot.
func (s *BadgerStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	return s.db.View(func(btxn *badger.Txn) error {
		return fn(&txn{kv: &badgerTxn{txn: btxn, readOnly: true}})
	})
}

// RunGC runs value log garbage collection until nothing is left to rewrite.
func (s *BadgerStore) RunGC() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if s.cfg.InMemory {
		return nil
	}

	for {
		err := s.db.RunValueLogGC(s.cfg.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close releases the sequence lease and closes the database.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.seq.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release sequence: %w", err))
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close BadgerDB: %w", err))
	}
	return errors.Join(errs...)
}

// badgerTxn adapts a badger transaction to kv.
type badgerTxn struct {
	txn      *badger.Txn
	seq      *badger.Sequence
	readOnly bool
}

func (t *badgerTxn) get(key string) ([]byte, error) {
	item, err := t.txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return item.ValueCopy(nil)
}

func (t *badgerTxn) set(key string, value []byte) error {
	if t.readOnly {
		return errReadOnly
	}
	if value == nil {
		value = []byte{}
	}
	return t.txn.Set([]byte(key), value)
}

func (t *badgerTxn) delete(key string) error {
	if t.readOnly {
		return errReadOnly
	}
	return t.txn.Delete([]byte(key))
}

func (t *badgerTxn) scan(prefix, start string, fn func(key string, value []byte) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	opts.Prefix = []byte(prefix)
	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek([]byte(start)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		item := it.Item()
		value, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("read %s: %w", item.Key(), err)
		}
		more, err := fn(string(item.KeyCopy(nil)), value)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

// nextSequence returns values starting at 1; zero is the "no cursor" value.
func (t *badgerTxn) nextSequence() (uint64, error) {
	if t.readOnly || t.seq == nil {
		return 0, errReadOnly
	}
	n, err := t.seq.Next()
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}
