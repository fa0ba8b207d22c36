// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store. Updates are serialized; views run
// concurrently against committed data.
//
// Update holds one store-wide write lock for the whole of fn, so a slow
// content purge inside a deletion also blocks updates to every other room.
// Rooms only proceed in parallel on the Badger backend; this store is meant
// for tests and single-node development.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	seq    uint64
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Update runs fn against a private write set that is applied on success.
func (s *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	overlay := &memoryTxn{store: s, writes: make(map[string][]byte), deletes: make(map[string]bool), seq: s.seq}
	if err := fn(&txn{kv: overlay}); err != nil {
		return err
	}

	for key := range overlay.deletes {
		delete(s.data, key)
	}
	for key, value := range overlay.writes {
		s.data[key] = value
	}
	s.seq = overlay.seq
	return nil
}

// View runs fn against committed data.
func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return fn(&txn{kv: &memoryTxn{store: s, readOnly: true}})
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// memoryTxn overlays uncommitted writes on the committed map.
type memoryTxn struct {
	store    *MemoryStore
	writes   map[string][]byte
	deletes  map[string]bool
	seq      uint64
	readOnly bool
}

func (t *memoryTxn) get(key string) ([]byte, error) {
	if !t.readOnly {
		if t.deletes[key] {
			return nil, ErrNotFound
		}
		if v, ok := t.writes[key]; ok {
			return v, nil
		}
	}
	v, ok := t.store.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (t *memoryTxn) set(key string, value []byte) error {
	if t.readOnly {
		return errReadOnly
	}
	delete(t.deletes, key)
	t.writes[key] = append([]byte(nil), value...)
	return nil
}

func (t *memoryTxn) delete(key string) error {
	if t.readOnly {
		return errReadOnly
	}
	delete(t.writes, key)
	t.deletes[key] = true
	return nil
}

func (t *memoryTxn) scan(prefix, start string, fn func(key string, value []byte) (bool, error)) error {
	keys := make(map[string]struct{})
	for key := range t.store.data {
		if strings.HasPrefix(key, prefix) && key >= start {
			keys[key] = struct{}{}
		}
	}
	for key := range t.writes {
		if strings.HasPrefix(key, prefix) && key >= start {
			keys[key] = struct{}{}
		}
	}

	ordered := make([]string, 0, len(keys))
	for key := range keys {
		if !t.deletes[key] {
			ordered = append(ordered, key)
		}
	}
	sort.Strings(ordered)

	for _, key := range ordered {
		value, err := t.get(key)
		if err != nil {
			return err
		}
		more, err := fn(key, value)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

func (t *memoryTxn) nextSequence() (uint64, error) {
	if t.readOnly {
		return 0, errReadOnly
	}
	t.seq++
	return t.seq, nil
}
