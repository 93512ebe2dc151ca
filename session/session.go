// Package session houses persistence for conversation snapshots. The Store
// interface keeps higher layers independent of concrete storage; the in-memory
// implementation suits tests and ephemeral hosts. Additional backends (Redis,
// Postgres, object storage) can be added in sub-packages without changing any
// calling code.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/guidedconv/engine"
)

// ErrNotFound is returned when no snapshot exists for the requested session.
var ErrNotFound = errors.New("session not found")

// Store persists conversation snapshots keyed by session ID.
type Store interface {
	Save(snap *engine.Snapshot) error
	Load(id string) (*engine.Snapshot, error)
	Delete(id string) error
	List() ([]string, error)
}

// InMemoryStore is a volatile Store keeping JSON-encoded snapshots in a
// process-local map. Encoding on save gives callers a defensive copy and
// exercises the same round-trip a durable backend would.
type InMemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory snapshot store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{snapshots: make(map[string][]byte)}
}

// Save encodes and stores the snapshot, replacing any previous one for the
// same session.
func (s *InMemoryStore) Save(snap *engine.Snapshot) error {
	if snap == nil || snap.ID == "" {
		return fmt.Errorf("snapshot must have a session id")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.ID] = data
	return nil
}

// Load decodes the stored snapshot for id, or returns ErrNotFound.
func (s *InMemoryStore) Load(id string) (*engine.Snapshot, error) {
	s.mu.RLock()
	data, ok := s.snapshots[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Delete removes the snapshot for id; deleting a missing session is a no-op.
func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, id)
	return nil
}

// List returns the stored session IDs in unspecified order.
func (s *InMemoryStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	return ids, nil
}
