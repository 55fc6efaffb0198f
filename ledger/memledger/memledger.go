// Package memledger provides an in-memory ledger.Store.
//
// It is the default backend for tests and single-process deployments. The
// implementation is offline and deterministic: it never touches the network
// and never depends on wall-clock time.
package memledger

import (
	"sync"

	"xdao.co/descimarket/ledger"
)

// Store is a map-backed ledger.Store.
//
// Access is guarded by a mutex so the daemon can share one instance between
// the request path and diagnostics, even though the request processor already
// serializes mutations.
type Store struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func New() *Store {
	return &Store{records: make(map[string][]byte)}
}

func (s *Store) Put(prefix ledger.Prefix, identity, value []byte) error {
	if prefix == "" {
		return ledger.ErrEmptyPrefix
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Copy so later caller mutations cannot reach stored state.
	v := make([]byte, len(value))
	copy(v, value)
	s.records[string(prefix.Key(identity))] = v
	return nil
}

func (s *Store) Get(prefix ledger.Prefix, identity []byte) ([]byte, error) {
	if prefix == "" {
		return nil, ledger.ErrEmptyPrefix
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[string(prefix.Key(identity))]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Store) Delete(prefix ledger.Prefix, identity []byte) error {
	if prefix == "" {
		return ledger.ErrEmptyPrefix
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, string(prefix.Key(identity)))
	return nil
}

func (s *Store) Has(prefix ledger.Prefix, identity []byte) bool {
	if prefix == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[string(prefix.Key(identity))]
	return ok
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
