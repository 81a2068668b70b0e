// Package persistence saves, loads and clears one serialized application
// record per identifier. Identifiers are device fingerprints for anonymous
// visitors and user ids for authenticated sessions; the stores never look
// inside the snapshot they hold.
package persistence

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned by Load when no snapshot exists.
	ErrNotFound = errors.New("persistence: snapshot not found")
	// ErrMissingIdentifier is returned for blank identifiers.
	ErrMissingIdentifier = errors.New("persistence: identifier is required")
)

// Store is the contract every backend honours. Save upserts, Clear of an
// unknown identifier succeeds.
type Store interface {
	Save(ctx context.Context, identifier string, data []byte) error
	Load(ctx context.Context, identifier string) ([]byte, error)
	Clear(ctx context.Context, identifier string) error
}

func checkIdentifier(identifier string) error {
	if strings.TrimSpace(identifier) == "" {
		return ErrMissingIdentifier
	}
	return nil
}

// MemoryStore keeps snapshots in process. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string][]byte)}
}

func (m *MemoryStore) Save(_ context.Context, identifier string, data []byte) error {
	if err := checkIdentifier(identifier); err != nil {
		return err
	}
	m.mu.Lock()
	m.rows[identifier] = append([]byte(nil), data...)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, identifier string) ([]byte, error) {
	if err := checkIdentifier(identifier); err != nil {
		return nil, err
	}
	m.mu.RLock()
	data, ok := m.rows[identifier]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) Clear(_ context.Context, identifier string) error {
	if err := checkIdentifier(identifier); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.rows, identifier)
	m.mu.Unlock()
	return nil
}

// Len reports how many snapshots are held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}
