package services

import (
	"context"
	"fmt"
	"sync"

	"vibeify/types"
)

var errNoCatalog = fmt.Errorf("%w: no catalog configured", types.ErrInternal)

// Catalog is the remote metadata store keyed by identity
type Catalog interface {
	Exists(ctx context.Context, identity string) (bool, error)
	Get(ctx context.Context, identity string) (*types.MediaRecord, error)
	Set(ctx context.Context, identity string, record *types.MediaRecord) error
	// StreamAll calls fn once per stored record; a non-nil error from fn
	// stops the iteration and is returned
	StreamAll(ctx context.Context, fn func(types.MediaRecord) error) error
	// StreamIdentities is StreamAll restricted to the stored identities
	StreamIdentities(ctx context.Context, fn func(identity string) error) error
}

// MemoryCatalog is an in-process Catalog used when no document store is
// configured and as a test double
type MemoryCatalog struct {
	mu      sync.RWMutex
	records map[string]types.MediaRecord
	writes  int
}

// NewMemoryCatalog creates an empty in-memory catalog
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{records: make(map[string]types.MediaRecord)}
}

// Exists reports whether identity has a stored record
func (m *MemoryCatalog) Exists(ctx context.Context, identity string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[identity]
	return ok, nil
}

// Get returns the stored record or ErrNotFound
func (m *MemoryCatalog) Get(ctx context.Context, identity string) (*types.MediaRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[identity]
	if !ok {
		return nil, fmt.Errorf("%w: catalog entry %s", types.ErrNotFound, identity)
	}
	return &record, nil
}

// Set upserts the record for identity
func (m *MemoryCatalog) Set(ctx context.Context, identity string, record *types.MediaRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *record
	stored.Identity = identity
	m.records[identity] = stored
	m.writes++
	return nil
}

// StreamAll iterates over a copy of the stored records
func (m *MemoryCatalog) StreamAll(ctx context.Context, fn func(types.MediaRecord) error) error {
	m.mu.RLock()
	records := make([]types.MediaRecord, 0, len(m.records))
	for _, record := range m.records {
		records = append(records, record)
	}
	m.mu.RUnlock()

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored records
func (m *MemoryCatalog) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Writes returns how many Set calls the catalog has served
func (m *MemoryCatalog) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// StreamIdentities iterates over a copy of the stored identities
func (m *MemoryCatalog) StreamIdentities(ctx context.Context, fn func(identity string) error) error {
	m.mu.RLock()
	identities := make([]string, 0, len(m.records))
	for identity := range m.records {
		identities = append(identities, identity)
	}
	m.mu.RUnlock()

	for _, identity := range identities {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(identity); err != nil {
			return err
		}
	}
	return nil
}
