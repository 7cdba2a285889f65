package services

import (
	"fmt"
	"sort"
	"sync"

	"vibeify/types"
)

// MediaIndex maps identities to local file paths for the lifetime of the
// process. Lookups fail with ErrNotReady until MarkReady is called.
type MediaIndex struct {
	mu      sync.RWMutex
	entries map[string]string
	ready   bool
}

// NewMediaIndex creates an empty, not-ready index
func NewMediaIndex() *MediaIndex {
	return &MediaIndex{entries: make(map[string]string)}
}

// Put maps identity to path, replacing any earlier mapping
func (ix *MediaIndex) Put(identity, path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries[identity] = path
}

// Get returns the local path for identity
func (ix *MediaIndex) Get(identity string) (string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if !ix.ready {
		return "", types.ErrNotReady
	}
	path, ok := ix.entries[identity]
	if !ok {
		return "", fmt.Errorf("%w: identity %s", types.ErrNotFound, identity)
	}
	return path, nil
}

// MarkReady opens the index for lookups
func (ix *MediaIndex) MarkReady() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ready = true
}

// Ready reports whether the startup scan has completed
func (ix *MediaIndex) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.ready
}

// Len returns the number of indexed identities
func (ix *MediaIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Entries returns a snapshot of the index sorted by identity
func (ix *MediaIndex) Entries() []types.IndexEntry {
	ix.mu.RLock()
	entries := make([]types.IndexEntry, 0, len(ix.entries))
	for identity, path := range ix.entries {
		entries = append(entries, types.IndexEntry{Identity: identity, LocalPath: path})
	}
	ix.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Identity < entries[j].Identity })
	return entries
}
