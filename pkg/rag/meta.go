package rag

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MetaEntry is the per-source record kept in the side index.
type MetaEntry struct {
	Source   string                 `json:"source_identifier"`
	Metadata map[string]interface{} `json:"metadata"`
}

// MetaIndex is a flat source -> metadata side file used at startup to decide
// whether the corpus is already indexed. Re-indexing a source overwrites its
// entry; entries are never duplicated.
type MetaIndex struct {
	mu      sync.RWMutex
	path    string
	entries map[string]MetaEntry
}

// LoadMetaIndex reads the side index at path. A missing file yields an empty
// index, which reports NeedsIndexing.
func LoadMetaIndex(path string) (*MetaIndex, error) {
	idx := &MetaIndex{
		path:    path,
		entries: make(map[string]MetaEntry),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata index: %w", err)
	}
	if len(data) == 0 {
		return idx, nil
	}

	if err := json.Unmarshal(data, &idx.entries); err != nil {
		return nil, fmt.Errorf("failed to parse metadata index: %w", err)
	}
	return idx, nil
}

// NeedsIndexing reports whether the side index is absent or empty.
func (m *MetaIndex) NeedsIndexing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries) == 0
}

// Put records metadata for a source, replacing any earlier entry.
func (m *MetaIndex) Put(source string, metadata map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[source] = MetaEntry{Source: source, Metadata: metadata}
}

// Get returns the entry for a source, if present.
func (m *MetaIndex) Get(source string) (MetaEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[source]
	return entry, ok
}

// Len returns the number of indexed sources.
func (m *MetaIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}

// Save writes the index back to disk.
func (m *MetaIndex) Save() error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m.entries, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal metadata index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata index: %w", err)
	}
	return nil
}
