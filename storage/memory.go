package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type memoryEntry struct {
	data    []byte
	version string
}

// Memory is a mutex-guarded in-process [Store], used in tests and the dev
// server.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

// Get returns the document at key.
func (m *Memory) Get(ctx context.Context, key []string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[joinKey(key)]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{Key: key, Data: cloneBytes(entry.data), Version: entry.version}, nil
}

// List returns every document whose key starts with prefix.
func (m *Memory) List(ctx context.Context, prefix []string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	joined := joinKey(prefix) + keySeparator
	var out []Document
	for key, entry := range m.entries {
		if !strings.HasPrefix(key, joined) {
			continue
		}
		out = append(out, Document{
			Key:     splitKey(key),
			Data:    cloneBytes(entry.data),
			Version: entry.version,
		})
	}
	return out, nil
}

// Commit verifies every check under the write lock and applies the batch.
func (m *Memory) Commit(ctx context.Context, checks []Check, ops []Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, check := range checks {
		entry, exists := m.entries[joinKey(check.Key)]
		if check.Version == "" {
			if exists {
				return ErrVersionConflict
			}
			continue
		}
		if !exists || entry.version != check.Version {
			return ErrVersionConflict
		}
	}

	for _, op := range ops {
		key := joinKey(op.Key)
		if op.Delete {
			delete(m.entries, key)
			continue
		}
		m.entries[key] = memoryEntry{
			data:    cloneBytes(op.Data),
			version: uuid.NewString(),
		}
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
