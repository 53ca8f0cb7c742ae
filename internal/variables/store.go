// Package variables provides per-virtual-user variable storage, merged
// with feed records when step templates are rendered.
package variables

import (
	"context"

	"github.com/feedrig/feedrig/internal/loader"
)

// Store holds variables for one virtual user. A store is owned by a
// single virtual-user goroutine and needs no locking.
type Store interface {
	// Set stores a variable with the given key and value.
	Set(key, value string)

	// Get retrieves a variable by key. Returns (value, true) if found,
	// or ("", false) if the key is not present.
	Get(key string) (string, bool)

	// GetAll returns a copy of all stored variables.
	GetAll() map[string]string

	// Merge combines variables with a feed record; variables take
	// precedence over record fields.
	Merge(record loader.Record) loader.Record

	// Clear removes all stored variables.
	Clear()
}

// MemoryStore is a map-based Store for one virtual user.
type MemoryStore struct {
	variables map[string]string
}

// NewStore creates an empty MemoryStore.
func NewStore() Store {
	return &MemoryStore{
		variables: make(map[string]string),
	}
}

func (m *MemoryStore) Set(key, value string) {
	m.variables[key] = value
}

func (m *MemoryStore) Get(key string) (string, bool) {
	value, ok := m.variables[key]
	return value, ok
}

func (m *MemoryStore) GetAll() map[string]string {
	result := make(map[string]string, len(m.variables))
	for key, value := range m.variables {
		result[key] = value
	}
	return result
}

// Merge combines variables with a feed record; variables win on key
// conflicts so built-ins like scenario and vu shadow static data.
func (m *MemoryStore) Merge(record loader.Record) loader.Record {
	result := make(loader.Record, len(record)+len(m.variables))
	for key, value := range record {
		result[key] = value
	}
	for key, value := range m.variables {
		result[key] = value
	}
	return result
}

func (m *MemoryStore) Clear() {
	m.variables = make(map[string]string)
}

type contextKey struct{}

var storeKey = contextKey{}

// FromContext retrieves the variable store from the context.
// Returns nil if not found.
func FromContext(ctx context.Context) Store {
	if ctx == nil {
		return nil
	}
	if s, ok := ctx.Value(storeKey).(Store); ok {
		return s
	}
	return nil
}

// NewContext returns a new context with the variable store attached.
func NewContext(ctx context.Context, store Store) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, storeKey, store)
}
