package registry

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/actionkit/internal/ir"
)

var (
	// ErrInvalidStoreKey is returned when merging under an empty store key.
	ErrInvalidStoreKey = errors.New("invalid store key")

	// ErrNilReducer is returned when merging a nil reducer.
	ErrNilReducer = errors.New("nil reducer")

	// ErrUnknownStoreKey is returned by lookups for a key with no fragments.
	ErrUnknownStoreKey = errors.New("unknown store key")
)

// Registry is the reducer registry contract consumed by the compiler.
// After Merge returns nil the reducer must be visible to lookups under storeKey.
type Registry interface {
	Merge(storeKey string, reducer ir.Reducer) error
}

// Entry is a diagnostic snapshot of one store key.
type Entry struct {
	StoreKey  string `json:"store_key"`
	Fragments int    `json:"fragments"`
}

// Memory is an in-memory Registry.
// It is safe for concurrent reads; Merge should only be called at startup.
type Memory struct {
	mu        sync.RWMutex
	fragments map[string][]ir.Reducer
}

var _ Registry = (*Memory)(nil)

// NewMemory creates an empty registry.
func NewMemory() *Memory {
	return &Memory{fragments: make(map[string][]ir.Reducer)}
}

// Merge appends a reducer fragment under storeKey.
func (m *Memory) Merge(storeKey string, reducer ir.Reducer) error {
	if storeKey == "" {
		return fmt.Errorf("merge: %w", ErrInvalidStoreKey)
	}
	if reducer == nil {
		return fmt.Errorf("merge %q: %w", storeKey, ErrNilReducer)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.fragments[storeKey] = append(m.fragments[storeKey], reducer)
	return nil
}

// Reducer returns the combined reducer for storeKey.
// The returned reducer captures the fragments present at call time.
func (m *Memory) Reducer(storeKey string) (ir.Reducer, bool) {
	m.mu.RLock()
	fragments := slices.Clone(m.fragments[storeKey])
	m.mu.RUnlock()

	if len(fragments) == 0 {
		return nil, false
	}
	if len(fragments) == 1 {
		return fragments[0], true
	}
	return combine(fragments), true
}

// Reduce applies the combined reducer for storeKey to state and action.
func (m *Memory) Reduce(storeKey string, state any, action ir.Action) (any, error) {
	reducer, ok := m.Reducer(storeKey)
	if !ok {
		return nil, fmt.Errorf("reduce %q: %w", storeKey, ErrUnknownStoreKey)
	}
	return reducer(state, action), nil
}

// Keys returns every store key with at least one fragment, sorted.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.fragments))
	for k := range m.fragments {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Entries returns a sorted snapshot of store keys and fragment counts.
func (m *Memory) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]Entry, 0, len(m.fragments))
	for k, f := range m.fragments {
		entries = append(entries, Entry{StoreKey: k, Fragments: len(f)})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return cmp.Compare(a.StoreKey, b.StoreKey)
	})
	return entries
}

// Len returns the number of store keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.fragments)
}

// Reset removes every fragment.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fragments = make(map[string][]ir.Reducer)
}

// combine threads state through each fragment in order.
func combine(fragments []ir.Reducer) ir.Reducer {
	return func(state any, action ir.Action) any {
		for _, f := range fragments {
			state = f(state, action)
		}
		return state
	}
}
