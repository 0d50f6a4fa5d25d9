// Package store provides in-memory implementations of the generic interfaces.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/mcdf/welfare-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	entries     []generic.Entry
	byID        map[generic.EntryID]int
	idempotency map[string]bool
	sequences   map[string]int64
}

func NewMemory() *Memory {
	return &Memory{
		byID:        make(map[generic.EntryID]int),
		idempotency: make(map[string]bool),
		sequences:   make(map[string]int64),
	}
}

// AppendEntry adds a single entry. Append-only.
func (m *Memory) AppendEntry(_ context.Context, e generic.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.IdempotencyKey != "" && m.idempotency[e.IdempotencyKey] {
		return generic.ErrDuplicateIdempotencyKey
	}

	// Binary search for insertion point keeps entries ordered by date
	i := sort.Search(len(m.entries), func(i int) bool {
		return generic.DayAfter(m.entries[i].TransactionDate, e.TransactionDate)
	})

	m.entries = append(m.entries, generic.Entry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = e

	for j := i; j < len(m.entries); j++ {
		m.byID[m.entries[j].ID] = j
	}
	if e.IdempotencyKey != "" {
		m.idempotency[e.IdempotencyKey] = true
	}
	return nil
}

func (m *Memory) EntryExists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}

func (m *Memory) GetEntry(_ context.Context, id generic.EntryID) (*generic.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	e := m.entries[i]
	return &e, nil
}

func (m *Memory) LoadEntries(_ context.Context, filter generic.EntryFilter) ([]generic.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.Entry
	for _, e := range m.entries {
		if filter.Matches(e) {
			result = append(result, e)
		}
	}
	return result, nil
}

// =============================================================================
// SEQUENCES
// =============================================================================

// NextValue increments and returns the named counter.
func (m *Memory) NextValue(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences[name]++
	return m.sequences[name], nil
}

var (
	_ generic.LedgerStore = (*Memory)(nil)
	_ generic.Sequencer   = (*Memory)(nil)
)
