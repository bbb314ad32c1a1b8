package store

import (
	"context"
	"slices"
	"sync"

	"github.com/serroba/rowquota/internal/auth"
	"github.com/serroba/rowquota/internal/records"
)

// MemoryStore is an in-memory implementation of records.DataSource and auth.Source.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[int64]records.Record // id -> record
	limits map[string]int           // access key -> max rows
}

// NewMemoryStore creates a new empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:   make(map[int64]records.Record),
		limits: make(map[string]int),
	}
}

// Insert adds or replaces a record by id.
func (m *MemoryStore) Insert(rec records.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows[rec.ID] = rec
}

// SetKeyLimit caps the number of rows returned for key.
func (m *MemoryStore) SetKeyLimit(key string, maxRows int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.limits[key] = maxRows
}

// SelectAll returns every record ordered by id ascending.
func (m *MemoryStore) SelectAll(_ context.Context) ([]records.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]records.Record, 0, len(m.rows))
	for _, rec := range m.rows {
		rows = append(rows, rec)
	}

	slices.SortFunc(rows, byID)

	return rows, nil
}

func (m *MemoryStore) SelectLast(_ context.Context) (records.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.rows) == 0 {
		return records.Record{}, records.NewSourceError("select last", records.ErrEmpty)
	}

	var last records.Record

	first := true
	for _, rec := range m.rows {
		if first || rec.ID > last.ID {
			last = rec
			first = false
		}
	}

	return last, nil
}

func (m *MemoryStore) KeyLimit(_ context.Context, key string) (auth.KeyLimit, bool, error) {
	if limit, ok := auth.Reserved(key); ok {
		return limit, true, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	maxRows, ok := m.limits[key]
	if !ok {
		return auth.KeyLimit{}, false, nil
	}

	return auth.Limit(maxRows), true, nil
}

func byID(a, b records.Record) int {
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}

// Compile-time checks.
var (
	_ records.DataSource = (*MemoryStore)(nil)
	_ auth.Source        = (*MemoryStore)(nil)
)
