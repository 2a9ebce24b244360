package store

import (
	"context"
	"sync"
)

// MemoryStore keeps tables in process memory. Used by tests and
// ephemeral runs; contents are copied on both read and write so callers
// never alias internal state.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]memTable
}

type memTable struct {
	columns []string
	rows    []Row
}

var _ TableStore = (*MemoryStore)(nil)

// NewMemory creates an empty in-memory table store.
func NewMemory() *MemoryStore {
	return &MemoryStore{tables: make(map[string]memTable)}
}

func (s *MemoryStore) Read(ctx context.Context, table string) ([]string, []Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[table]
	if !ok {
		return nil, nil, nil
	}
	return copyColumns(t.columns), copyRows(t.rows), nil
}

func (s *MemoryStore) Write(ctx context.Context, table string, columns []string, rows []Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables[table] = memTable{columns: copyColumns(columns), rows: copyRows(rows)}
	return nil
}

func copyColumns(columns []string) []string {
	if columns == nil {
		return nil
	}
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}

func copyRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, row := range rows {
		dup := make(Row, len(row))
		for k, v := range row {
			dup[k] = v
		}
		out[i] = dup
	}
	return out
}
