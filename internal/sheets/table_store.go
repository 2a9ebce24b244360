package sheets

import (
	"context"

	"github.com/breadwinner/stock-tracer/internal/store"
)

// Store adapts the sheet service client to the TableStore boundary.
type Store struct {
	client ClientInterface
}

var _ store.TableStore = (*Store)(nil)

// NewStore wraps a sheet service client as a TableStore.
func NewStore(client ClientInterface) *Store {
	return &Store{client: client}
}

func (s *Store) Read(ctx context.Context, table string) ([]string, []store.Row, error) {
	payload, err := s.client.GetTable(ctx, table)
	if err != nil {
		return nil, nil, &store.IOError{Op: "read", Table: table, Err: err}
	}
	if payload == nil {
		return nil, nil, nil
	}
	return payload.Columns, payload.Rows, nil
}

func (s *Store) Write(ctx context.Context, table string, columns []string, rows []store.Row) error {
	payload := &TablePayload{Columns: columns, Rows: rows}
	if err := s.client.PutTable(ctx, table, payload); err != nil {
		return &store.IOError{Op: "write", Table: table, Err: err}
	}
	return nil
}
