// Package store defines the whole-table persistence boundary and its
// backends. The backing spreadsheet has no row-level update primitive, so
// every write replaces a table's entire content.
package store

import (
	"context"
	"fmt"
)

// Row is one table row keyed by column name. Cell values are untyped
// strings, the only representation the backing store guarantees.
type Row map[string]string

// TableStore reads and replaces whole tables. A missing table reads as
// empty (nil columns, nil rows) rather than an error; Write is
// all-or-nothing from the caller's perspective.
type TableStore interface {
	Read(ctx context.Context, table string) (columns []string, rows []Row, err error)
	Write(ctx context.Context, table string, columns []string, rows []Row) error
}

// IOError wraps a backing-store failure. No partial write survives a
// failed operation, so callers may retry the whole operation safely.
type IOError struct {
	Op    string
	Table string
	Err   error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Table, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
