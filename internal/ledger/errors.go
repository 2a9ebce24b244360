package ledger

import (
	"errors"
	"fmt"
)

// ErrNotFound reports an operation referencing a trade id absent from
// the table.
var ErrNotFound = errors.New("trade not found")

// ErrAlreadyClosed reports a close on a trade that is no longer OPEN.
// Closing is one-way and is never re-applied to the same row.
var ErrAlreadyClosed = errors.New("trade already closed")

// ValidationError reports caller-supplied fields that violate
// preconditions. The operation is rejected before any state change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
