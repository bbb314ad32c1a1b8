package records

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmpty is returned by SelectLast when the store holds no rows.
var ErrEmpty = errors.New("record store is empty")

// DataSource defines the read operations over the record store.
type DataSource interface {
	// SelectAll returns every record in store-defined order.
	SelectAll(ctx context.Context) ([]Record, error)

	// SelectLast returns the record with the highest identity.
	// Returns an error wrapping ErrEmpty if the store has no rows.
	SelectLast(ctx context.Context) (Record, error)
}

// SourceError reports a failure reaching or reading the record store.
type SourceError struct {
	Op  string
	Err error
}

// NewSourceError wraps err as a failure of the named read operation.
func NewSourceError(op string, err error) *SourceError {
	return &SourceError{Op: op, Err: err}
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("datasource %s: %v", e.Op, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

type sourceKey struct{}

// ContextWithSource attaches a data source to the context.
func ContextWithSource(ctx context.Context, source DataSource) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFromContext extracts the data source attached by ContextWithSource.
func SourceFromContext(ctx context.Context) (DataSource, bool) {
	source, ok := ctx.Value(sourceKey{}).(DataSource)

	return source, ok && source != nil
}
