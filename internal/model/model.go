// Package model composes data source reads with filters that do not depend on
// authorization.
package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/serroba/rowquota/internal/records"
)

// Error wraps a data source failure that occurred inside a model operation.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("model: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RecordsStartingWith returns the col1 value of every record whose col1 begins
// with prefix. The match is case-sensitive and the fetch order is preserved.
func RecordsStartingWith(ctx context.Context, source records.DataSource, prefix rune) ([]string, error) {
	rows, err := source.SelectAll(ctx)
	if err != nil {
		return nil, &Error{Err: err}
	}

	p := string(prefix)
	matched := make([]string, 0, len(rows))

	for _, row := range rows {
		if strings.HasPrefix(row.Col1, p) {
			matched = append(matched, row.Col1)
		}
	}

	return matched, nil
}
