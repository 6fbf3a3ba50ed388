// Package input provides the source side of a migration: modules that
// fetch records from a remote system.
package input

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidRange is returned when a requested record range is malformed.
var ErrInvalidRange = errors.New("invalid record range")

// Range is an inclusive range of source record positions.
type Range struct {
	Start int
	End   int
}

// Validate checks that the bounds are non-negative and ordered.
func (r Range) Validate() error {
	if r.Start < 0 || r.End < 0 {
		return fmt.Errorf("%w: bounds must be non-negative, got %d..%d", ErrInvalidRange, r.Start, r.End)
	}
	if r.Start > r.End {
		return fmt.Errorf("%w: start %d is after end %d", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Module represents an input module that fetches data from a source.
type Module interface {
	// Fetch retrieves the records in rng from the source system.
	// The context can be used to cancel long-running operations.
	Fetch(ctx context.Context, rng Range) ([]map[string]interface{}, error)
	// Close releases any resources held by the module.
	Close() error
}
