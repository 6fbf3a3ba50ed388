// Package filter provides the record transformations applied between the
// source fetch and the target write: the member mapping and the optional
// JavaScript hook.
package filter

import (
	"context"
	"errors"
	"fmt"
)

// Policies for a record whose hook fails
const (
	OnErrorFail = "fail"
	OnErrorSkip = "skip"
	OnErrorLog  = "log"
)

var (
	// ErrRecordSkipped marks a record dropped by a hook under the skip policy.
	ErrRecordSkipped = errors.New("record skipped")
	// ErrInvalidOnError is returned for an unknown policy name.
	ErrInvalidOnError = errors.New("invalid onError value")
)

// RecordHook transforms one record at a time. index is the record position
// in the source batch and is used for error reporting.
type RecordHook interface {
	Apply(ctx context.Context, index int, record map[string]interface{}) (map[string]interface{}, error)
}

// ParseOnError resolves a policy name. Empty selects OnErrorFail.
func ParseOnError(onError string) (string, error) {
	switch onError {
	case "":
		return OnErrorFail, nil
	case OnErrorFail, OnErrorSkip, OnErrorLog:
		return onError, nil
	default:
		return "", fmt.Errorf("%w: %q (expected fail, skip or log)", ErrInvalidOnError, onError)
	}
}
