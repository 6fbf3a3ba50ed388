package runtime

import (
	"errors"

	"github.com/impavidox/Gestionale/internal/errhandling"
	"github.com/impavidox/Gestionale/internal/modules/output"
	"github.com/impavidox/Gestionale/pkg/socio"
)

// Error codes for migration errors
const (
	ErrCodeInputFailed  = "INPUT_FAILED"
	ErrCodeScriptFailed = "SCRIPT_FAILED"
	ErrCodeOutputFailed = "OUTPUT_FAILED"
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// Migration status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusPartial = "partial"
)

// Common errors
var (
	// ErrNilInputModule is returned when the source module is nil
	ErrNilInputModule = errors.New("input module is nil")

	// ErrNilOutputModule is returned when the target module is nil outside dry-run
	ErrNilOutputModule = errors.New("output module is nil")
)

// buildRecordFailure classifies err into a RecordFailure for the record at index.
// Message is the raw response body when the target answered, else the error text.
func buildRecordFailure(index int, name string, err error) socio.RecordFailure {
	cl := errhandling.ClassifyError(err)
	failure := socio.RecordFailure{
		Index:     index,
		Name:      name,
		Category:  string(cl.Category),
		Transient: cl.Transient,
		Message:   err.Error(),
	}

	var httpErr *output.HTTPError
	if errors.As(err, &httpErr) {
		failure.StatusCode = httpErr.StatusCode
		if httpErr.StatusCode > 0 {
			failure.Message = httpErr.ResponseBody
		} else {
			failure.Message = httpErr.Message
		}
	}
	return failure
}

// resolveStatus derives the migration status from the counters.
func resolveStatus(created, failed int) string {
	switch {
	case failed == 0:
		return StatusSuccess
	case created > 0:
		return StatusPartial
	default:
		return StatusError
	}
}
