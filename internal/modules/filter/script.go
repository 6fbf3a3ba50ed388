package filter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"github.com/impavidox/Gestionale/internal/logger"
)

// Error codes for the script hook
const (
	ErrCodeScriptEmpty          = "SCRIPT_EMPTY"
	ErrCodeScriptTooLong        = "SCRIPT_TOO_LONG"
	ErrCodeCompilationFailed    = "COMPILATION_FAILED"
	ErrCodeMissingTransform     = "MISSING_TRANSFORM"
	ErrCodeNotFunction          = "NOT_FUNCTION"
	ErrCodeExecutionFailed      = "EXECUTION_FAILED"
	ErrCodeInvalidResult        = "INVALID_RESULT"
	ErrCodeInvalidScriptFile    = "INVALID_SCRIPT_FILE"
	ErrCodeScriptFileReadFailed = "SCRIPT_FILE_READ_FAILED"
	ErrCodeInvalidOnError       = "INVALID_ON_ERROR"
)

// MaxScriptLength is the maximum allowed script length in bytes (100KB)
const MaxScriptLength = 100 * 1024

var (
	// ErrScriptEmpty is returned when the script is empty or whitespace-only
	ErrScriptEmpty = errors.New("script cannot be empty")
	// ErrScriptTooLong is returned when the script exceeds MaxScriptLength
	ErrScriptTooLong = errors.New("script exceeds maximum length")
	// ErrMissingTransformFunc is returned when the script doesn't define transform
	ErrMissingTransformFunc = errors.New("transform function not found in script")
	// ErrTransformNotFunction is returned when transform is not a function
	ErrTransformNotFunction = errors.New("transform is not a function")
)

// ScriptConfig configures the JavaScript record hook.
// Exactly one of Script or ScriptFile must be set.
type ScriptConfig struct {
	// Script is inline JavaScript defining transform(record)
	Script string `json:"script,omitempty"`
	// ScriptFile is the path to a JavaScript file defining transform(record)
	ScriptFile string `json:"scriptFile,omitempty"`
	// OnError is the policy for a failing record: "fail" (default), "skip", "log"
	OnError string `json:"onError,omitempty"`
}

// ScriptModule runs a user-supplied transform(record) over mapped member
// records before they are posted.
//
// The goja runtime is not goroutine-safe: Apply must not be called
// concurrently on one instance. Context cancellation interrupts a
// running script.
type ScriptModule struct {
	onError     string
	runtime     *goja.Runtime
	transformFn goja.Callable
	interruptMu sync.Mutex
}

// ScriptError carries structured context for script failures.
type ScriptError struct {
	Code        string
	Message     string
	RecordIndex int
	StackTrace  string
	Err         error
}

func (e *ScriptError) Error() string {
	return e.Message
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

func newScriptError(code, message string, recordIdx int, stackTrace string, err error) *ScriptError {
	return &ScriptError{
		Code:        code,
		Message:     message,
		RecordIndex: recordIdx,
		StackTrace:  stackTrace,
		Err:         err,
	}
}

// NewScriptFromConfig loads, compiles and checks the script.
func NewScriptFromConfig(config ScriptConfig) (*ScriptModule, error) {
	source, err := resolveScriptSource(config)
	if err != nil {
		return nil, err
	}
	if err := validateScript(source); err != nil {
		return nil, err
	}

	vm := goja.New()

	if _, err := vm.RunString(source); err != nil {
		return nil, newScriptError(ErrCodeCompilationFailed, fmt.Sprintf("script compilation failed: %v", err), -1, "", err)
	}

	transformFn, err := getTransformFunction(vm)
	if err != nil {
		return nil, err
	}

	onError, err := ParseOnError(config.OnError)
	if err != nil {
		return nil, newScriptError(ErrCodeInvalidOnError, err.Error(), -1, "", err)
	}

	logger.Debug("script hook initialized",
		slog.Int("script_length", len(source)),
		slog.String("on_error", onError),
		slog.Bool("from_file", config.ScriptFile != ""),
	)

	return &ScriptModule{
		onError:     onError,
		runtime:     vm,
		transformFn: transformFn,
	}, nil
}

func resolveScriptSource(config ScriptConfig) (string, error) {
	if config.Script != "" && config.ScriptFile != "" {
		return "", newScriptError(ErrCodeInvalidScriptFile, "cannot specify both 'script' and 'scriptFile' - use only one", -1, "", nil)
	}
	if config.Script != "" {
		return config.Script, nil
	}
	if config.ScriptFile == "" {
		return "", newScriptError(ErrCodeScriptEmpty, "either 'script' or 'scriptFile' must be provided", -1, "", ErrScriptEmpty)
	}

	if err := validateScriptFilePath(config.ScriptFile); err != nil {
		return "", err
	}

	file, err := os.Open(config.ScriptFile)
	if err != nil {
		return "", newScriptError(ErrCodeScriptFileReadFailed, fmt.Sprintf("failed to open script file %q: %v", config.ScriptFile, err), -1, "", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Warn("failed to close script file",
				slog.String("file", config.ScriptFile),
				slog.String("error", closeErr.Error()),
			)
		}
	}()

	// Read one byte past the limit to detect oversized files.
	content, err := io.ReadAll(io.LimitReader(file, MaxScriptLength+1))
	if err != nil {
		return "", newScriptError(ErrCodeScriptFileReadFailed, fmt.Sprintf("failed to read script file %q: %v", config.ScriptFile, err), -1, "", err)
	}
	if len(content) > MaxScriptLength {
		return "", newScriptError(ErrCodeScriptTooLong, fmt.Sprintf("script file %q is larger than %d bytes", config.ScriptFile, MaxScriptLength), -1, "", ErrScriptTooLong)
	}
	return string(content), nil
}

// validateScriptFilePath rejects paths with NUL bytes or ".." segments.
func validateScriptFilePath(filePath string) error {
	if strings.Contains(filePath, "\x00") {
		return newScriptError(ErrCodeInvalidScriptFile, "scriptFile path contains invalid characters", -1, "", nil)
	}
	normalized := filepath.ToSlash(filepath.Clean(filePath))
	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return newScriptError(ErrCodeInvalidScriptFile, fmt.Sprintf("scriptFile path contains path traversal: %q", filePath), -1, "", nil)
		}
	}
	return nil
}

func validateScript(script string) error {
	if strings.TrimSpace(script) == "" {
		return newScriptError(ErrCodeScriptEmpty, "script cannot be empty", -1, "", ErrScriptEmpty)
	}
	if len(script) > MaxScriptLength {
		return newScriptError(ErrCodeScriptTooLong, fmt.Sprintf("script exceeds maximum length: %d bytes exceeds maximum %d bytes", len(script), MaxScriptLength), -1, "", ErrScriptTooLong)
	}
	return nil
}

func getTransformFunction(vm *goja.Runtime) (goja.Callable, error) {
	transformVal := vm.Get("transform")
	if transformVal == nil || goja.IsUndefined(transformVal) {
		return nil, newScriptError(ErrCodeMissingTransform, "transform function not found in script", -1, "", ErrMissingTransformFunc)
	}
	transformFn, ok := goja.AssertFunction(transformVal)
	if !ok {
		return nil, newScriptError(ErrCodeNotFunction, "transform is not a function", -1, "", ErrTransformNotFunction)
	}
	return transformFn, nil
}

// Apply runs transform(record) for one record. A script failure is
// handled per the configured policy: fail returns it, skip returns an error
// wrapping ErrRecordSkipped and log keeps the input record. Cancellation is
// always returned as is.
func (m *ScriptModule) Apply(ctx context.Context, index int, record map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	transformed, err := m.processRecord(ctx, record, index)
	if err == nil {
		return transformed, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	switch m.onError {
	case OnErrorSkip:
		logger.Warn("skipping record due to script error",
			slog.Int("record_index", index),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrRecordSkipped, err)
	case OnErrorLog:
		logger.Error("script error (continuing with input record)",
			slog.Int("record_index", index),
			slog.String("error", err.Error()),
		)
		return record, nil
	default:
		return nil, err
	}
}

func (m *ScriptModule) processRecord(ctx context.Context, record map[string]interface{}, recordIdx int) (map[string]interface{}, error) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			m.interruptMu.Lock()
			m.runtime.Interrupt(ctx.Err().Error())
			m.interruptMu.Unlock()
		case <-done:
		}
	}()

	result, err := m.transformFn(goja.Undefined(), m.runtime.ToValue(record))

	m.interruptMu.Lock()
	m.runtime.ClearInterrupt()
	m.interruptMu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, m.handleJSError(err, recordIdx)
	}
	return m.exportToGoMap(result, recordIdx)
}

func (m *ScriptModule) handleJSError(err error, recordIdx int) error {
	var jsErr *goja.Exception
	if errors.As(err, &jsErr) {
		stackTrace := ""
		if obj, ok := jsErr.Value().(*goja.Object); ok {
			if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
				stackTrace = stack.String()
			}
		}
		return newScriptError(ErrCodeExecutionFailed, fmt.Sprintf("script failed at record %d: %v", recordIdx, jsErr.Value()), recordIdx, stackTrace, err)
	}
	return newScriptError(ErrCodeExecutionFailed, fmt.Sprintf("script failed at record %d: %v", recordIdx, err), recordIdx, "", err)
}

// exportToGoMap requires the transform result to be a plain object.
func (m *ScriptModule) exportToGoMap(value goja.Value, recordIdx int) (map[string]interface{}, error) {
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, newScriptError(ErrCodeInvalidResult, fmt.Sprintf("script at record %d returned null or undefined - transform must return an object", recordIdx), recordIdx, "", nil)
	}

	switch exported := value.Export().(type) {
	case map[string]interface{}:
		return exported, nil
	case []interface{}:
		return nil, newScriptError(ErrCodeInvalidResult, fmt.Sprintf("script at record %d returned an array (length %d) - transform must return an object", recordIdx, len(exported)), recordIdx, "", nil)
	default:
		return nil, newScriptError(ErrCodeInvalidResult, fmt.Sprintf("script at record %d returned %T - transform must return an object", recordIdx, exported), recordIdx, "", nil)
	}
}
