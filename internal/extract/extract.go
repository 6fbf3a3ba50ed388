// Package extract filters a dump of literal rows, one per line, keeping the
// rows a Filter accepts and writing them back in literal notation.
package extract

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/impavidox/Gestionale/internal/literal"
	"github.com/impavidox/Gestionale/internal/logger"
)

// Default file names used by the recovery run.
const (
	DefaultInputPath  = "input.txt"
	DefaultOutputPath = "output_file.txt"
)

// maxLineSize bounds a single input line.
const maxLineSize = 16 * 1024 * 1024

var (
	// ErrReadInput is returned when the input cannot be opened or read
	ErrReadInput = errors.New("reading input")
	// ErrWriteOutput is returned when the output cannot be written
	ErrWriteOutput = errors.New("writing output")
)

// LineError reports the input line that stopped a run.
type LineError struct {
	// Line is the 1-based input line number
	Line int
	// Text is the line after trimming
	Text string
	// Err is the parse or evaluation error
	Err error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Result counts what a run saw.
type Result struct {
	// Lines is the number of input lines read, blank ones included
	Lines int
	// Parsed is the number of non-blank lines parsed
	Parsed int
	// Matched is the number of rows kept and written
	Matched int
	// Skipped is the number of parsed values that were not tuples or lists
	Skipped int
}

// Run reads literal rows from r and writes the rows f keeps to w, one
// Repr per line, in input order.
//
// Each line is trimmed and has trailing commas removed before parsing.
// Blank lines are ignored. The first line that does not parse stops the run
// with a *LineError and nothing is written.
func Run(ctx context.Context, r io.Reader, w io.Writer, f *Filter) (*Result, error) {
	if f == nil {
		f = DefaultFilter()
	}

	result := &Result{}
	var kept []literal.Value

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Lines++

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		text = strings.TrimRight(text, ",")

		v, err := literal.Parse(text)
		if err != nil {
			return result, &LineError{Line: result.Lines, Text: text, Err: err}
		}
		result.Parsed++

		keep, sequence, err := f.Match(v)
		if err != nil {
			return result, &LineError{Line: result.Lines, Text: text, Err: err}
		}
		if !sequence {
			result.Skipped++
			logger.Debug("skipping non-sequence row",
				slog.Int("line", result.Lines),
				slog.String("kind", v.Kind().String()),
			)
			continue
		}
		if keep {
			kept = append(kept, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("%w: %w", ErrReadInput, err)
	}

	bw := bufio.NewWriter(w)
	for _, v := range kept {
		if _, err := bw.WriteString(literal.Repr(v) + "\n"); err != nil {
			return result, fmt.Errorf("%w: %w", ErrWriteOutput, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return result, fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}

	result.Matched = len(kept)
	return result, nil
}

// RunFiles runs the filter from inputPath to outputPath. The output file is
// created or truncated only once the whole input has been processed, so a
// failed run leaves an existing output untouched.
func RunFiles(ctx context.Context, inputPath, outputPath string, f *Filter) (*Result, error) {
	if f == nil {
		f = DefaultFilter()
	}
	runCtx := logger.RunContext{Command: "extract", Stage: "filter"}
	logger.LogRunStart(runCtx,
		slog.String("input", inputPath),
		slog.String("output", outputPath),
		slog.String("expression", f.Expression()),
		slog.String("marker", f.Marker()),
	)
	start := time.Now()

	in, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			logger.Warn("failed to close input file", slog.String("error", closeErr.Error()))
		}
	}()

	var buf bytes.Buffer
	result, err := Run(ctx, in, &buf, f)
	if err != nil {
		var lineErr *LineError
		if errors.As(err, &lineErr) {
			logger.LogError("row filter stopped", logger.ErrorContext{
				Command:     "extract",
				Stage:       "parse",
				Err:         err,
				RecordIndex: -1,
				Line:        lineErr.Line,
			})
		}
		return result, err
	}

	if err := os.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
		return result, fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}

	logger.LogRunEnd(runCtx, logger.RunSummary{
		Status:    "success",
		Processed: result.Parsed,
		Succeeded: result.Matched,
		Duration:  time.Since(start),
	})
	return result, nil
}
