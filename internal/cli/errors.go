// Package cli formats command results and errors for the terminal.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/impavidox/Gestionale/internal/config"
	"github.com/impavidox/Gestionale/internal/extract"
)

// PrintParseErrors prints configuration parse errors.
func PrintParseErrors(w io.Writer, errs []config.ParseError, verbose bool) {
	fmt.Fprintln(w, "✗ Parse errors:")
	for _, err := range errs {
		printSingleParseError(w, err, verbose)
	}
}

// printSingleParseError prints a single parse error with location information.
func printSingleParseError(w io.Writer, err config.ParseError, verbose bool) {
	location := formatErrorLocation(err.Path, err.Line, err.Column)

	if location != "" {
		fmt.Fprintf(w, "  %s: %s\n", location, err.Message)
	} else {
		fmt.Fprintf(w, "  %s\n", err.Message)
	}

	if verbose && err.Type != "" {
		fmt.Fprintf(w, "    Type: %s\n", err.Type)
	}
}

// formatErrorLocation formats the error location string (path:line:column).
func formatErrorLocation(path string, line, column int) string {
	if path == "" {
		return ""
	}

	location := path
	if line > 0 {
		location += fmt.Sprintf(":%d", line)
		if column > 0 {
			location += fmt.Sprintf(":%d", column)
		}
	}
	return location
}

// PrintValidationErrors prints configuration validation errors.
func PrintValidationErrors(w io.Writer, errs []config.ValidationError, verbose, quiet bool) {
	fmt.Fprintln(w, "✗ Validation errors:")
	for _, err := range errs {
		path := err.Path
		if path == "" {
			path = "/"
		}
		if verbose {
			fmt.Fprintf(w, "  %s:\n", path)
			fmt.Fprintf(w, "    Message: %s\n", err.Message)
			if err.Type != "" {
				fmt.Fprintf(w, "    Type: %s\n", err.Type)
			}
			continue
		}
		fmt.Fprintf(w, "  %s: %s\n", path, truncate(err.Message, 80))
	}
	if !quiet && !verbose {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Hint: Use --verbose for detailed error information")
	}
}

// PrintLineError prints a malformed input row. path locates the input file.
func PrintLineError(w io.Writer, path string, err error, verbose bool) {
	var lineErr *extract.LineError
	if !errors.As(err, &lineErr) {
		fmt.Fprintf(w, "✗ %v\n", err)
		return
	}

	fmt.Fprintln(w, "✗ Parse errors:")
	fmt.Fprintf(w, "  %s: %v\n", formatErrorLocation(path, lineErr.Line, 0), lineErr.Err)
	if verbose {
		fmt.Fprintf(w, "    Line: %s\n", truncate(lineErr.Text, 120))
	}
}

// PrintError prints a one-line failure message.
func PrintError(w io.Writer, msg string, err error) {
	if err == nil {
		fmt.Fprintf(w, "✗ %s\n", msg)
		return
	}
	fmt.Fprintf(w, "✗ %s: %v\n", msg, err)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
