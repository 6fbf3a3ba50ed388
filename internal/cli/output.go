package cli

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/impavidox/Gestionale/internal/config"
	"github.com/impavidox/Gestionale/internal/extract"
	"github.com/impavidox/Gestionale/pkg/socio"
)

// OutputOptions configures CLI output behavior.
type OutputOptions struct {
	Verbose bool
	Quiet   bool
}

// PrintExtractResult prints the row filter summary line.
func PrintExtractResult(w io.Writer, result *extract.Result, marker, outputPath string, opts OutputOptions) {
	if result == nil {
		return
	}
	fmt.Fprintf(w, "Found %d rows with '%s' and saved to %s\n", result.Matched, marker, outputPath)
	if opts.Verbose {
		fmt.Fprintf(w, "  Lines read: %d\n", result.Lines)
		fmt.Fprintf(w, "  Rows parsed: %d\n", result.Parsed)
		if result.Skipped > 0 {
			fmt.Fprintf(w, "  Non-sequence rows skipped: %d\n", result.Skipped)
		}
	}
}

// PrintMigrationSummary prints the counters of a finished migration and,
// in verbose mode, the failed records.
func PrintMigrationSummary(w io.Writer, result *socio.MigrationResult, duration time.Duration, opts OutputOptions) {
	if result == nil || opts.Quiet {
		return
	}

	fmt.Fprintln(w)
	switch result.Status {
	case "success":
		fmt.Fprintln(w, "✓ Migration completed")
	case "partial":
		fmt.Fprintln(w, "⚠ Migration completed with failures")
	default:
		fmt.Fprintln(w, "✗ Migration failed")
	}
	fmt.Fprintf(w, "  Range: %d-%d\n", result.Start, result.End)
	fmt.Fprintf(w, "  Fetched: %d\n", result.Fetched)
	if result.DryRun {
		fmt.Fprintln(w, "  Created: 0 (dry-run, nothing was sent)")
	} else {
		fmt.Fprintf(w, "  Created: %d\n", result.Created)
	}
	if result.Failed > 0 {
		fmt.Fprintf(w, "  Failed: %d\n", result.Failed)
	}
	if result.Skipped > 0 {
		fmt.Fprintf(w, "  Skipped: %d\n", result.Skipped)
	}
	if opts.Verbose {
		fmt.Fprintf(w, "  Duration: %v\n", duration.Round(time.Millisecond))
		for _, f := range result.Failures {
			status := "-"
			if f.StatusCode > 0 {
				status = fmt.Sprintf("%d", f.StatusCode)
			}
			category := f.Category
			if f.Transient {
				category += ", transient"
			}
			fmt.Fprintf(w, "    #%d %s [%s %s] %s\n", f.Index, f.Name, status, category, truncate(f.Message, 120))
		}
	}
}

// PrintConfigSummary prints the effective settings.
func PrintConfigSummary(w io.Writer, s *config.Settings) {
	if s == nil {
		return
	}
	fmt.Fprintf(w, "  Extract: %s -> %s (marker %q)\n", s.Extract.Input, s.Extract.Output, s.Extract.Marker)
	fmt.Fprintf(w, "  Migrate: records %d-%d\n", s.Migrate.Start, s.Migrate.End)
	if s.Migrate.Source.Endpoint != "" {
		fmt.Fprintf(w, "    Source: %s\n", s.Migrate.Source.Endpoint)
	}
	if s.Migrate.Target.Endpoint != "" {
		fmt.Fprintf(w, "    Target: %s\n", s.Migrate.Target.Endpoint)
	}
	if len(s.Migrate.Target.Headers) > 0 {
		printHeaderNames(w, s.Migrate.Target.Headers)
	}
	if s.Migrate.Script != "" {
		fmt.Fprintf(w, "    Script: %s\n", s.Migrate.Script)
	}
}

// printHeaderNames prints sorted header names; values may hold credentials.
func printHeaderNames(w io.Writer, headers map[string]string) {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(w, "    Target headers: %v\n", names)
}
