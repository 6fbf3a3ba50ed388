// Package main provides the CLI entry point for recoverdata.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/impavidox/Gestionale/internal/cli"
	"github.com/impavidox/Gestionale/internal/config"
	"github.com/impavidox/Gestionale/internal/extract"
	"github.com/impavidox/Gestionale/internal/factory"
	"github.com/impavidox/Gestionale/internal/logger"
	"github.com/impavidox/Gestionale/internal/runtime"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
)

// Build information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}

// app holds the global flags and the effective settings of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	verbose    bool
	quiet      bool
	configPath string
	logFormat  string
	logFile    string

	settings *config.Settings
}

// run executes the command line and returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	logger.CloseLogFile()
	if err == nil {
		return ExitSuccess
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	// Flag and argument errors from cobra.
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitValidationError
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "recoverdata",
		Short: "recoverdata - recover member data from a dump and migrate it",
		Long: `recoverdata recovers the member data of the association.

extract filters a dump of literal rows (one tuple per line) and keeps the
rows whose second element is the marker.
migrate reads members from the member book API and creates each one on the
target API.

Examples:
  # Keep the 'EE' rows of input.txt in output_file.txt
  recoverdata extract

  # Migrate records 3 to 10 without sending anything
  recoverdata migrate --start 3 --end 10 --dry-run

  # Use a configuration file
  recoverdata -c recoverdata.yaml migrate`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Suppress non-error output")
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Configuration file (JSON or YAML)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: human or json")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "Also write JSON logs to this file")

	root.AddCommand(a.newExtractCmd())
	root.AddCommand(a.newMigrateCmd())
	root.AddCommand(a.newValidateCmd())
	root.AddCommand(a.newVersionCmd())
	return root
}

// setup loads the configuration file, if any, and configures the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	a.settings = config.Defaults()
	if a.configPath != "" {
		settings, result := config.Load(a.configPath)
		if len(result.ParseErrors) > 0 {
			cli.PrintParseErrors(a.stderr, result.ParseErrors, a.verbose)
			return exitWith(ExitParseError, errors.New("configuration parse failed"))
		}
		if len(result.ValidationErrors) > 0 {
			cli.PrintValidationErrors(a.stderr, result.ValidationErrors, a.verbose, a.quiet)
			return exitWith(ExitValidationError, errors.New("configuration validation failed"))
		}
		a.settings = settings
	}

	return a.configureLogging(cmd)
}

func (a *app) configureLogging(cmd *cobra.Command) error {
	logging := a.settings.Logging
	if cmd.Flags().Changed("log-format") {
		logging.Format = a.logFormat
	}
	if cmd.Flags().Changed("log-file") {
		logging.File = a.logFile
	}

	level, err := logger.ParseLevel(logging.Level)
	if err != nil {
		cli.PrintError(a.stderr, "invalid log level", err)
		return exitWith(ExitValidationError, err)
	}
	switch {
	case a.verbose:
		level = slog.LevelDebug
	case a.quiet:
		level = slog.LevelError
	}

	format, err := logger.ParseFormat(logging.Format)
	if err != nil {
		cli.PrintError(a.stderr, "invalid log format", err)
		return exitWith(ExitValidationError, err)
	}

	logger.SetOutput(a.stderr)
	logger.SetLevelAndFormat(level, format)
	if logging.File != "" {
		if err := logger.SetLogFile(logging.File, level, format); err != nil {
			cli.PrintError(a.stderr, "cannot open log file", err)
			return exitWith(ExitRuntimeError, err)
		}
	}
	return nil
}

func (a *app) newExtractCmd() *cobra.Command {
	var inputPath, outputPath, marker, where string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Filter the rows of a literal dump",
		Long: `Read input rows written as literal tuples, one per line, and write the
rows matching the filter to the output file.

By default a row is kept when its second element equals 'EE'. --where
replaces the predicate with an expression over 'row' and 'marker'.

Exit codes:
  0 - Rows filtered and saved
  1 - Invalid expression or configuration
  2 - Malformed input line or configuration syntax
  3 - Input or output file error

Examples:
  recoverdata extract
  recoverdata extract --input dump.txt --output members.txt --marker EE
  recoverdata extract --where 'len(row) > 2 && row[2] == nil'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := a.settings.Extract
			if cmd.Flags().Changed("input") {
				settings.Input = inputPath
			}
			if cmd.Flags().Changed("output") {
				settings.Output = outputPath
			}
			if cmd.Flags().Changed("marker") {
				settings.Marker = marker
			}
			if cmd.Flags().Changed("where") {
				settings.Expression = where
			}
			return a.runExtract(cmd.Context(), settings)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", extract.DefaultInputPath, "Input file of literal rows")
	cmd.Flags().StringVar(&outputPath, "output", extract.DefaultOutputPath, "Output file for the kept rows")
	cmd.Flags().StringVar(&marker, "marker", extract.DefaultMarker, "Value compared with the second element")
	cmd.Flags().StringVar(&where, "where", "", "Row predicate expression (expr-lang)")
	return cmd
}

func (a *app) runExtract(ctx context.Context, settings config.ExtractSettings) error {
	f, err := extract.NewFilter(extract.FilterConfig{
		Marker:     settings.Marker,
		Expression: settings.Expression,
	})
	if err != nil {
		cli.PrintError(a.stderr, "invalid filter", err)
		return exitWith(ExitValidationError, err)
	}

	result, err := extract.RunFiles(ctx, settings.Input, settings.Output, f)
	if err != nil {
		var lineErr *extract.LineError
		if errors.As(err, &lineErr) {
			cli.PrintLineError(a.stderr, settings.Input, err, a.verbose)
			return exitWith(ExitParseError, err)
		}
		cli.PrintError(a.stderr, "extract failed", err)
		return exitWith(ExitRuntimeError, err)
	}

	cli.PrintExtractResult(a.stdout, result, f.Marker(), settings.Output, cli.OutputOptions{Verbose: a.verbose, Quiet: a.quiet})
	return nil
}

func (a *app) newMigrateCmd() *cobra.Command {
	var start, end int
	var dryRun, failOnError bool
	var script, onScriptError string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy members from the member book to the target API",
		Long: `Fetch the member records in [start, end] from the member book API, map
each one to the target format and create it on the target API.

The fetch is all-or-nothing. Each write is independent: failures are
printed and counted, and the remaining records are still sent.
A failing script follows --on-script-error: fail counts the record as
failed, skip drops it and log sends it unchanged.
Nothing is retried; rerunning the same range creates the members again.

Exit codes:
  0 - Migration finished (some records may have failed)
  1 - Invalid range, endpoint, script or configuration
  2 - Configuration syntax error
  3 - Source fetch failed, or records failed with --fail-on-error

Examples:
  recoverdata migrate
  recoverdata migrate --start 3 --end 50
  recoverdata migrate --dry-run --script transform.js
  recoverdata migrate --script transform.js --on-script-error skip`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := a.settings.Migrate
			if cmd.Flags().Changed("start") {
				settings.Start = start
			}
			if cmd.Flags().Changed("end") {
				settings.End = end
			}
			if cmd.Flags().Changed("dry-run") {
				settings.DryRun = dryRun
			}
			if cmd.Flags().Changed("script") {
				settings.Script = script
				settings.ScriptSource = ""
			}
			if cmd.Flags().Changed("on-script-error") {
				settings.OnScriptError = onScriptError
			}
			return a.runMigrate(cmd.Context(), settings, failOnError)
		},
	}

	cmd.Flags().IntVar(&start, "start", config.DefaultStart, "First record index to migrate")
	cmd.Flags().IntVar(&end, "end", config.DefaultEnd, "Last record index to migrate (inclusive)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the request bodies instead of sending them")
	cmd.Flags().StringVar(&script, "script", "", "JavaScript file defining transform(record)")
	cmd.Flags().StringVar(&onScriptError, "on-script-error", "", "Policy for records the script fails on: fail, skip or log (default fail)")
	cmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "Exit with code 3 when any record fails")
	return cmd
}

func (a *app) runMigrate(ctx context.Context, settings config.MigrateSettings, failOnError bool) error {
	if a.verbose && !a.quiet {
		cli.PrintConfigSummary(a.stderr, &config.Settings{Extract: a.settings.Extract, Migrate: settings})
	}

	migrator, err := factory.NewMigrator(settings, a.stdout)
	if err != nil {
		cli.PrintError(a.stderr, "invalid migration settings", err)
		return exitWith(ExitValidationError, err)
	}

	started := time.Now()
	result, err := migrator.Run(ctx, settings.Start, settings.End)
	opts := cli.OutputOptions{Verbose: a.verbose, Quiet: a.quiet}
	if err != nil {
		cli.PrintError(a.stderr, "migration failed", err)
		cli.PrintMigrationSummary(a.stderr, result, time.Since(started), opts)
		return exitWith(ExitRuntimeError, err)
	}

	cli.PrintMigrationSummary(a.stderr, result, time.Since(started), opts)
	if failOnError && result.Status != runtime.StatusSuccess {
		return exitWith(ExitRuntimeError, fmt.Errorf("%d of %d records failed", result.Failed, result.Fetched))
	}
	return nil
}

func (a *app) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a configuration file against the schema.

Supports both JSON and YAML formats. The format is auto-detected
based on file extension (.json, .yaml, .yml) or content.

Exit codes:
  0 - Configuration is valid
  1 - Validation errors (schema violations)
  2 - Parse errors (invalid JSON/YAML syntax)

Examples:
  recoverdata validate recoverdata.json
  recoverdata validate --verbose recoverdata.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.runValidate(args[0])
		},
	}
}

func (a *app) runValidate(path string) error {
	if !a.quiet {
		fmt.Fprintf(a.stdout, "Validating configuration: %s\n", path)
	}

	result := config.ParseFile(path)
	if len(result.ParseErrors) > 0 {
		cli.PrintParseErrors(a.stderr, result.ParseErrors, a.verbose)
		return exitWith(ExitParseError, errors.New("configuration parse failed"))
	}
	if len(result.ValidationErrors) > 0 {
		cli.PrintValidationErrors(a.stderr, result.ValidationErrors, a.verbose, a.quiet)
		return exitWith(ExitValidationError, errors.New("configuration validation failed"))
	}

	if !a.quiet {
		fmt.Fprintf(a.stdout, "✓ Configuration is valid (format: %s)\n", result.Format)
		if a.verbose {
			cli.PrintConfigSummary(a.stdout, config.Convert(result.Data))
		}
	}
	return nil
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version, commit hash, and build date information.",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "recoverdata %s\n", version)
			fmt.Fprintf(a.stdout, "  commit: %s\n", commit)
			fmt.Fprintf(a.stdout, "  built:  %s\n", buildDate)
		},
	}
}
