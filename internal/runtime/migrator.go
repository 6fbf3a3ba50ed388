// Package runtime runs a member migration: it fetches a range of source
// records, maps each one and posts it to the target API.
package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/impavidox/Gestionale/internal/logger"
	"github.com/impavidox/Gestionale/internal/modules/filter"
	"github.com/impavidox/Gestionale/internal/modules/input"
	"github.com/impavidox/Gestionale/internal/modules/output"
	"github.com/impavidox/Gestionale/pkg/socio"
)

const commandMigrate = "migrate"

// Migrator orchestrates a migration: read, transform, write.
//
// The read is all-or-nothing and happens before any write. Writes are
// independent: a failed record is reported and the batch continues.
// Nothing is retried and reruns post the same records again.
type Migrator struct {
	source input.Module
	hook   filter.RecordHook
	target output.Module
	out    io.Writer
	dryRun bool
}

// NewMigrator creates a migrator.
//
// Parameters:
//   - source: fetches the source records
//   - hook: optional per-record transformation applied after the mapping (can be nil)
//   - target: receives one request per record; may be nil in dry-run
//   - out: receives the console report; nil means os.Stdout
//   - dryRun: if true, prints the bodies instead of posting them
func NewMigrator(source input.Module, hook filter.RecordHook, target output.Module, out io.Writer, dryRun bool) *Migrator {
	if out == nil {
		out = os.Stdout
	}
	return &Migrator{
		source: source,
		hook:   hook,
		target: target,
		out:    out,
		dryRun: dryRun,
	}
}

// Run fetches the records in [start, end] and migrates them one by one.
//
// A non-nil error means the run did not reach the write phase (invalid
// modules or range, fetch failure) or was canceled. Per-record write
// failures are not errors; they are counted in the result.
func (m *Migrator) Run(ctx context.Context, start, end int) (*socio.MigrationResult, error) {
	startedAt := time.Now()
	result := &socio.MigrationResult{
		Status: StatusError,
		Start:  start,
		End:    end,
		DryRun: m.dryRun,
	}
	runCtx := logger.RunContext{Command: commandMigrate, DryRun: m.dryRun}

	if err := m.validate(); err != nil {
		logger.LogError("migration not started", logger.ErrorContext{
			Command:     commandMigrate,
			ErrorCode:   ErrCodeInvalidInput,
			Err:         err,
			RecordIndex: -1,
		})
		return result, err
	}

	logger.LogRunStart(runCtx, slog.Int("start", start), slog.Int("end", end))
	if m.target != nil {
		defer m.closeModule("output", m.target)
	}

	records, err := m.fetch(ctx, input.Range{Start: start, End: end})
	m.closeModule("input", m.source)
	if err != nil {
		m.logEnd(runCtx, result, startedAt)
		return result, err
	}
	result.Fetched = len(records)

	writeCtx := runCtx
	writeCtx.Stage = "write"
	logger.LogStageStart(writeCtx)
	writeStart := time.Now()

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			logger.LogStageEnd(writeCtx, i, time.Since(writeStart), err)
			m.logEnd(runCtx, result, startedAt)
			return result, fmt.Errorf("migration interrupted at record %d: %w", i, err)
		}
		m.migrateRecord(ctx, i, record, result)
	}
	logger.LogStageEnd(writeCtx, len(records), time.Since(writeStart), nil)

	result.Status = resolveStatus(result.Created, result.Failed)
	m.logEnd(runCtx, result, startedAt)
	return result, nil
}

func (m *Migrator) validate() error {
	if m.source == nil {
		return ErrNilInputModule
	}
	if m.target == nil && !m.dryRun {
		return ErrNilOutputModule
	}
	return nil
}

// fetch reads the source range. Any failure aborts the run.
func (m *Migrator) fetch(ctx context.Context, rng input.Range) ([]map[string]interface{}, error) {
	stageCtx := logger.RunContext{Command: commandMigrate, Stage: "read", DryRun: m.dryRun}
	logger.LogStageStart(stageCtx)

	fetchStart := time.Now()
	records, err := m.source.Fetch(ctx, rng)
	duration := time.Since(fetchStart)
	logger.LogStageEnd(stageCtx, len(records), duration, err)

	if err != nil {
		logger.LogError("source fetch failed", logger.ErrorContext{
			Command:     commandMigrate,
			Stage:       "read",
			ErrorCode:   ErrCodeInputFailed,
			Err:         err,
			RecordIndex: -1,
			Duration:    duration,
		})
		return nil, fmt.Errorf("fetching source records: %w", err)
	}
	return records, nil
}

// migrateRecord maps, optionally scripts, and writes one record, updating result.
func (m *Migrator) migrateRecord(ctx context.Context, index int, record map[string]interface{}, result *socio.MigrationResult) {
	target := filter.TransformRecord(socio.SourceRecord(record))
	name := target.DisplayName()

	var body interface{} = target
	if m.hook != nil {
		mapped, err := filter.ToMap(target)
		if err == nil {
			mapped, err = m.hook.Apply(ctx, index, mapped)
		}
		if errors.Is(err, filter.ErrRecordSkipped) {
			result.Skipped++
			m.printf("⚠ Skipped: %s\n", name)
			return
		}
		if err != nil {
			m.printf("Creating socio: %s ...\n", name)
			m.recordFailure(index, name, ErrCodeScriptFailed, err, result)
			return
		}
		body = mapped
	}

	m.printf("Creating socio: %s ...\n", name)

	if m.dryRun {
		payload, err := json.MarshalIndent(body, "", "  ")
		if err != nil {
			m.recordFailure(index, name, ErrCodeOutputFailed, err, result)
			return
		}
		m.printf("%s\n", payload)
		return
	}

	if _, err := m.target.Send(ctx, body); err != nil {
		m.recordFailure(index, name, ErrCodeOutputFailed, err, result)
		return
	}

	result.Created++
	m.printf("✅ Created successfully\n")
}

func (m *Migrator) recordFailure(index int, name, code string, err error, result *socio.MigrationResult) {
	failure := buildRecordFailure(index, name, err)
	result.Failed++
	result.Failures = append(result.Failures, failure)

	if failure.StatusCode > 0 {
		m.printf("❌ Error %d: %s\n", failure.StatusCode, failure.Message)
	} else {
		m.printf("❌ Error: %s\n", failure.Message)
	}

	logger.LogError("record not migrated", logger.ErrorContext{
		Command:     commandMigrate,
		Stage:       "write",
		ErrorCode:   code,
		Err:         err,
		Category:    failure.Category,
		RecordIndex: index,
		HTTPStatus:  failure.StatusCode,
	})
}

func (m *Migrator) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(m.out, format, args...); err != nil {
		logger.Warn("failed to write report line", slog.String("error", err.Error()))
	}
}

func (m *Migrator) logEnd(runCtx logger.RunContext, result *socio.MigrationResult, startedAt time.Time) {
	logger.LogRunEnd(runCtx, logger.RunSummary{
		Status:    result.Status,
		Processed: result.Fetched,
		Succeeded: result.Created,
		Failed:    result.Failed,
		Skipped:   result.Skipped,
		Duration:  time.Since(startedAt),
	})
}

// moduleCloser interface for modules that can be closed.
type moduleCloser interface {
	Close() error
}

// closeModule closes a module and logs any error.
func (m *Migrator) closeModule(moduleName string, c moduleCloser) {
	if err := c.Close(); err != nil {
		logger.Warn("failed to close module",
			slog.String("command", commandMigrate),
			slog.String("module", moduleName),
			slog.String("error", err.Error()),
		)
	}
}
