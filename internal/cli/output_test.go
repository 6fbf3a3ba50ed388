package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/impavidox/Gestionale/internal/config"
	"github.com/impavidox/Gestionale/internal/extract"
	"github.com/impavidox/Gestionale/pkg/socio"
)

func TestPrintExtractResult(t *testing.T) {
	var buf bytes.Buffer
	PrintExtractResult(&buf, &extract.Result{Lines: 8, Parsed: 7, Matched: 3, Skipped: 1}, "EE", "output_file.txt", OutputOptions{})
	if got := buf.String(); got != "Found 3 rows with 'EE' and saved to output_file.txt\n" {
		t.Errorf("output = %q", got)
	}

	buf.Reset()
	PrintExtractResult(&buf, &extract.Result{Lines: 8, Parsed: 7, Matched: 3, Skipped: 1}, "EE", "out.txt", OutputOptions{Verbose: true})
	for _, want := range []string{"Lines read: 8", "Rows parsed: 7", "skipped: 1"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("verbose output missing %q: %q", want, buf.String())
		}
	}
}

func TestPrintMigrationSummary(t *testing.T) {
	result := &socio.MigrationResult{
		Status: "partial", Start: 3, End: 5, Fetched: 3, Created: 2, Failed: 1,
		Failures: []socio.RecordFailure{{Index: 1, Name: "Anna Bianchi", StatusCode: 500, Category: "server", Transient: true, Message: "boom"}},
	}

	var buf bytes.Buffer
	PrintMigrationSummary(&buf, result, time.Second, OutputOptions{Verbose: true})
	out := buf.String()
	for _, want := range []string{"⚠ Migration completed with failures", "Range: 3-5", "Fetched: 3", "Created: 2", "Failed: 1", "#1 Anna Bianchi [500 server, transient] boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	PrintMigrationSummary(&buf, result, time.Second, OutputOptions{Quiet: true})
	if buf.Len() != 0 {
		t.Errorf("quiet summary should be empty, got %q", buf.String())
	}

	buf.Reset()
	PrintMigrationSummary(&buf, &socio.MigrationResult{Status: "success", DryRun: true, Fetched: 1}, 0, OutputOptions{})
	if !strings.Contains(buf.String(), "dry-run") {
		t.Errorf("dry-run summary = %q", buf.String())
	}
	if strings.Contains(buf.String(), "Skipped") {
		t.Errorf("summary without skips should not list them: %q", buf.String())
	}

	buf.Reset()
	PrintMigrationSummary(&buf, &socio.MigrationResult{Status: "success", Fetched: 3, Created: 2, Skipped: 1}, 0, OutputOptions{})
	if !strings.Contains(buf.String(), "Skipped: 1") {
		t.Errorf("summary missing skipped count: %q", buf.String())
	}
}

func TestPrintParseErrors(t *testing.T) {
	var buf bytes.Buffer
	PrintParseErrors(&buf, []config.ParseError{
		{Path: "cfg.json", Line: 3, Column: 5, Message: "bad token", Type: config.ErrorTypeSyntax},
		{Message: "no location"},
	}, true)
	out := buf.String()
	for _, want := range []string{"cfg.json:3:5: bad token", "Type: syntax", "  no location"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintValidationErrors(t *testing.T) {
	errs := []config.ValidationError{{Path: "/migrate/start", Type: "range", Message: strings.Repeat("x", 100)}}

	var buf bytes.Buffer
	PrintValidationErrors(&buf, errs, false, false)
	if !strings.Contains(buf.String(), "/migrate/start: "+strings.Repeat("x", 77)+"...") {
		t.Errorf("compact output = %q", buf.String())
	}
	if !strings.Contains(buf.String(), "Hint:") {
		t.Error("expected the verbose hint")
	}

	buf.Reset()
	PrintValidationErrors(&buf, errs, true, false)
	if !strings.Contains(buf.String(), "Type: range") || strings.Contains(buf.String(), "Hint:") {
		t.Errorf("verbose output = %q", buf.String())
	}
}

func TestPrintLineError(t *testing.T) {
	var buf bytes.Buffer
	PrintLineError(&buf, "input.txt", &extract.LineError{Line: 4, Text: "(1, 'EE'", Err: errors.New("unexpected end of input")}, true)
	out := buf.String()
	if !strings.Contains(out, "input.txt:4: unexpected end of input") || !strings.Contains(out, "Line: (1, 'EE'") {
		t.Errorf("output = %q", out)
	}

	buf.Reset()
	PrintLineError(&buf, "input.txt", errors.New("plain"), false)
	if buf.String() != "✗ plain\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrintConfigSummary(t *testing.T) {
	s := config.Defaults()
	s.Migrate.Target.Headers = map[string]string{"X-Api-Key": "secret", "Accept": "json"}

	var buf bytes.Buffer
	PrintConfigSummary(&buf, s)
	out := buf.String()
	if !strings.Contains(out, "input.txt -> output_file.txt") || !strings.Contains(out, "records 3-3") {
		t.Errorf("summary = %q", out)
	}
	if strings.Contains(out, "secret") {
		t.Error("header values must not be printed")
	}
	if !strings.Contains(out, "[Accept X-Api-Key]") {
		t.Errorf("expected sorted header names, got %q", out)
	}
}
