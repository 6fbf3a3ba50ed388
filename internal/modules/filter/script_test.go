package filter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newScript(t *testing.T, source string) *ScriptModule {
	t.Helper()
	m, err := NewScriptFromConfig(ScriptConfig{Script: source})
	if err != nil {
		t.Fatalf("NewScriptFromConfig() error = %v", err)
	}
	return m
}

func TestNewScriptFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name     string
		config   ScriptConfig
		wantCode string
	}{
		{"empty", ScriptConfig{Script: "   "}, ErrCodeScriptEmpty},
		{"neither set", ScriptConfig{}, ErrCodeScriptEmpty},
		{"both set", ScriptConfig{Script: "x", ScriptFile: "y.js"}, ErrCodeInvalidScriptFile},
		{"syntax error", ScriptConfig{Script: "function transform(r) {"}, ErrCodeCompilationFailed},
		{"missing transform", ScriptConfig{Script: "var x = 1;"}, ErrCodeMissingTransform},
		{"not a function", ScriptConfig{Script: "var transform = 42;"}, ErrCodeNotFunction},
		{"too long", ScriptConfig{Script: "//" + strings.Repeat("x", MaxScriptLength)}, ErrCodeScriptTooLong},
		{"path traversal", ScriptConfig{ScriptFile: "../secrets/transform.js"}, ErrCodeInvalidScriptFile},
		{"missing file", ScriptConfig{ScriptFile: "does-not-exist.js"}, ErrCodeScriptFileReadFailed},
		{"unknown onError", ScriptConfig{Script: "function transform(r) { return r; }", OnError: "retry"}, ErrCodeInvalidOnError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScriptFromConfig(tt.config)
			var scriptErr *ScriptError
			if !errors.As(err, &scriptErr) {
				t.Fatalf("expected *ScriptError, got %v", err)
			}
			if scriptErr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", scriptErr.Code, tt.wantCode)
			}
		})
	}
}

func TestScriptModule_Apply(t *testing.T) {
	m := newScript(t, `
		function transform(record) {
			record.nome = record.nome.toUpperCase();
			record.codice = "X-" + record.cognome;
			return record;
		}`)

	out, err := m.Apply(context.Background(), 0, map[string]interface{}{
		"nome":    "Mario",
		"cognome": "Rossi",
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if out["nome"] != "MARIO" {
		t.Errorf("nome = %v, want MARIO", out["nome"])
	}
	if out["codice"] != "X-Rossi" {
		t.Errorf("codice = %v, want X-Rossi", out["codice"])
	}
}

func TestScriptModule_ApplyNewObject(t *testing.T) {
	m := newScript(t, `function transform(r) { return {nome: r.nome, extra: 1}; }`)
	out, err := m.Apply(context.Background(), 0, map[string]interface{}{"nome": "Anna"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if out["nome"] != "Anna" {
		t.Errorf("nome = %v", out["nome"])
	}
	if _, ok := out["extra"]; !ok {
		t.Error("expected extra field")
	}
}

func TestScriptModule_ApplyErrors(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		wantCode string
	}{
		{"throws", `function transform(r) { throw new Error("bad record"); }`, ErrCodeExecutionFailed},
		{"returns null", `function transform(r) { return null; }`, ErrCodeInvalidResult},
		{"returns array", `function transform(r) { return [r]; }`, ErrCodeInvalidResult},
		{"returns string", `function transform(r) { return "x"; }`, ErrCodeInvalidResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newScript(t, tt.source)
			_, err := m.Apply(context.Background(), 4, map[string]interface{}{})
			var scriptErr *ScriptError
			if !errors.As(err, &scriptErr) {
				t.Fatalf("expected *ScriptError, got %v", err)
			}
			if scriptErr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", scriptErr.Code, tt.wantCode)
			}
			if scriptErr.RecordIndex != 4 {
				t.Errorf("RecordIndex = %d, want 4", scriptErr.RecordIndex)
			}
		})
	}
}

func TestScriptModule_ContextInterruptsLoop(t *testing.T) {
	m := newScript(t, `function transform(r) { while (true) {} }`)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := m.Apply(ctx, 0, map[string]interface{}{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestScriptModule_ApplyOnError(t *testing.T) {
	source := `function transform(r) {
		if (r.fail) { throw new Error("fail"); }
		r.seen = true;
		return r;
	}`

	tests := []struct {
		name        string
		onError     string
		wantSkipped bool
		wantErr     bool
	}{
		{"default fails", "", false, true},
		{"fail", OnErrorFail, false, true},
		{"skip", OnErrorSkip, true, true},
		{"log keeps input", OnErrorLog, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewScriptFromConfig(ScriptConfig{Script: source, OnError: tt.onError})
			if err != nil {
				t.Fatal(err)
			}

			out, err := m.Apply(context.Background(), 0, map[string]interface{}{"id": 1})
			if err != nil {
				t.Fatalf("Apply() on a passing record error = %v", err)
			}
			if out["seen"] != true {
				t.Errorf("seen = %v, want true", out["seen"])
			}

			out, err = m.Apply(context.Background(), 1, map[string]interface{}{"id": 2, "fail": true})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Apply() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := errors.Is(err, ErrRecordSkipped); got != tt.wantSkipped {
				t.Errorf("errors.Is(err, ErrRecordSkipped) = %v, want %v", got, tt.wantSkipped)
			}
			if tt.wantErr {
				var scriptErr *ScriptError
				if !errors.As(err, &scriptErr) || scriptErr.Code != ErrCodeExecutionFailed {
					t.Errorf("expected wrapped %s ScriptError, got %v", ErrCodeExecutionFailed, err)
				}
				return
			}
			if out["id"] != 2 {
				t.Errorf("id = %v, want 2", out["id"])
			}
		})
	}
}

func TestScriptModule_SkipDoesNotSwallowCancellation(t *testing.T) {
	m, err := NewScriptFromConfig(ScriptConfig{Script: `function transform(r) { while (true) {} }`, OnError: OnErrorSkip})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = m.Apply(ctx, 0, map[string]interface{}{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if errors.Is(err, ErrRecordSkipped) {
		t.Error("cancellation must not be reported as a skipped record")
	}
}

func TestParseOnError(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", OnErrorFail, false},
		{"fail", OnErrorFail, false},
		{"skip", OnErrorSkip, false},
		{"log", OnErrorLog, false},
		{"retry", "", true},
		{"SKIP", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOnError(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOnError(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidOnError) {
				t.Errorf("expected ErrInvalidOnError, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseOnError(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewScriptFromConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transform.js")
	if err := os.WriteFile(path, []byte(`function transform(r) { r.fromFile = 1; return r; }`), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := NewScriptFromConfig(ScriptConfig{ScriptFile: path})
	if err != nil {
		t.Fatalf("NewScriptFromConfig() error = %v", err)
	}
	out, err := m.Apply(context.Background(), 0, map[string]interface{}{})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if _, ok := out["fromFile"]; !ok {
		t.Error("expected fromFile field")
	}
}

func TestScriptModule_ImplementsInterfaces(t *testing.T) {
	var _ RecordHook = (*ScriptModule)(nil)
}
