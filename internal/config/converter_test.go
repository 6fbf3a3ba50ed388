package config

import (
	"reflect"
	"testing"

	"github.com/impavidox/Gestionale/internal/extract"
)

func TestDefaults(t *testing.T) {
	s := Defaults()
	if s.Extract.Input != "input.txt" || s.Extract.Output != "output_file.txt" || s.Extract.Marker != "EE" {
		t.Errorf("extract defaults = %+v", s.Extract)
	}
	if s.Extract.Expression != extract.DefaultExpression {
		t.Errorf("Expression = %q", s.Extract.Expression)
	}
	if s.Migrate.Start != 3 || s.Migrate.End != 3 {
		t.Errorf("range defaults = %d..%d, want 3..3", s.Migrate.Start, s.Migrate.End)
	}
	if s.Migrate.Source.Endpoint != "" || s.Migrate.Target.Endpoint != "" {
		t.Error("endpoints default to the module defaults")
	}
}

func TestLoad_JSON(t *testing.T) {
	s, result := Load("testdata/valid.json")
	if !result.IsValid() {
		t.Fatalf("unexpected errors: %v", result.AllErrors())
	}

	if s.Extract.Input != "dump.txt" || s.Extract.Output != "rows.txt" || s.Extract.Marker != "FF" {
		t.Errorf("extract = %+v", s.Extract)
	}
	if s.Extract.Expression != extract.DefaultExpression {
		t.Errorf("Expression = %q, want default", s.Extract.Expression)
	}

	m := s.Migrate
	if m.Source.Endpoint != "https://source.example.com/libro/0/{start}/{end}/2" || m.Source.TimeoutMs != 5000 {
		t.Errorf("source = %+v", m.Source)
	}
	if m.Target.Endpoint != "https://target.example.com/api/socio/createSocio" {
		t.Errorf("target endpoint = %q", m.Target.Endpoint)
	}
	if m.Target.Headers["X-Api-Key"] != "secret" {
		t.Errorf("target headers = %v", m.Target.Headers)
	}
	if !reflect.DeepEqual(m.Target.SuccessCodes, []int{200, 201}) {
		t.Errorf("SuccessCodes = %v", m.Target.SuccessCodes)
	}
	if m.Start != 10 || m.End != 20 || !m.DryRun {
		t.Errorf("migrate = %+v", m)
	}
	if s.Logging.Level != "debug" || s.Logging.Format != "json" {
		t.Errorf("logging = %+v", s.Logging)
	}
}

func TestLoad_YAML(t *testing.T) {
	s, result := Load("testdata/valid.yaml")
	if !result.IsValid() {
		t.Fatalf("unexpected errors: %v", result.AllErrors())
	}

	if s.Migrate.Start != 1 || s.Migrate.End != 50 {
		t.Errorf("range = %d..%d, want 1..50", s.Migrate.Start, s.Migrate.End)
	}
	if s.Migrate.Target.TimeoutMs != 10000 {
		t.Errorf("target timeout = %d", s.Migrate.Target.TimeoutMs)
	}
	if !reflect.DeepEqual(s.Migrate.Target.SuccessCodes, []int{200}) {
		t.Errorf("SuccessCodes = %v", s.Migrate.Target.SuccessCodes)
	}
	if s.Migrate.Script != "hooks/normalize.js" {
		t.Errorf("Script = %q", s.Migrate.Script)
	}
	if s.Migrate.OnScriptError != "skip" {
		t.Errorf("OnScriptError = %q, want skip", s.Migrate.OnScriptError)
	}
	if s.Logging.Level != "warn" || s.Logging.Format != "human" || s.Logging.File != "recoverdata.log" {
		t.Errorf("logging = %+v", s.Logging)
	}
	if s.Extract.Input != "input.txt" {
		t.Errorf("extract input should keep its default, got %q", s.Extract.Input)
	}
}

func TestLoad_Invalid(t *testing.T) {
	for _, file := range []string{"testdata/invalid-json.json", "testdata/schema-violation.json"} {
		s, result := Load(file)
		if s != nil {
			t.Errorf("%s: expected nil settings", file)
		}
		if result.IsValid() {
			t.Errorf("%s: expected errors", file)
		}
	}
}

func TestConvert_IgnoresMistypedValues(t *testing.T) {
	s := Convert(map[string]interface{}{
		"extract": map[string]interface{}{"marker": 12},
		"migrate": map[string]interface{}{"start": "x", "end": 4.5, "dryRun": "yes"},
	})
	want := Defaults()
	if s.Extract.Marker != want.Extract.Marker || s.Migrate.Start != want.Migrate.Start || s.Migrate.End != want.Migrate.End || s.Migrate.DryRun {
		t.Errorf("Convert() = %+v, want defaults", s)
	}
}

func TestConvert_InlineScript(t *testing.T) {
	s := Convert(map[string]interface{}{
		"migrate": map[string]interface{}{
			"scriptSource":  "function transform(r) { return r; }",
			"onScriptError": "log",
		},
	})
	if s.Migrate.ScriptSource != "function transform(r) { return r; }" {
		t.Errorf("ScriptSource = %q", s.Migrate.ScriptSource)
	}
	if s.Migrate.OnScriptError != "log" {
		t.Errorf("OnScriptError = %q, want log", s.Migrate.OnScriptError)
	}
	if s.Migrate.Script != "" {
		t.Errorf("Script = %q, want empty", s.Migrate.Script)
	}
}

func TestConvert_Nil(t *testing.T) {
	if !reflect.DeepEqual(Convert(nil), Defaults()) {
		t.Error("Convert(nil) should return the defaults")
	}
}
