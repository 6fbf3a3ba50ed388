package config

import (
	"encoding/json"

	"github.com/impavidox/Gestionale/internal/httpconfig"
)

// Convert overlays validated configuration data on Defaults().
// Keys that are absent or of an unexpected type keep their default.
//
// The configuration has this structure:
//
//	{
//	  "extract": {"input": "...", "output": "...", "marker": "EE", "expression": "..."},
//	  "migrate": {
//	    "source": {"endpoint": "...", "timeoutMs": 30000, "headers": {...}},
//	    "target": {"endpoint": "...", "timeoutMs": 30000, "headers": {...}, "successCodes": [200]},
//	    "start": 3, "end": 3, "script": "hook.js", "dryRun": false
//	  },
//	  "logging": {"level": "info", "format": "human", "file": "run.log"}
//	}
func Convert(data map[string]interface{}) *Settings {
	s := Defaults()
	if data == nil {
		return s
	}

	if ex, ok := data["extract"].(map[string]interface{}); ok {
		setString(ex, "input", &s.Extract.Input)
		setString(ex, "output", &s.Extract.Output)
		setString(ex, "marker", &s.Extract.Marker)
		setString(ex, "expression", &s.Extract.Expression)
	}

	if mg, ok := data["migrate"].(map[string]interface{}); ok {
		convertMigrate(mg, &s.Migrate)
	}

	if lg, ok := data["logging"].(map[string]interface{}); ok {
		setString(lg, "level", &s.Logging.Level)
		setString(lg, "format", &s.Logging.Format)
		setString(lg, "file", &s.Logging.File)
	}

	return s
}

func convertMigrate(mg map[string]interface{}, m *MigrateSettings) {
	if src, ok := mg["source"].(map[string]interface{}); ok {
		m.Source = httpconfig.ExtractBaseConfig(normalizeNumbers(src))
	}
	if tgt, ok := mg["target"].(map[string]interface{}); ok {
		tgt = normalizeNumbers(tgt)
		m.Target.BaseConfig = httpconfig.ExtractBaseConfig(tgt)
		m.Target.SuccessCodes = httpconfig.ExtractIntSlice(tgt, "successCodes")
	}
	setInt(mg, "start", &m.Start)
	setInt(mg, "end", &m.End)
	setString(mg, "script", &m.Script)
	setString(mg, "scriptSource", &m.ScriptSource)
	setString(mg, "onScriptError", &m.OnScriptError)
	if v, ok := mg["dryRun"].(bool); ok {
		m.DryRun = v
	}
}

func setString(m map[string]interface{}, key string, dst *string) {
	if v, ok := m[key].(string); ok {
		*dst = v
	}
}

func setInt(m map[string]interface{}, key string, dst *int) {
	if n, ok := toInt(m[key]); ok {
		*dst = n
	}
}

// normalizeNumbers converts json.Number values (top level and in lists)
// to float64 so the httpconfig extractors see plain JSON numbers.
func normalizeNumbers(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = normalizeNumber(v)
	}
	return out
}

func normalizeNumber(v interface{}) interface{} {
	switch n := v.(type) {
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return v
	case []interface{}:
		items := make([]interface{}, len(n))
		for i, item := range n {
			items[i] = normalizeNumber(item)
		}
		return items
	default:
		return v
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := normalizeNumber(v).(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
