// Package config loads the optional recoverdata configuration file
// (JSON or YAML), validates it against the embedded schema and converts it
// to typed Settings.
package config

import (
	"github.com/impavidox/Gestionale/internal/extract"
	"github.com/impavidox/Gestionale/internal/httpconfig"
)

// Default migration range.
const (
	DefaultStart = 3
	DefaultEnd   = 3
)

// Settings is the typed configuration used by the commands.
type Settings struct {
	Extract ExtractSettings
	Migrate MigrateSettings
	Logging LoggingSettings
}

// ExtractSettings configures the row filter.
type ExtractSettings struct {
	Input      string
	Output     string
	Marker     string
	Expression string
}

// MigrateSettings configures the member migration.
type MigrateSettings struct {
	// Source configures the read endpoint; an empty endpoint selects the module default
	Source httpconfig.BaseConfig
	// Target configures the write endpoint
	Target TargetSettings
	Start  int
	End    int
	// Script is the path of an optional JavaScript transform hook
	Script string
	// ScriptSource is an inline hook, exclusive with Script
	ScriptSource string
	// OnScriptError is the hook failure policy: fail, skip or log
	OnScriptError string
	DryRun        bool
}

// TargetSettings configures the write endpoint.
type TargetSettings struct {
	httpconfig.BaseConfig
	SuccessCodes []int
}

// LoggingSettings configures the logger.
type LoggingSettings struct {
	Level  string
	Format string
	File   string
}

// Defaults returns the settings used when no configuration file is given.
func Defaults() *Settings {
	return &Settings{
		Extract: ExtractSettings{
			Input:      extract.DefaultInputPath,
			Output:     extract.DefaultOutputPath,
			Marker:     extract.DefaultMarker,
			Expression: extract.DefaultExpression,
		},
		Migrate: MigrateSettings{
			Start: DefaultStart,
			End:   DefaultEnd,
		},
		Logging: LoggingSettings{
			Level: "info",
		},
	}
}

// Load parses, validates and converts the configuration file at path.
// Settings is nil unless the Result is valid.
func Load(path string) (*Settings, *Result) {
	result := ParseFile(path)
	if !result.IsValid() {
		return nil, result
	}
	return Convert(result.Data), result
}
