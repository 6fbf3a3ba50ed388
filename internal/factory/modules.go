// Package factory builds the migration modules from typed settings.
//
// Construction errors are configuration errors: an invalid endpoint, an
// unsupported method or a script that does not compile stop the command
// before any request is made.
package factory

import (
	"errors"
	"fmt"
	"io"

	"github.com/impavidox/Gestionale/internal/config"
	"github.com/impavidox/Gestionale/internal/modules/filter"
	"github.com/impavidox/Gestionale/internal/modules/input"
	"github.com/impavidox/Gestionale/internal/modules/output"
	"github.com/impavidox/Gestionale/internal/runtime"
)

// ErrInvalidModuleConfig marks every construction failure.
var ErrInvalidModuleConfig = errors.New("invalid module configuration")

// CreateInputModule creates the source reader.
func CreateInputModule(cfg config.MigrateSettings) (input.Module, error) {
	source := cfg.Source
	module, err := input.NewLibroSocio(&source)
	if err != nil {
		return nil, fmt.Errorf("%w: source: %w", ErrInvalidModuleConfig, err)
	}
	return module, nil
}

// CreateRecordHook creates the script hook from a script file or inline
// source, or returns nil when neither is set. The failure policy is checked
// even without a script.
func CreateRecordHook(cfg config.MigrateSettings) (filter.RecordHook, error) {
	if _, err := filter.ParseOnError(cfg.OnScriptError); err != nil {
		return nil, fmt.Errorf("%w: script: %w", ErrInvalidModuleConfig, err)
	}
	if cfg.Script == "" && cfg.ScriptSource == "" {
		return nil, nil
	}
	module, err := filter.NewScriptFromConfig(filter.ScriptConfig{
		Script:     cfg.ScriptSource,
		ScriptFile: cfg.Script,
		OnError:    cfg.OnScriptError,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: script: %w", ErrInvalidModuleConfig, err)
	}
	return module, nil
}

// CreateOutputModule creates the target writer. It returns nil in dry-run.
func CreateOutputModule(cfg config.MigrateSettings) (output.Module, error) {
	if cfg.DryRun {
		return nil, nil
	}
	target := output.Config{
		BaseConfig:   cfg.Target.BaseConfig,
		SuccessCodes: cfg.Target.SuccessCodes,
	}
	module, err := output.NewCreateSocio(&target)
	if err != nil {
		return nil, fmt.Errorf("%w: target: %w", ErrInvalidModuleConfig, err)
	}
	return module, nil
}

// NewMigrator creates all modules and wires them into a Migrator that
// reports to out. The range is checked here so a bad range never reaches
// the source.
func NewMigrator(cfg config.MigrateSettings, out io.Writer) (*runtime.Migrator, error) {
	if err := (input.Range{Start: cfg.Start, End: cfg.End}).Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModuleConfig, err)
	}

	source, err := CreateInputModule(cfg)
	if err != nil {
		return nil, err
	}
	hook, err := CreateRecordHook(cfg)
	if err != nil {
		_ = source.Close()
		return nil, err
	}
	target, err := CreateOutputModule(cfg)
	if err != nil {
		_ = source.Close()
		return nil, err
	}
	return runtime.NewMigrator(source, hook, target, out, cfg.DryRun), nil
}
