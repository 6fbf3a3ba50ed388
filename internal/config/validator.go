package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const schemaURL = "https://github.com/impavidox/Gestionale/schemas/recoverdata-schema.json"

//go:embed schema/recoverdata-schema.json
var embeddedSchema []byte

var messagePrinter = message.NewPrinter(language.English)

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaInitErr  error
)

// GetEmbeddedSchema returns the embedded configuration schema.
func GetEmbeddedSchema() []byte {
	return embeddedSchema
}

// getCompiledSchema returns the compiled JSON schema, compiling it on first use.
func getCompiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var schemaDoc interface{}
		if err := json.Unmarshal(embeddedSchema, &schemaDoc); err != nil {
			schemaInitErr = fmt.Errorf("failed to parse embedded schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, schemaDoc); err != nil {
			schemaInitErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}

		var err error
		compiledSchema, err = compiler.Compile(schemaURL)
		if err != nil {
			schemaInitErr = fmt.Errorf("failed to compile schema: %w", err)
		}
	})

	if schemaInitErr != nil {
		return nil, schemaInitErr
	}
	return compiledSchema, nil
}

// ValidateConfig validates parsed configuration data against the schema.
// An empty slice means the configuration is valid.
func ValidateConfig(data map[string]interface{}) []ValidationError {
	if data == nil {
		return []ValidationError{{Path: "/", Type: "required", Message: "configuration data is nil"}}
	}

	schema, err := getCompiledSchema()
	if err != nil {
		return []ValidationError{{Path: "/", Type: "schema", Message: fmt.Sprintf("failed to load schema: %v", err)}}
	}

	validationErr := schema.Validate(data)
	if validationErr == nil {
		return nil
	}

	var detailedErr *jsonschema.ValidationError
	if errors.As(validationErr, &detailedErr) {
		if errs := convertValidationErrors(detailedErr); len(errs) > 0 {
			return errs
		}
	}
	return []ValidationError{{Path: "/", Type: "validation", Message: validationErr.Error()}}
}

// convertValidationErrors flattens a jsonschema error tree into its leaves.
func convertValidationErrors(err *jsonschema.ValidationError) []ValidationError {
	if len(err.Causes) == 0 {
		return []ValidationError{{
			Path:    formatInstanceLocation(err.InstanceLocation),
			Type:    extractErrorType(err),
			Message: leafMessage(err),
		}}
	}

	var errs []ValidationError
	for _, cause := range err.Causes {
		errs = append(errs, convertValidationErrors(cause)...)
	}
	return errs
}

// leafMessage drops the "at '/path':" location prefix jsonschema adds,
// the path being reported separately.
func leafMessage(err *jsonschema.ValidationError) string {
	if err.ErrorKind != nil {
		return err.ErrorKind.LocalizedString(messagePrinter)
	}
	return err.Error()
}

// formatInstanceLocation formats the instance location as a JSON pointer.
func formatInstanceLocation(loc []string) string {
	if len(loc) == 0 {
		return "/"
	}
	return "/" + strings.Join(loc, "/")
}

// extractErrorType extracts a simplified error type from the validation error.
func extractErrorType(err *jsonschema.ValidationError) string {
	msg := strings.ToLower(leafMessage(err))

	switch {
	case strings.Contains(msg, "missing propert"):
		return "required"
	case strings.Contains(msg, "additional propert"), strings.Contains(msg, "not allowed"):
		return "additionalProperties"
	case strings.Contains(msg, "value must be one of"):
		return "enum"
	case strings.HasPrefix(msg, "got ") && strings.Contains(msg, "want"):
		return "type"
	case strings.Contains(msg, "minimum"), strings.Contains(msg, "maximum"),
		strings.Contains(msg, "must be >="), strings.Contains(msg, "must be <="):
		return "range"
	case strings.Contains(msg, "pattern"), strings.Contains(msg, "does not match"):
		return "pattern"
	default:
		return "validation"
	}
}
