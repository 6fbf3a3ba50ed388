package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile reads, parses and validates a configuration file.
// The format is taken from the file extension (.json, .yaml, .yml) and
// otherwise detected from the content.
func ParseFile(filepath string) *Result {
	result := &Result{FilePath: filepath}

	content, err := os.ReadFile(filepath)
	if err != nil {
		result.ParseErrors = append(result.ParseErrors, ParseError{
			Path:    filepath,
			Message: fmt.Sprintf("failed to read file: %v", err),
			Type:    ErrorTypeIO,
		})
		return result
	}

	parsed := ParseString(string(content), DetectFormat(filepath))
	parsed.FilePath = filepath
	for i := range parsed.ParseErrors {
		if parsed.ParseErrors[i].Path == "" {
			parsed.ParseErrors[i].Path = filepath
		}
	}
	return parsed
}

// ParseString parses and validates configuration content.
// If format is empty, it is detected from the content.
func ParseString(content string, format string) *Result {
	result := &Result{Format: format}

	if format == "" {
		switch {
		case IsJSON(content):
			format = FormatJSON
		case IsYAML(content):
			format = FormatYAML
		default:
			result.ParseErrors = append(result.ParseErrors, ParseError{
				Message: "unable to detect configuration format: not valid JSON or YAML",
				Type:    ErrorTypeFormat,
			})
			return result
		}
		result.Format = format
	}

	var (
		data map[string]interface{}
		perr *ParseError
	)
	switch format {
	case FormatJSON:
		data, perr = parseJSON(content)
	case FormatYAML:
		data, perr = parseYAML(content)
	default:
		perr = &ParseError{Message: fmt.Sprintf("unsupported format: %s", format), Type: ErrorTypeFormat}
	}
	if perr != nil {
		result.ParseErrors = append(result.ParseErrors, *perr)
		return result
	}

	result.Data = data
	result.ValidationErrors = ValidateConfig(data)
	return result
}

// DetectFormat detects the configuration format from file extension.
// Returns "json", "yaml", or empty string if format cannot be detected.
func DetectFormat(filepath string) string {
	switch strings.ToLower(path.Ext(filepath)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// IsJSON checks if the content appears to be JSON format.
func IsJSON(content string) bool {
	content = strings.TrimSpace(content)
	return strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[")
}

// IsYAML checks if the content appears to be valid YAML.
// JSON is also valid YAML, so this may return true for JSON content.
func IsYAML(content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	var data interface{}
	err := yaml.Unmarshal([]byte(content), &data)
	return err == nil && data != nil
}

// parseJSON decodes a JSON object. Numbers stay json.Number so integer
// fields are validated as integers.
func parseJSON(content string) (map[string]interface{}, *ParseError) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Message: "empty content: expected JSON object", Type: ErrorTypeSyntax}
	}

	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()

	var data interface{}
	if err := dec.Decode(&data); err != nil {
		return nil, jsonParseError(err, content)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Message: "unexpected data after JSON object", Type: ErrorTypeSyntax}
	}

	dataMap, ok := data.(map[string]interface{})
	if !ok {
		return nil, &ParseError{
			Message: fmt.Sprintf("invalid configuration: expected JSON object, got %s", typeName(data)),
			Type:    ErrorTypeFormat,
		}
	}
	return dataMap, nil
}

// jsonParseError extracts location information from a JSON decoding error.
func jsonParseError(err error, content string) *ParseError {
	parseErr := &ParseError{Message: err.Error(), Type: ErrorTypeSyntax}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		parseErr.Line, parseErr.Column = offsetToLineColumn(content, syntaxErr.Offset)
		parseErr.Message = fmt.Sprintf("JSON syntax error: %s", syntaxErr.Error())
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		parseErr.Line, parseErr.Column = offsetToLineColumn(content, int64(len(content)))
		parseErr.Message = "JSON syntax error: unexpected end of input"
	}
	return parseErr
}

// offsetToLineColumn converts a byte offset to line and column numbers (1-based).
func offsetToLineColumn(content string, offset int64) (line, column int) {
	line, column = 1, 1
	for i := int64(0); i < offset && i < int64(len(content)); i++ {
		if content[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}

// parseYAML decodes a YAML mapping.
func parseYAML(content string) (map[string]interface{}, *ParseError) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Message: "empty content: expected YAML document", Type: ErrorTypeSyntax}
	}

	var node yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader([]byte(content)))
	if err := dec.Decode(&node); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Message: "empty content: expected YAML document", Type: ErrorTypeSyntax}
		}
		return nil, yamlParseError(err)
	}

	var data interface{}
	if err := node.Decode(&data); err != nil {
		return nil, yamlParseError(err)
	}

	dataMap, ok := data.(map[string]interface{})
	if !ok {
		pe := &ParseError{
			Message: fmt.Sprintf("invalid configuration: expected YAML mapping, got %s", typeName(data)),
			Type:    ErrorTypeFormat,
		}
		if len(node.Content) > 0 {
			pe.Line, pe.Column = node.Content[0].Line, node.Content[0].Column
		}
		return nil, pe
	}
	return dataMap, nil
}

// yamlParseError extracts the line number yaml.v3 embeds in its messages
// ("yaml: line X: ...").
func yamlParseError(err error) *ParseError {
	parseErr := &ParseError{Message: err.Error(), Type: ErrorTypeSyntax}

	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		parseErr.Message = fmt.Sprintf("YAML type error: %s", strings.Join(typeErr.Errors, "; "))
	}

	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
		parseErr.Line = line
	}
	return parseErr
}

func typeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, int, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
