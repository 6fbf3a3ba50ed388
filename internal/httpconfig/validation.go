package httpconfig

import (
	"fmt"
	"net/url"
	"slices"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// ValidateBaseConfig validates a BaseConfig.
// The endpoint must be an absolute http or https URL once its placeholders
// are filled, and may only use the placeholders listed in allowed.
func ValidateBaseConfig(config BaseConfig, requireEndpoint bool, allowed ...string) error {
	if config.Endpoint == "" {
		if requireEndpoint {
			return &ValidationError{Field: "endpoint", Message: "endpoint is required"}
		}
		return nil
	}

	sample := make(map[string]string, len(allowed))
	for _, name := range Placeholders(config.Endpoint) {
		if !slices.Contains(allowed, name) {
			return &ValidationError{Field: "endpoint", Message: fmt.Sprintf("unknown placeholder {%s}", name)}
		}
		sample[name] = "0"
	}

	u, err := url.Parse(ExpandEndpoint(config.Endpoint, sample))
	if err != nil {
		return &ValidationError{Field: "endpoint", Message: fmt.Sprintf("invalid URL: %v", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "endpoint", Message: fmt.Sprintf("scheme must be http or https, got: %q", u.Scheme)}
	}
	if u.Host == "" {
		return &ValidationError{Field: "endpoint", Message: "host is required"}
	}

	for name := range config.Headers {
		if name == "" {
			return &ValidationError{Field: "headers", Message: "header name must not be empty"}
		}
	}

	return nil
}

// ValidateMethod validates an HTTP method against allowed methods.
func ValidateMethod(method string, allowedMethods []string) error {
	if method == "" {
		return nil // Let caller handle default
	}

	if slices.Contains(allowedMethods, method) {
		return nil
	}

	return &ValidationError{
		Field:   "method",
		Message: fmt.Sprintf("method must be one of %v, got: %s", allowedMethods, method),
	}
}

// ValidateSuccessCodes checks that every code is a valid HTTP status.
func ValidateSuccessCodes(codes []int) error {
	for _, code := range codes {
		if code < 100 || code > 599 {
			return &ValidationError{
				Field:   "successCodes",
				Message: fmt.Sprintf("invalid HTTP status code: %d", code),
			}
		}
	}
	return nil
}
