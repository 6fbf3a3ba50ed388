// Package httpconfig provides the HTTP configuration shared by the source
// and target modules: endpoint templates, headers and timeouts.
package httpconfig

import (
	"net/http"
	"regexp"
	"time"
)

// DefaultTimeout applies when TimeoutMs is not set. Zero leaves the client
// without a timeout.
const DefaultTimeout time.Duration = 0

// placeholderPattern matches {name} placeholders in endpoint templates.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// BaseConfig contains the HTTP configuration fields shared by all HTTP modules.
type BaseConfig struct {
	// Endpoint is the HTTP endpoint URL (required).
	// Supports {name} placeholders, see ExpandEndpoint.
	Endpoint string `json:"endpoint"`

	// Method is the HTTP method. Default varies by module type.
	Method string `json:"method,omitempty"`

	// Headers are custom HTTP headers to include in requests.
	Headers map[string]string `json:"headers,omitempty"`

	// TimeoutMs is the request timeout in milliseconds (default: none).
	TimeoutMs int `json:"timeoutMs,omitempty"`
}

// GetTimeout returns the timeout duration from TimeoutMs, or the default if not set.
func (c *BaseConfig) GetTimeout() time.Duration {
	return GetTimeoutDuration(c.TimeoutMs, DefaultTimeout)
}

// NewClient returns an http.Client using the configured timeout.
func (c *BaseConfig) NewClient() *http.Client {
	return &http.Client{Timeout: c.GetTimeout()}
}

// ApplyHeaders sets the configured headers on req.
// Headers already set by the caller are overwritten.
func (c *BaseConfig) ApplyHeaders(req *http.Request) {
	for name, value := range c.Headers {
		req.Header.Set(name, value)
	}
}

// ExpandEndpoint replaces each {name} placeholder in endpoint with
// params[name]. Placeholders without a value are left untouched.
func ExpandEndpoint(endpoint string, params map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(endpoint, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := params[name]; ok {
			return v
		}
		return match
	})
}

// Placeholders returns the placeholder names used in endpoint, in order of
// first appearance.
func Placeholders(endpoint string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(endpoint, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
