package input

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/impavidox/Gestionale/internal/httpconfig"
	"github.com/impavidox/Gestionale/internal/logger"
)

// Default configuration values
const (
	DefaultLibroSocioEndpoint = "https://server.mathric.com/cso/rest/socio/retrieveLibroSocio/0/{start}/{end}/2"
	defaultUserAgent          = "recoverdata/1.0"
	moduleType                = "libroSocio"
)

// Error types for the member book input module
var (
	ErrNilConfig     = errors.New("module configuration is nil")
	ErrHTTPRequest   = errors.New("http request failed")
	ErrJSONParse     = errors.New("failed to parse JSON response")
	ErrInvalidRecord = errors.New("response element is not a JSON object")
)

// HTTPError represents an HTTP error with status code and context
type HTTPError struct {
	StatusCode int
	Status     string
	Endpoint   string
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error %d (%s) from %s: %s", e.StatusCode, e.Status, e.Endpoint, e.Message)
}

// HTTPStatusCode returns the response status code.
func (e *HTTPError) HTTPStatusCode() int {
	return e.StatusCode
}

// LibroSocio fetches a range of entries from the member book endpoint.
// The endpoint template carries {start} and {end} placeholders.
type LibroSocio struct {
	config httpconfig.BaseConfig
	client *http.Client
}

// NewLibroSocio creates the member book input module.
// An empty endpoint selects DefaultLibroSocioEndpoint.
func NewLibroSocio(config *httpconfig.BaseConfig) (*LibroSocio, error) {
	if config == nil {
		return nil, ErrNilConfig
	}

	cfg := *config
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultLibroSocioEndpoint
	}
	if err := httpconfig.ValidateBaseConfig(cfg, true, "start", "end"); err != nil {
		return nil, err
	}
	if err := httpconfig.ValidateMethod(cfg.Method, []string{http.MethodGet}); err != nil {
		return nil, err
	}

	l := &LibroSocio{
		config: cfg,
		client: cfg.NewClient(),
	}

	logger.WithModule(moduleType, "source").Debug("module created",
		"endpoint", cfg.Endpoint,
		"timeout", cfg.GetTimeout().String(),
	)

	return l, nil
}

// Endpoint returns the URL used to fetch rng.
func (l *LibroSocio) Endpoint(rng Range) string {
	return httpconfig.ExpandEndpoint(l.config.Endpoint, map[string]string{
		"start": strconv.Itoa(rng.Start),
		"end":   strconv.Itoa(rng.End),
	})
}

// Fetch retrieves the entries in rng with a single GET request.
// Any transport error, non-2xx status, or body that is not a JSON array of
// objects is returned as an error and no records are produced.
func (l *LibroSocio) Fetch(ctx context.Context, rng Range) ([]map[string]interface{}, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	endpoint := l.Endpoint(rng)
	startTime := time.Now()

	logger.Info("input fetch started",
		"module_type", moduleType,
		"endpoint", endpoint,
		"start", rng.Start,
		"end", rng.End,
	)

	body, err := l.doRequest(ctx, endpoint)
	if err == nil {
		var records []map[string]interface{}
		records, err = parseResponse(body)
		if err == nil {
			logger.Info("input fetch completed",
				"module_type", moduleType,
				"endpoint", endpoint,
				"record_count", len(records),
				"duration", time.Since(startTime),
			)
			return records, nil
		}
	}

	logger.Error("input fetch failed",
		"module_type", moduleType,
		"endpoint", endpoint,
		"duration", time.Since(startTime),
		"error", err.Error(),
	)
	return nil, err
}

// doRequest executes an HTTP GET request and returns the raw response body
func (l *LibroSocio) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	requestStart := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating http request: %w", err)
	}

	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")
	l.config.ApplyHeaders(req)

	resp, err := l.client.Do(req)
	requestDuration := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHTTPRequest, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Warn("failed to close response body",
				"endpoint", endpoint,
				"error", closeErr.Error(),
			)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodySnippet := string(body)
		if len(bodySnippet) > 500 {
			bodySnippet = bodySnippet[:500] + "..."
		}

		logger.Error("http error response",
			"module_type", moduleType,
			"endpoint", endpoint,
			"method", http.MethodGet,
			"status_code", resp.StatusCode,
			"duration", requestDuration,
			"response_body", bodySnippet,
		)

		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Endpoint:   endpoint,
			Message:    string(body),
		}
	}

	logger.Debug("http request completed",
		"module_type", moduleType,
		"endpoint", endpoint,
		"status_code", resp.StatusCode,
		"duration", requestDuration,
		"response_size", len(body),
	)

	return body, nil
}

// parseResponse decodes a JSON array of objects. Numbers are kept as
// json.Number so that integer fields survive untouched.
func parseResponse(body []byte) ([]map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var data interface{}
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSONParse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: unexpected data after JSON value", ErrJSONParse)
	}

	return convertToRecords(data)
}

// convertToRecords converts a decoded JSON array to records.
func convertToRecords(data interface{}) ([]map[string]interface{}, error) {
	items, ok := data.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: expected array, got %s", ErrJSONParse, jsonKind(data))
	}

	records := make([]map[string]interface{}, 0, len(items))
	for i, item := range items {
		record, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %s", ErrInvalidRecord, i, jsonKind(item))
		}
		records = append(records, record)
	}
	return records, nil
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Close releases idle connections held by the HTTP client.
func (l *LibroSocio) Close() error {
	l.client.CloseIdleConnections()
	return nil
}
