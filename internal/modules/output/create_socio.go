package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/impavidox/Gestionale/internal/httpconfig"
	"github.com/impavidox/Gestionale/internal/logger"
)

// Default configuration values for the member creation module
const (
	DefaultCreateSocioEndpoint = "https://backend-cso.azurewebsites.net/api/socio/createSocio"
	defaultUserAgent           = "recoverdata/1.0"
	defaultContentType         = "application/json"
	maxResponseBodySize        = 1 * 1024 * 1024 // 1MB
	moduleType                 = "createSocio"
)

// Default success status codes
var defaultSuccessCodes = []int{http.StatusOK}

// Error types for the member creation module
var (
	ErrNilConfig   = errors.New("module configuration is nil")
	ErrJSONMarshal = errors.New("failed to marshal record to JSON")
)

// HTTPError represents an HTTP error with status code and context.
// StatusCode is 0 when the request never got a response.
type HTTPError struct {
	StatusCode   int
	Status       string
	Endpoint     string
	Method       string
	Message      string
	ResponseBody string
	Err          error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error %d (%s) %s %s: %s", e.StatusCode, e.Status, e.Method, e.Endpoint, e.Message)
}

// Unwrap returns the transport error, if any.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the response status code.
func (e *HTTPError) HTTPStatusCode() int {
	return e.StatusCode
}

// Config configures the member creation module.
type Config struct {
	httpconfig.BaseConfig

	// SuccessCodes lists the statuses treated as success (default [200]).
	SuccessCodes []int `json:"successCodes,omitempty"`
}

// CreateSocio posts one member record per request to the target API.
type CreateSocio struct {
	endpoint     string
	config       httpconfig.BaseConfig
	successCodes []int
	client       *http.Client
}

// NewCreateSocio creates the member creation output module.
// An empty endpoint selects DefaultCreateSocioEndpoint.
func NewCreateSocio(config *Config) (*CreateSocio, error) {
	if config == nil {
		return nil, ErrNilConfig
	}

	base := config.BaseConfig
	if base.Endpoint == "" {
		base.Endpoint = DefaultCreateSocioEndpoint
	}
	if base.Method == "" {
		base.Method = http.MethodPost
	}
	if err := httpconfig.ValidateBaseConfig(base, true); err != nil {
		return nil, err
	}
	if err := httpconfig.ValidateMethod(base.Method, []string{http.MethodPost, http.MethodPut}); err != nil {
		return nil, err
	}
	if err := httpconfig.ValidateSuccessCodes(config.SuccessCodes); err != nil {
		return nil, err
	}

	successCodes := config.SuccessCodes
	if len(successCodes) == 0 {
		successCodes = defaultSuccessCodes
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	c := &CreateSocio{
		endpoint:     base.Endpoint,
		config:       base,
		successCodes: slices.Clone(successCodes),
		client:       &http.Client{Timeout: base.GetTimeout(), Transport: transport},
	}

	logger.WithModule(moduleType, "target").Debug("module created",
		slog.String("endpoint", c.endpoint),
		slog.String("method", base.Method),
		slog.Any("success_codes", c.successCodes),
	)

	return c, nil
}

// Endpoint returns the target URL.
func (c *CreateSocio) Endpoint() string {
	return c.endpoint
}

// Send marshals body to JSON and issues a single request. There is no retry.
func (c *CreateSocio) Send(ctx context.Context, body interface{}) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSONMarshal, err)
	}

	method := c.config.Method
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating http request: %w", err)
	}

	req.Header.Set("User-Agent", defaultUserAgent)
	c.config.ApplyHeaders(req)
	req.Header.Set("Content-Type", defaultContentType)

	requestStart := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		logger.Debug("http request failed",
			slog.String("endpoint", c.endpoint),
			slog.String("method", method),
			slog.String("error", err.Error()),
		)
		return nil, &HTTPError{
			StatusCode: 0,
			Status:     "network error",
			Endpoint:   c.endpoint,
			Method:     method,
			Message:    err.Error(),
			Err:        err,
		}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Warn("failed to close response body", slog.String("error", closeErr.Error()))
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		logger.Warn("response body read failed",
			slog.String("endpoint", c.endpoint),
			slog.Int("status_code", resp.StatusCode),
			slog.String("error", err.Error()),
		)
	}

	if !c.isSuccessStatusCode(resp.StatusCode) {
		return nil, &HTTPError{
			StatusCode:   resp.StatusCode,
			Status:       resp.Status,
			Endpoint:     c.endpoint,
			Method:       method,
			Message:      "request failed",
			ResponseBody: string(respBody),
		}
	}

	logger.Debug("http request completed",
		slog.String("endpoint", c.endpoint),
		slog.String("method", method),
		slog.Int("status_code", resp.StatusCode),
		slog.Duration("duration", time.Since(requestStart)),
	)

	return &Response{StatusCode: resp.StatusCode, Body: string(respBody)}, nil
}

// isSuccessStatusCode checks if a status code is considered success
func (c *CreateSocio) isSuccessStatusCode(statusCode int) bool {
	return slices.Contains(c.successCodes, statusCode)
}

// Close releases idle connections held by the HTTP client.
func (c *CreateSocio) Close() error {
	c.client.CloseIdleConnections()
	logger.Debug("create socio module closed", slog.String("endpoint", c.endpoint))
	return nil
}
