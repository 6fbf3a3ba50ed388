package output

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/impavidox/Gestionale/internal/errhandling"
	"github.com/impavidox/Gestionale/internal/httpconfig"
)

func newTestCreateSocio(t *testing.T, cfg Config) *CreateSocio {
	t.Helper()
	c, err := NewCreateSocio(&cfg)
	if err != nil {
		t.Fatalf("NewCreateSocio failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewCreateSocio(t *testing.T) {
	if _, err := NewCreateSocio(nil); !errors.Is(err, ErrNilConfig) {
		t.Errorf("NewCreateSocio(nil) error = %v, want ErrNilConfig", err)
	}

	c := newTestCreateSocio(t, Config{})
	if c.Endpoint() != DefaultCreateSocioEndpoint {
		t.Errorf("Endpoint() = %q, want default", c.Endpoint())
	}
	if c.client.Timeout != 0 {
		t.Errorf("client timeout = %v, want none unless configured", c.client.Timeout)
	}
	if timed := newTestCreateSocio(t, Config{BaseConfig: httpconfig.BaseConfig{TimeoutMs: 1500}}); timed.client.Timeout != 1500*time.Millisecond {
		t.Errorf("client timeout = %v, want 1.5s", timed.client.Timeout)
	}

	invalid := []Config{
		{BaseConfig: httpconfig.BaseConfig{Endpoint: "not a url"}},
		{BaseConfig: httpconfig.BaseConfig{Endpoint: "https://x.example.com/{start}"}},
		{BaseConfig: httpconfig.BaseConfig{Method: http.MethodDelete}},
		{SuccessCodes: []int{1000}},
	}
	for i, cfg := range invalid {
		cfg := cfg
		if _, err := NewCreateSocio(&cfg); err == nil {
			t.Errorf("config %d: expected validation error", i)
		}
	}
}

func TestCreateSocio_Send_Success(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":42}`))
	}))
	defer server.Close()

	c := newTestCreateSocio(t, Config{BaseConfig: httpconfig.BaseConfig{Endpoint: server.URL}})
	resp, err := c.Send(context.Background(), map[string]interface{}{"nome": "Mario", "codice": nil})
	if err != nil {
		t.Fatalf("Send() returned error: %v", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Body != `{"id":42}` {
		t.Errorf("response = %+v", resp)
	}
	if got["nome"] != "Mario" {
		t.Errorf("posted nome = %v, want Mario", got["nome"])
	}
	if v, ok := got["codice"]; !ok || v != nil {
		t.Errorf("posted codice = %v (present %v), want explicit null", v, ok)
	}
}

func TestCreateSocio_Send_StatusHandling(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		successCodes []int
		wantErr      bool
	}{
		{name: "200 default success", status: 200},
		{name: "201 not success by default", status: 201, wantErr: true},
		{name: "201 configured success", status: 201, successCodes: []int{200, 201}},
		{name: "500", status: 500, wantErr: true},
		{name: "400", status: 400, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body text"))
			}))
			defer server.Close()

			c := newTestCreateSocio(t, Config{
				BaseConfig:   httpconfig.BaseConfig{Endpoint: server.URL},
				SuccessCodes: tt.successCodes,
			})
			_, err := c.Send(context.Background(), map[string]interface{}{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Send() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var httpErr *HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("expected *HTTPError, got %T", err)
			}
			if httpErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", httpErr.StatusCode, tt.status)
			}
			if httpErr.ResponseBody != "body text" {
				t.Errorf("ResponseBody = %q, want %q", httpErr.ResponseBody, "body text")
			}
		})
	}
}

func TestCreateSocio_Send_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	c := newTestCreateSocio(t, Config{BaseConfig: httpconfig.BaseConfig{Endpoint: endpoint}})
	_, err := c.Send(context.Background(), map[string]interface{}{"nome": "x"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", httpErr.StatusCode)
	}
	if got := errhandling.ClassifyError(err).Category; got != errhandling.CategoryNetwork {
		t.Errorf("category = %v, want network", got)
	}
}

func TestCreateSocio_Send_MarshalError(t *testing.T) {
	c := newTestCreateSocio(t, Config{BaseConfig: httpconfig.BaseConfig{Endpoint: "http://127.0.0.1:1"}})
	_, err := c.Send(context.Background(), map[string]interface{}{"bad": make(chan int)})
	if !errors.Is(err, ErrJSONMarshal) {
		t.Errorf("error = %v, want ErrJSONMarshal", err)
	}
}

func TestCreateSocio_Send_CustomHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Api-Key"); got != "secret" {
			t.Errorf("X-Api-Key = %q, want secret", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", got)
		}
	}))
	defer server.Close()

	c := newTestCreateSocio(t, Config{BaseConfig: httpconfig.BaseConfig{
		Endpoint: server.URL,
		Headers:  map[string]string{"X-Api-Key": "secret", "Content-Type": "text/plain"},
	}})
	if _, err := c.Send(context.Background(), struct{}{}); err != nil {
		t.Fatalf("Send() returned error: %v", err)
	}
}
