package input

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/impavidox/Gestionale/internal/errhandling"
	"github.com/impavidox/Gestionale/internal/httpconfig"
)

func newTestLibroSocio(t *testing.T, endpoint string) *LibroSocio {
	t.Helper()
	l, err := NewLibroSocio(&httpconfig.BaseConfig{Endpoint: endpoint})
	if err != nil {
		t.Fatalf("NewLibroSocio failed: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

// =============================================================================
// Construction
// =============================================================================

func TestNewLibroSocio(t *testing.T) {
	tests := []struct {
		name    string
		config  *httpconfig.BaseConfig
		wantErr error
	}{
		{name: "nil config", config: nil, wantErr: ErrNilConfig},
		{name: "default endpoint", config: &httpconfig.BaseConfig{}},
		{name: "custom endpoint", config: &httpconfig.BaseConfig{Endpoint: "http://localhost:8080/libro/{start}/{end}"}},
		{name: "unknown placeholder", config: &httpconfig.BaseConfig{Endpoint: "http://localhost/{page}"}},
		{name: "POST not allowed", config: &httpconfig.BaseConfig{Endpoint: "http://localhost/", Method: http.MethodPost}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLibroSocio(tt.config)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
			case strings.Contains(tt.name, "not allowed") || strings.Contains(tt.name, "unknown"):
				var ve *httpconfig.ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("expected *httpconfig.ValidationError, got %v", err)
				}
			default:
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestNewLibroSocio_NoDefaultTimeout(t *testing.T) {
	l, err := NewLibroSocio(&httpconfig.BaseConfig{})
	if err != nil {
		t.Fatalf("NewLibroSocio() error = %v", err)
	}
	if l.client.Timeout != 0 {
		t.Errorf("client timeout = %v, want none unless configured", l.client.Timeout)
	}
}

func TestLibroSocio_Endpoint(t *testing.T) {
	l := newTestLibroSocio(t, "")
	got := l.Endpoint(Range{Start: 3, End: 3})
	want := "https://server.mathric.com/cso/rest/socio/retrieveLibroSocio/0/3/3/2"
	if got != want {
		t.Errorf("Endpoint() = %q, want %q", got, want)
	}
}

// =============================================================================
// Fetch
// =============================================================================

func TestLibroSocio_Fetch_Success(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET method, got %s", r.Method)
		}
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"nome":"Mario","cap":20100},{"nome":"Anna","cap":null}]`))
	}))
	defer server.Close()

	l := newTestLibroSocio(t, server.URL+"/socio/0/{start}/{end}/2")
	records, err := l.Fetch(context.Background(), Range{Start: 5, End: 9})
	if err != nil {
		t.Fatalf("Fetch() returned error: %v", err)
	}
	if gotPath != "/socio/0/5/9/2" {
		t.Errorf("request path = %q, want /socio/0/5/9/2", gotPath)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0]["nome"] != "Mario" {
		t.Errorf("records[0][nome] = %v, want Mario", records[0]["nome"])
	}
	if n, ok := records[0]["cap"].(json.Number); !ok || n.String() != "20100" {
		t.Errorf("records[0][cap] = %#v, want json.Number 20100", records[0]["cap"])
	}
	if records[1]["cap"] != nil {
		t.Errorf("records[1][cap] = %v, want nil", records[1]["cap"])
	}
}

func TestLibroSocio_Fetch_EmptyArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	records, err := newTestLibroSocio(t, server.URL+"/{start}/{end}").Fetch(context.Background(), Range{Start: 1, End: 1})
	if err != nil {
		t.Fatalf("Fetch() returned error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestLibroSocio_Fetch_Headers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Api-Key"); got != "secret" {
			t.Errorf("X-Api-Key = %q, want secret", got)
		}
		if got := r.Header.Get("User-Agent"); got != defaultUserAgent {
			t.Errorf("User-Agent = %q, want %q", got, defaultUserAgent)
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	l, err := NewLibroSocio(&httpconfig.BaseConfig{
		Endpoint: server.URL + "/{start}/{end}",
		Headers:  map[string]string{"X-Api-Key": "secret"},
	})
	if err != nil {
		t.Fatalf("NewLibroSocio failed: %v", err)
	}
	if _, err := l.Fetch(context.Background(), Range{Start: 0, End: 0}); err != nil {
		t.Fatalf("Fetch() returned error: %v", err)
	}
}

func TestLibroSocio_Fetch_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantStatus int
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantStatus: 500},
		{name: "not found", status: http.StatusNotFound, body: "missing", wantStatus: 404},
		{name: "redirect status without location", status: http.StatusMultipleChoices, body: "choose", wantStatus: 300},
		{name: "invalid JSON", status: http.StatusOK, body: "not json", wantErr: ErrJSONParse},
		{name: "object instead of array", status: http.StatusOK, body: `{"data":[]}`, wantErr: ErrJSONParse},
		{name: "trailing data", status: http.StatusOK, body: `[] []`, wantErr: ErrJSONParse},
		{name: "non-object element", status: http.StatusOK, body: `[{"nome":"a"}, 3]`, wantErr: ErrInvalidRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			records, err := newTestLibroSocio(t, server.URL+"/{start}/{end}").Fetch(context.Background(), Range{Start: 1, End: 2})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if records != nil {
				t.Errorf("expected nil records on error, got %v", records)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantStatus != 0 {
				var httpErr *HTTPError
				if !errors.As(err, &httpErr) {
					t.Fatalf("expected *HTTPError, got %T", err)
				}
				if httpErr.StatusCode != tt.wantStatus {
					t.Errorf("StatusCode = %d, want %d", httpErr.StatusCode, tt.wantStatus)
				}
				if httpErr.Message != tt.body {
					t.Errorf("Message = %q, want %q", httpErr.Message, tt.body)
				}
			}
		})
	}
}

func TestLibroSocio_Fetch_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL + "/{start}/{end}"
	server.Close()

	_, err := newTestLibroSocio(t, endpoint).Fetch(context.Background(), Range{Start: 1, End: 1})
	if !errors.Is(err, ErrHTTPRequest) {
		t.Fatalf("error = %v, want ErrHTTPRequest", err)
	}
	if got := errhandling.ClassifyError(err).Category; got != errhandling.CategoryNetwork {
		t.Errorf("category = %v, want network", got)
	}
}

func TestLibroSocio_Fetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	l, err := NewLibroSocio(&httpconfig.BaseConfig{Endpoint: server.URL + "/{start}/{end}", TimeoutMs: 20})
	if err != nil {
		t.Fatalf("NewLibroSocio failed: %v", err)
	}
	if _, err := l.Fetch(context.Background(), Range{Start: 1, End: 1}); !errors.Is(err, ErrHTTPRequest) {
		t.Errorf("error = %v, want ErrHTTPRequest", err)
	}
}

func TestLibroSocio_Fetch_InvalidRange(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	l := newTestLibroSocio(t, server.URL+"/{start}/{end}")
	for _, rng := range []Range{{Start: -1, End: 2}, {Start: 4, End: 2}} {
		if _, err := l.Fetch(context.Background(), rng); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("Fetch(%+v) error = %v, want ErrInvalidRange", rng, err)
		}
	}
	if called {
		t.Error("no request expected for an invalid range")
	}
}

func TestHTTPError_StatusCoder(t *testing.T) {
	err := &HTTPError{StatusCode: 503, Status: "503 Service Unavailable", Endpoint: "http://x", Message: "down"}
	var sc errhandling.StatusCoder = err
	if sc.HTTPStatusCode() != 503 {
		t.Errorf("HTTPStatusCode() = %d, want 503", sc.HTTPStatusCode())
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "down") {
		t.Errorf("Error() = %q", err.Error())
	}
}
