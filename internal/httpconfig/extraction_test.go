package httpconfig

import (
	"net/http"
	"reflect"
	"testing"
	"time"
)

func TestBaseConfig_GetTimeout(t *testing.T) {
	tests := []struct {
		name      string
		timeoutMs int
		want      time.Duration
	}{
		{name: "custom timeout", timeoutMs: 5000, want: 5 * time.Second},
		{name: "unset means no timeout", timeoutMs: 0, want: 0},
		{name: "negative means no timeout", timeoutMs: -1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &BaseConfig{TimeoutMs: tt.timeoutMs}
			if got := c.GetTimeout(); got != tt.want {
				t.Errorf("GetTimeout() = %v, want %v", got, tt.want)
			}
			if got := c.NewClient().Timeout; got != tt.want {
				t.Errorf("NewClient().Timeout = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractBaseConfig(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]interface{}
		want   BaseConfig
	}{
		{
			name:   "nil config",
			config: nil,
			want:   BaseConfig{},
		},
		{
			name: "full config",
			config: map[string]interface{}{
				"endpoint":  "https://api.example.com",
				"method":    "POST",
				"timeoutMs": float64(5000),
				"headers": map[string]interface{}{
					"X-Api-Key": "secret",
					"X-Ignored": 12,
				},
			},
			want: BaseConfig{
				Endpoint:  "https://api.example.com",
				Method:    "POST",
				TimeoutMs: 5000,
				Headers:   map[string]string{"X-Api-Key": "secret"},
			},
		},
		{
			name: "yaml integer timeout",
			config: map[string]interface{}{
				"endpoint":  "https://api.example.com",
				"timeoutMs": 2500,
			},
			want: BaseConfig{Endpoint: "https://api.example.com", TimeoutMs: 2500, Headers: map[string]string{}},
		},
		{
			name: "timeout in seconds",
			config: map[string]interface{}{
				"timeout": float64(2),
			},
			want: BaseConfig{TimeoutMs: 2000, Headers: map[string]string{}},
		},
		{
			name: "wrong types ignored",
			config: map[string]interface{}{
				"endpoint":  42,
				"timeoutMs": "fast",
			},
			want: BaseConfig{Headers: map[string]string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractBaseConfig(tt.config)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractBaseConfig() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExtractIntSlice(t *testing.T) {
	config := map[string]interface{}{
		"successCodes": []interface{}{float64(200), 201, float64(202.5), "204"},
	}
	got := ExtractIntSlice(config, "successCodes")
	want := []int{200, 201}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractIntSlice() = %v, want %v", got, want)
	}
	if got := ExtractIntSlice(config, "missing"); got != nil {
		t.Errorf("ExtractIntSlice(missing) = %v, want nil", got)
	}
}

func TestExpandEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		params   map[string]string
		want     string
	}{
		{
			name:     "range bounds",
			endpoint: "https://server.example.com/socio/0/{start}/{end}/2",
			params:   map[string]string{"start": "3", "end": "7"},
			want:     "https://server.example.com/socio/0/3/7/2",
		},
		{
			name:     "repeated placeholder",
			endpoint: "https://x.example.com/{start}/{start}",
			params:   map[string]string{"start": "1"},
			want:     "https://x.example.com/1/1",
		},
		{
			name:     "missing value kept",
			endpoint: "https://x.example.com/{start}/{end}",
			params:   map[string]string{"start": "1"},
			want:     "https://x.example.com/1/{end}",
		},
		{
			name:     "no placeholders",
			endpoint: "https://x.example.com/api",
			params:   map[string]string{"start": "1"},
			want:     "https://x.example.com/api",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEndpoint(tt.endpoint, tt.params); got != tt.want {
				t.Errorf("ExpandEndpoint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("https://x.example.com/{start}/{end}/{start}")
	want := []string{"start", "end"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Placeholders() = %v, want %v", got, want)
	}
}

func TestApplyHeaders(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://x.example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Accept", "text/plain")
	c := &BaseConfig{Headers: map[string]string{"Accept": "application/json", "X-Trace": "1"}}
	c.ApplyHeaders(req)
	if got := req.Header.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q, want application/json", got)
	}
	if got := req.Header.Get("X-Trace"); got != "1" {
		t.Errorf("X-Trace = %q, want 1", got)
	}
}
