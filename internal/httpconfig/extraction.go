package httpconfig

import (
	"time"
)

// ExtractBaseConfig extracts BaseConfig from a module config map.
// Missing or mistyped fields keep their zero value.
func ExtractBaseConfig(config map[string]interface{}) BaseConfig {
	base := BaseConfig{}
	if config == nil {
		return base
	}

	if endpoint, ok := config["endpoint"].(string); ok {
		base.Endpoint = endpoint
	}
	if method, ok := config["method"].(string); ok {
		base.Method = method
	}
	base.Headers = ExtractStringMap(config, "headers")
	base.TimeoutMs = extractTimeoutMs(config)

	return base
}

// ExtractStringMap extracts a map[string]string from a config map at the given key.
func ExtractStringMap(config map[string]interface{}, key string) map[string]string {
	result := make(map[string]string)
	if config == nil {
		return result
	}

	mapVal, ok := config[key].(map[string]interface{})
	if !ok {
		return result
	}

	for k, v := range mapVal {
		if strVal, ok := v.(string); ok {
			result[k] = strVal
		}
	}

	return result
}

// ExtractIntSlice extracts a list of integers from a config map at the given key.
// JSON numbers decode as float64 and YAML integers as int; both are accepted.
// Non-integral entries are dropped.
func ExtractIntSlice(config map[string]interface{}, key string) []int {
	if config == nil {
		return nil
	}
	items, ok := config[key].([]interface{})
	if !ok {
		return nil
	}
	result := make([]int, 0, len(items))
	for _, item := range items {
		if n, ok := toInt(item); ok {
			result = append(result, n)
		}
	}
	return result
}

// extractTimeoutMs extracts timeout in milliseconds from config.
// Supports both "timeoutMs" (preferred) and "timeout" in seconds.
func extractTimeoutMs(config map[string]interface{}) int {
	if ms, ok := toInt(config["timeoutMs"]); ok && ms > 0 {
		return ms
	}

	switch v := config["timeout"].(type) {
	case float64:
		if v > 0 {
			return int(v * 1000)
		}
	case int:
		if v > 0 {
			return v * 1000
		}
	}

	return 0 // Use default
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// GetTimeoutDuration returns the timeout as a time.Duration.
// If timeoutMs is 0 or negative, returns the provided default.
func GetTimeoutDuration(timeoutMs int, defaultTimeout time.Duration) time.Duration {
	if timeoutMs > 0 {
		return time.Duration(timeoutMs) * time.Millisecond
	}
	return defaultTimeout
}
