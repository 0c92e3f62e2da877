package normalization

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// AsString trims and returns value when it is a string.
func AsString(value any) string {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// AsInt64 coerces the numeric shapes a JSON decoder produces (including numeric
// strings) into an int64. Fractional and out-of-range values are rejected.
func AsInt64(value any) (int64, bool) {
	switch typed := value.(type) {
	case float64:
		if typed != math.Trunc(typed) || math.Abs(typed) > math.MaxInt64 {
			return 0, false
		}
		return int64(typed), true
	case int:
		return int64(typed), true
	case int64:
		return typed, true
	case json.Number:
		v, err := typed.Int64()
		return v, err == nil
	case string:
		v, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		return v, err == nil
	default:
		return 0, false
	}
}

// MapFromPayload unwraps a {"data": {...}} envelope, or returns value itself when it
// is already an object.
func MapFromPayload(value any) map[string]any {
	typed, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	if data, ok := typed["data"].(map[string]any); ok {
		return data
	}
	return typed
}

// FirstInt64 returns the first key of m holding a positive integer.
func FirstInt64(m map[string]any, keys ...string) (int64, bool) {
	for _, key := range keys {
		if v, ok := AsInt64(m[key]); ok && v > 0 {
			return v, true
		}
	}
	return 0, false
}
