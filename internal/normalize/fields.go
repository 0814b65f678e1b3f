package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// stringField safely extracts a string field, returning "" if absent or not a string.
func stringField(obj map[string]interface{}, field string) string {
	if v, ok := obj[field].(string); ok {
		return v
	}
	return ""
}

// boolField extracts a bool field; ok is false if the field is absent or not a bool.
func boolField(obj map[string]interface{}, field string) (value, ok bool) {
	v, ok := obj[field].(bool)
	return v, ok
}

// mapField returns a nested object, or nil.
func mapField(obj map[string]interface{}, field string) map[string]interface{} {
	if v, ok := obj[field].(map[string]interface{}); ok {
		return v
	}
	return nil
}

// sliceField returns the object elements of an array field, skipping
// elements that are not objects.
func sliceField(obj map[string]interface{}, field string) []map[string]interface{} {
	arr, ok := obj[field].([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(arr))
	for _, e := range arr {
		if m, ok := e.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

// stringsField returns the string elements of an array field.
func stringsField(obj map[string]interface{}, field string) []string {
	arr, ok := obj[field].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// timeField parses an ISO-8601 timestamp field, returning the zero time on failure.
func timeField(obj map[string]interface{}, field string) time.Time {
	s := stringField(obj, field)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// toInt64 converts the numeric shapes Graph uses for Int64 (number or string).
func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}
