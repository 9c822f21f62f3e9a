package remote

import (
	"fmt"
	"time"

	"github.com/paytally/paysync/internal/model"
)

// Conversion helpers shared by the codecs. Firestore hands back int64 for
// integers and may return time.Time for timestamp fields, while JSON decoding
// produces float64 and strings; these helpers accept all of them.

func asString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func requireString(m map[string]any, key string) (string, error) {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("missing field %q", key)
	}
	return s, nil
}

func asFloat(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func asInt(m map[string]any, key string) int {
	return int(asFloat(m, key))
}

func asBool(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

// asTime converts a stored date value to a native time. Empty/absent yields
// the zero time without error.
func asTime(m map[string]any, key string) (time.Time, error) {
	switch v := m[key].(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		return model.ParseDate(v)
	default:
		return time.Time{}, fmt.Errorf("field %q has unexpected type %T", key, v)
	}
}

func requireTime(m map[string]any, key string) (time.Time, error) {
	t, err := asTime(m, key)
	if err != nil {
		return time.Time{}, err
	}
	if t.IsZero() {
		return time.Time{}, fmt.Errorf("missing field %q", key)
	}
	return t, nil
}

// asTimePtr returns nil for absent/empty values, preserving the "no punch yet"
// distinction on attendance records.
func asTimePtr(m map[string]any, key string) (*time.Time, error) {
	t, err := asTime(m, key)
	if err != nil {
		return nil, err
	}
	if t.IsZero() {
		return nil, nil
	}
	return &t, nil
}

func asFloatMap(m map[string]any, key string) map[string]float64 {
	raw, ok := m[key].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k := range raw {
		out[k] = asFloat(raw, k)
	}
	return out
}

func encodeTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return model.FormatDate(*t)
}

func encodeFloatMap(m map[string]float64) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
