package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ToFloat64 converts a decoded JSON number to float64. It accepts the types
// encoding/json produces (float64, json.Number) as well as Go integer types
// and numeric strings.
func ToFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}

// ToInt64 is ToFloat64 truncated towards zero. Integral json.Numbers are
// converted exactly. NaN and infinities are rejected.
func ToInt64(v any) (int64, error) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
	}
	f, err := ToFloat64(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite number %v", f)
	}
	return int64(f), nil
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}
