package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// SafeInt coerces an upstream numeric-like value to an integer. It never
// fails: null, blank, and unparsable input all yield nil. Floats (and
// numeric strings, which are parsed as floats) truncate toward zero.
func SafeInt(v any) *int {
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		return &t
	case int32:
		return intPtr(int64(t))
	case int64:
		return intPtr(t)
	case float32:
		return truncFloat(float64(t))
	case float64:
		return truncFloat(t)
	case json.Number:
		return parseNumeric(t.String())
	case string:
		return parseNumeric(t)
	default:
		return nil
	}
}

func parseNumeric(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return truncFloat(f)
}

func truncFloat(f float64) *int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	f = math.Trunc(f)
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return nil
	}
	return intPtr(int64(f))
}

func intPtr(n int64) *int {
	i := int(n)
	return &i
}
