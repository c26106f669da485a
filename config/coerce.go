package config

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alexjbarnes/apiconfig"
)

// CoerceBool converts v to a bool. Strings accept true/false, yes/no,
// on/off and 1/0 in any case.
func CoerceBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		if b, ok := parseBoolWord(x); ok {
			return b, nil
		}
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil && (n == 0 || n == 1) {
			return n == 1, nil
		}
	case int:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	}
	return false, valueError("bool", v)
}

// CoerceInt converts v to an int. Floats must be whole numbers and every
// value must fit in an int.
func CoerceInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		if fitsInt(x) {
			return int(x), nil
		}
	case float64:
		// -MinInt is exactly representable, MaxInt is not.
		if x == math.Trunc(x) && x >= float64(math.MinInt) && x < -float64(math.MinInt) {
			return int(x), nil
		}
	case json.Number:
		if n, err := x.Int64(); err == nil && fitsInt(n) {
			return int(n), nil
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n, nil
		}
	}
	return 0, valueError("int", v)
}

func fitsInt(n int64) bool {
	return n >= math.MinInt && n <= math.MaxInt
}

// CoerceFloat converts v to a float64.
func CoerceFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f, nil
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f, nil
		}
	}
	return 0, valueError("float", v)
}

// CoerceDuration converts v to a time.Duration. Numbers are seconds;
// strings are either Go durations ("1m30s") or seconds ("90", "2.5").
func CoerceDuration(v any) (time.Duration, error) {
	switch x := v.(type) {
	case time.Duration:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return secondsToDuration(f), nil
		}
	default:
		if f, err := CoerceFloat(v); err == nil {
			return secondsToDuration(f), nil
		}
	}
	return 0, valueError("duration", v)
}

func secondsToDuration(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// InferValue guesses the type of a raw string value: bool words, ints,
// floats and JSON objects or arrays are converted, anything else stays a
// string. "1" and "0" stay ints.
func InferValue(s string) any {
	if b, ok := parseBoolWord(s); ok {
		return b
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}

func parseBoolWord(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on":
		return true, true
	case "false", "no", "off":
		return false, true
	}
	return false, false
}

func valueError(want string, v any) error {
	return apiconfig.Errorf(apiconfig.ErrConfigValue, "cannot convert %s to %s", describe(v), want)
}

func describe(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprintf("%v (%T)", v, v)
}
