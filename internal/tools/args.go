package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Arguments are the decoded tools/call arguments. JSON numbers arrive as
// float64; accessors also accept json.Number and numeric strings.
type Arguments map[string]any

// String returns the string value of key. Numbers and booleans are
// rendered as their JSON text. ok is false for missing, null or blank values.
func (a Arguments) String(key string) (string, bool) {
	v, present := a[key]
	if !present || v == nil {
		return "", false
	}
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case json.Number:
		s = x.String()
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(x)
	default:
		return "", false
	}
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Int returns the integer value of key. ok is false when key is absent or
// null; err is set when it is present but not an integer.
func (a Arguments) Int(key string) (n int, ok bool, err error) {
	v, present := a[key]
	if !present || v == nil {
		return 0, false, nil
	}
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		return x, true, nil
	case json.Number:
		f, err = x.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		err = fmt.Errorf("unexpected %T", v)
	}
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, true, fmt.Errorf("parameter %s must be an integer", key)
	}
	return int(f), true, nil
}

// Bool returns the boolean value of key, or def when absent.
func (a Arguments) Bool(key string, def bool) (bool, error) {
	v, present := a[key]
	if !present || v == nil {
		return def, nil
	}
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return def, fmt.Errorf("parameter %s must be a boolean", key)
		}
		return b, nil
	}
	return def, fmt.Errorf("parameter %s must be a boolean", key)
}

func missing(key string) error {
	return fmt.Errorf("Missing required parameter: %s", key)
}

// RequireString is String for a required parameter.
func (a Arguments) RequireString(key string) (string, error) {
	s, ok := a.String(key)
	if !ok {
		return "", missing(key)
	}
	return s, nil
}

// RequireInt is Int for a required parameter.
func (a Arguments) RequireInt(key string) (int, error) {
	n, ok, err := a.Int(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, missing(key)
	}
	return n, nil
}
