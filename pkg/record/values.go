package record

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/records/pkg/types"
)

// timeLayouts are tried in order when a time arrives as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// conform converts v to the Go representation held for attr:
// int64, float64, string, []byte, bool or a UTC time.Time.
// Any Go integer kind fits an integer attribute, integers and floats fit a
// real attribute, and named types are accepted by kind.
func conform(attr Attribute, v any) (any, error) {
	if v == nil {
		if attr.acceptsNil() {
			return nil, nil
		}
		return nil, mismatch(attr, v)
	}

	switch attr.Type {
	case types.ValueTypeTime:
		if t, ok := v.(time.Time); ok {
			return t.UTC(), nil
		}
		return nil, mismatch(attr, v)
	case types.ValueTypeBlob:
		if b, ok := v.([]byte); ok {
			out := make([]byte, len(b))
			copy(out, b)
			return out, nil
		}
		return nil, mismatch(attr, v)
	}

	rv := reflect.ValueOf(v)
	switch attr.Type {
	case types.ValueTypeInteger:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int(), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if u := rv.Uint(); u <= math.MaxInt64 {
				return int64(u), nil
			}
		}
	case types.ValueTypeReal:
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			return rv.Float(), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return float64(rv.Uint()), nil
		}
	case types.ValueTypeText:
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
	case types.ValueTypeBoolean:
		if rv.Kind() == reflect.Bool {
			return rv.Bool(), nil
		}
	}
	return nil, mismatch(attr, v)
}

func mismatch(attr Attribute, v any) error {
	got := "nil"
	if v != nil {
		got = fmt.Sprintf("%T", v)
	}
	return &types.TypeMismatchError{Attribute: attr.Name, Want: attr.Type, Got: got}
}

// decode converts a raw driver value read from the attribute's column into
// the attribute's Go representation. SQLite's flexible typing means a column
// may hand back text for a number or an integer for a boolean.
func decode(attr Attribute, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch attr.Type {
	case types.ValueTypeInteger:
		switch v := raw.(type) {
		case int64:
			return v, nil
		case float64:
			if v == math.Trunc(v) {
				return int64(v), nil
			}
		case bool:
			if v {
				return int64(1), nil
			}
			return int64(0), nil
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n, nil
			}
		case []byte:
			if n, err := strconv.ParseInt(string(v), 10, 64); err == nil {
				return n, nil
			}
		}
	case types.ValueTypeReal:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, nil
			}
		}
	case types.ValueTypeText:
		switch v := raw.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64), nil
		case time.Time:
			return v.UTC().Format(time.RFC3339Nano), nil
		}
	case types.ValueTypeBlob:
		switch v := raw.(type) {
		case []byte:
			return v, nil
		case string:
			return []byte(v), nil
		}
	case types.ValueTypeBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		case float64:
			return v != 0, nil
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b, nil
			}
		}
	case types.ValueTypeTime:
		switch v := raw.(type) {
		case time.Time:
			return v.UTC(), nil
		case string:
			if t, err := parseTime(v); err == nil {
				return t, nil
			}
		case []byte:
			if t, err := parseTime(string(v)); err == nil {
				return t, nil
			}
		case int64:
			return time.Unix(v, 0).UTC(), nil
		}
	}
	return nil, mismatch(attr, raw)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// ParseValue converts text, such as a command-line argument, into a value of
// the given type.
func ParseValue(vt types.ValueType, s string) (any, error) {
	switch vt {
	case types.ValueTypeInteger:
		return strconv.ParseInt(s, 10, 64)
	case types.ValueTypeReal:
		return strconv.ParseFloat(s, 64)
	case types.ValueTypeText:
		return s, nil
	case types.ValueTypeBlob:
		return []byte(s), nil
	case types.ValueTypeBoolean:
		return strconv.ParseBool(s)
	case types.ValueTypeTime:
		return parseTime(s)
	default:
		return nil, fmt.Errorf("unknown value type %q", vt)
	}
}

// formatValue renders a stored value as text for ToParam and String.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case []byte:
		return fmt.Sprintf("%x", x)
	default:
		return fmt.Sprint(x)
	}
}
