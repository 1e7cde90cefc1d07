// Package utils converts loosely typed JSON values into the scalar types the
// record validators need.
package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-sql/civil"
)

// ConvertToInt coerces val to an int64. Decimal strings, json.Number, Go
// integer kinds and integral floats are accepted; booleans and fractional
// numbers are not.
func ConvertToInt(val any) (int64, error) {
	switch v := val.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint32:
		return int64(v), nil
	case float64:
		return floatToInt(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to int", v.String())
		}
		return floatToInt(f)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to int", v)
		}
		return i, nil
	case []byte:
		return ConvertToInt(string(v))
	case nil:
		return 0, fmt.Errorf("cannot convert null to int")
	default:
		return 0, fmt.Errorf("cannot convert %T to int", val)
	}
}

func floatToInt(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("cannot convert %v to int: not integral", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("cannot convert %v to int: out of range", f)
	}
	return int64(f), nil
}

// ConvertToString renders val as text. Strings pass through, json.Number keeps
// its literal form and everything else goes through fmt.
func ConvertToString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

var dateTimeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ConvertDate parses an ISO-8601 calendar date. Full timestamps are accepted
// and truncated to their date part in the timestamp's own zone.
func ConvertDate(val any) (civil.Date, error) {
	s, ok := val.(string)
	if !ok {
		return civil.Date{}, fmt.Errorf("expected ISO-8601 date string, got %T", val)
	}
	s = strings.TrimSpace(s)
	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	for _, f := range dateTimeFormats {
		if t, err := time.Parse(f, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("unable to parse date: %q", s)
}
