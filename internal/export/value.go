// Package export serializes pipeline results to JSON or XML. Both encoders
// render scalars through Convert, so the two documents carry the same data.
package export

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-sql/civil"
)

// Kind is the semantic kind of a Value.
type Kind uint8

const (
	KindPlain Kind = iota
	KindDate
	KindTimestamp
	KindDuration
	KindDecimal
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	case KindDuration:
		return "duration"
	case KindDecimal:
		return "decimal"
	default:
		return "plain"
	}
}

// Value is a scalar tagged with its semantic kind.
type Value struct {
	kind  Kind
	plain any
	date  civil.Date
	ts    time.Time
	dur   time.Duration
	dec   string
}

func (v Value) Kind() Kind { return v.kind }

// Plain wraps a JSON-native scalar (string, bool, integer, float or nil).
func Plain(x any) Value { return Value{kind: KindPlain, plain: x} }

func Date(d civil.Date) Value { return Value{kind: KindDate, date: d} }

func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, ts: t} }

func Duration(d time.Duration) Value { return Value{kind: KindDuration, dur: d} }

// Decimal wraps the textual form of a fixed-point number.
func Decimal(s string) Value { return Value{kind: KindDecimal, dec: strings.TrimSpace(s)} }

// Of tags a Go value by its type.
func Of(x any) Value {
	switch v := x.(type) {
	case Value:
		return v
	case civil.Date:
		return Date(v)
	case time.Time:
		return Timestamp(v)
	case time.Duration:
		return Duration(v)
	case []byte:
		return Plain(string(v))
	default:
		return Plain(x)
	}
}

// FromDriver tags a value scanned from a SQL driver, using the column's
// database type name to tell dates from timestamps and decimals from text.
func FromDriver(x any, dbType string) Value {
	dbType = strings.ToUpper(dbType)
	switch v := x.(type) {
	case time.Time:
		if dbType == "DATE" {
			return Date(civil.DateOf(v))
		}
		return Timestamp(v)
	case string:
		if isDecimalType(dbType) {
			return Decimal(v)
		}
	case []byte:
		if isDecimalType(dbType) {
			return Decimal(string(v))
		}
	}
	return Of(x)
}

func isDecimalType(t string) bool {
	switch t {
	case "NUMERIC", "DECIMAL", "MONEY", "SMALLMONEY":
		return true
	}
	return false
}

// Convert returns the JSON-compatible form of v: dates and timestamps as
// ISO-8601 strings, durations as fractional days, decimals as float64.
func Convert(v Value) any {
	switch v.kind {
	case KindDate:
		return v.date.String()
	case KindTimestamp:
		return v.ts.Format(time.RFC3339Nano)
	case KindDuration:
		return v.dur.Seconds() / 86400
	case KindDecimal:
		f, err := strconv.ParseFloat(v.dec, 64)
		if err != nil {
			return v.dec
		}
		return f
	default:
		return v.plain
	}
}

// Text renders Convert(v) as element text.
func Text(v Value) string {
	switch c := Convert(v).(type) {
	case nil:
		return ""
	case string:
		return c
	case bool:
		return strconv.FormatBool(c)
	case int:
		return strconv.Itoa(c)
	case int32:
		return strconv.FormatInt(int64(c), 10)
	case int64:
		return strconv.FormatInt(c, 10)
	case float32:
		return formatFloat(float64(c))
	case float64:
		return formatFloat(c)
	case json.Number:
		return c.String()
	default:
		return fmt.Sprint(c)
	}
}

// formatFloat mirrors encoding/json's choice between plain and exponent form.
func formatFloat(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// e-09 to e-9, as encoding/json writes it
		if n := len(s); n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
