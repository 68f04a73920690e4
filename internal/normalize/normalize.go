package normalize

import (
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"net"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"gopkg.in/inf.v0"
)

// Tuple is a CQL tuple value: its elements in declaration order.
type Tuple []any

// Date is a CQL date (no time-of-day component).
type Date time.Time

// Row normalizes every column of a driver row. The input is not modified.
// Row has no shared state and may be called concurrently.
func Row(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = Value(v)
	}
	return out
}

// Value maps a driver value to null, bool, number, string, []any or
// map[string]any. Unrecognized types are returned unchanged. Value is
// idempotent: Value(Value(v)) equals Value(v).
func Value(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case bool, string, int, int8, int16, int32, uint8, uint16, uint32:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return finite(float64(val), val)
	case float64:
		return finite(val, val)
	case *big.Int:
		if val == nil {
			return nil
		}
		return val.String()
	case *inf.Dec:
		if val == nil {
			return nil
		}
		return val.String()
	case gocql.UUID:
		return val.String()
	case [16]byte:
		return gocql.UUID(val).String()
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case Date:
		return time.Time(val).Format("2006-01-02")
	case time.Duration:
		return timeOfDay(val)
	case gocql.Duration:
		return durationLiteral(val)
	case net.IP:
		if val == nil {
			return nil
		}
		return val.String()
	case []byte:
		if val == nil {
			return nil
		}
		return "0x" + hex.EncodeToString(val)
	case Tuple:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = Value(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = Value(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = Value(e)
		}
		return out
	default:
		return collection(v)
	}
}

// collection handles typed lists, sets and maps (e.g. []string,
// map[gocql.UUID]int64). Anything else passes through.
func collection(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Value(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(Value(iter.Key().Interface()))] = Value(iter.Value().Interface())
		}
		return out
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return Value(rv.Elem().Interface())
	default:
		return v
	}
}

func finite(f float64, orig any) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return orig
}

// timeOfDay renders a CQL time value as hh:mm:ss[.nnnnnnnnn].
func timeOfDay(d time.Duration) string {
	ns := int64(d)
	hours := ns / int64(time.Hour)
	ns -= hours * int64(time.Hour)
	minutes := ns / int64(time.Minute)
	ns -= minutes * int64(time.Minute)
	seconds := ns / int64(time.Second)
	ns -= seconds * int64(time.Second)
	if ns > 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%09d", hours, minutes, seconds, ns)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// durationLiteral renders a CQL duration in its literal form, e.g. 1mo2d3ns.
func durationLiteral(d gocql.Duration) string {
	months, days, nanos := int64(d.Months), int64(d.Days), d.Nanoseconds
	var sb strings.Builder
	if months < 0 || days < 0 || nanos < 0 {
		sb.WriteByte('-')
		months, days, nanos = abs(months), abs(days), abs(nanos)
	}
	if months != 0 {
		fmt.Fprintf(&sb, "%dmo", months)
	}
	if days != 0 {
		fmt.Fprintf(&sb, "%dd", days)
	}
	if nanos != 0 || (months == 0 && days == 0) {
		fmt.Fprintf(&sb, "%dns", nanos)
	}
	return sb.String()
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
