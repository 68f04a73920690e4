package cassandra

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"gopkg.in/inf.v0"

	"github.com/rickchristie/cassandra-mcp/internal/cql"
)

// bindArgs wraps tool-supplied values so they are converted against the
// prepared column type at marshal time. JSON carries no CQL types: 30 may
// target an int, a bigint or a double column, "2024-01-02" a date.
func bindArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if n, ok := a.(cql.Named); ok {
			out[i] = gocql.NamedValue(n.Name, bindValue{v: n.Value})
			continue
		}
		out[i] = bindValue{v: a}
	}
	return out
}

// bindValue implements gocql.Marshaler.
type bindValue struct {
	v any
}

func (b bindValue) MarshalCQL(info gocql.TypeInfo) ([]byte, error) {
	v, err := coerce(info, b.v)
	if err != nil {
		return nil, err
	}
	return gocql.Marshal(info, v)
}

func coerce(info gocql.TypeInfo, v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		return coerceText(info, string(val))
	case float64:
		return coerceText(info, strconv.FormatFloat(val, 'f', -1, 64))
	case string:
		return coerceText(info, val)
	case []any:
		return coerceList(info, val), nil
	case map[string]any:
		return coerceMap(info, val), nil
	default:
		return v, nil
	}
}

// coerceText parses the textual form of a value into the Go type gocql
// marshals for the target column.
func coerceText(info gocql.TypeInfo, s string) (any, error) {
	var (
		v   any
		err error
	)
	switch info.Type() {
	case gocql.TypeText, gocql.TypeVarchar, gocql.TypeAscii:
		return s, nil
	case gocql.TypeInt:
		var n int64
		n, err = strconv.ParseInt(s, 10, 32)
		v = int32(n)
	case gocql.TypeSmallInt:
		var n int64
		n, err = strconv.ParseInt(s, 10, 16)
		v = int16(n)
	case gocql.TypeTinyInt:
		var n int64
		n, err = strconv.ParseInt(s, 10, 8)
		v = int8(n)
	case gocql.TypeBigInt, gocql.TypeCounter:
		v, err = strconv.ParseInt(s, 10, 64)
	case gocql.TypeFloat:
		var f float64
		f, err = strconv.ParseFloat(s, 32)
		v = float32(f)
	case gocql.TypeDouble:
		v, err = strconv.ParseFloat(s, 64)
	case gocql.TypeVarint:
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			err = fmt.Errorf("invalid varint %q", s)
		}
		v = n
	case gocql.TypeDecimal:
		d, ok := new(inf.Dec).SetString(s)
		if !ok {
			err = fmt.Errorf("invalid decimal %q", s)
		}
		v = d
	case gocql.TypeBoolean:
		v, err = strconv.ParseBool(s)
	case gocql.TypeUUID, gocql.TypeTimeUUID:
		v, err = gocql.ParseUUID(s)
	case gocql.TypeTimestamp:
		v, err = parseTimestamp(s)
	case gocql.TypeDate:
		v, err = parseDate(s)
	case gocql.TypeTime:
		v, err = parseTimeOfDay(s)
	case gocql.TypeBlob:
		if strings.HasPrefix(s, "0x") {
			v, err = hex.DecodeString(s[2:])
		} else {
			v = []byte(s)
		}
	case gocql.TypeInet:
		ip := net.ParseIP(s)
		if ip == nil {
			err = fmt.Errorf("invalid inet %q", s)
		}
		v = ip
	default:
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot bind %q as %s: %w", s, info, err)
	}
	return v, nil
}

func coerceList(info gocql.TypeInfo, items []any) any {
	switch info.(type) {
	case gocql.CollectionType, gocql.TupleTypeInfo:
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = bindValue{v: item}
		}
		return out
	}
	return items
}

func coerceMap(info gocql.TypeInfo, m map[string]any) any {
	switch info.Type() {
	case gocql.TypeMap:
		out := make(map[any]any, len(m))
		for k, v := range m {
			out[bindValue{v: k}] = bindValue{v: v}
		}
		return out
	case gocql.TypeUDT:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = bindValue{v: v}
		}
		return out
	}
	return m
}

func parseTimestamp(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func parseTimeOfDay(s string) (time.Duration, error) {
	t, err := time.Parse("15:04:05.999999999", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond()), nil
}
