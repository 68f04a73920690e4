package normalize

import (
	"encoding/json"
	"math"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gopkg.in/inf.v0"
)

func TestValue_Scalars(t *testing.T) {
	t.Parallel()
	id := gocql.TimeUUID()
	ts := time.Date(2024, 3, 5, 10, 11, 12, 500, time.FixedZone("X", 3600))

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"bool", true, true},
		{"string", "hello", "hello"},
		{"int", 42, 42},
		{"int16", int16(7), int16(7)},
		{"bigint", int64(9007199254740993), "9007199254740993"},
		{"counter negative", int64(-12), "-12"},
		{"double", 1.5, 1.5},
		{"float", float32(2.5), float32(2.5)},
		{"nan", math.NaN(), "NaN"},
		{"inf", math.Inf(1), "Infinity"},
		{"-inf", float32(math.Inf(-1)), "-Infinity"},
		{"varint", big.NewInt(0).Lsh(big.NewInt(1), 80), "1208925819614629174706176"},
		{"nil varint", (*big.Int)(nil), nil},
		{"decimal", inf.NewDec(12345, 2), "123.45"},
		{"uuid", id, id.String()},
		{"raw uuid", [16]byte(id), id.String()},
		{"timestamp", ts, "2024-03-05T09:11:12.0000005Z"},
		{"date", Date(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)), "2024-01-02"},
		{"time", 13*time.Hour + 4*time.Minute + 5*time.Second, "13:04:05"},
		{"time fraction", time.Second + 250*time.Millisecond, "00:00:01.250000000"},
		{"duration", gocql.Duration{Months: 1, Days: 2, Nanoseconds: 3}, "1mo2d3ns"},
		{"negative duration", gocql.Duration{Days: -4}, "-4d"},
		{"zero duration", gocql.Duration{}, "0ns"},
		{"inet", net.ParseIP("10.0.0.1"), "10.0.0.1"},
		{"blob", []byte{0xca, 0xfe}, "0xcafe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Value(tt.in))
		})
	}
}

func TestValue_Composites(t *testing.T) {
	t.Parallel()
	id := gocql.TimeUUID()

	got := Value(Tuple{int64(1), "a", id})
	if diff := cmp.Diff([]any{"1", "a", id.String()}, got); diff != "" {
		t.Fatalf("tuple (-want +got):\n%s", diff)
	}

	got = Value([]int64{1, 2})
	if diff := cmp.Diff([]any{"1", "2"}, got); diff != "" {
		t.Fatalf("list (-want +got):\n%s", diff)
	}

	got = Value(map[gocql.UUID]int64{id: 5})
	if diff := cmp.Diff(map[string]any{id.String(): "5"}, got); diff != "" {
		t.Fatalf("map (-want +got):\n%s", diff)
	}

	got = Value(map[string]any{"street": "main", "zip": int64(12345)})
	if diff := cmp.Diff(map[string]any{"street": "main", "zip": "12345"}, got); diff != "" {
		t.Fatalf("udt (-want +got):\n%s", diff)
	}

	require.Nil(t, Value([]string(nil)))
}

type opaque struct{ n int }

func TestValue_UnknownPassesThrough(t *testing.T) {
	t.Parallel()
	v := opaque{n: 3}
	require.Equal(t, v, Value(v))
}

func TestRow_Idempotent(t *testing.T) {
	t.Parallel()
	id := gocql.TimeUUID()
	row := map[string]any{
		"hits":  int64(184467440737),
		"id":    id,
		"pos":   Tuple{int64(3), 4.5, "x"},
		"seen":  time.Unix(1700000000, 0),
		"tags":  []string{"a", "b"},
		"empty": nil,
	}

	once := Row(row)
	twice := Row(once)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("normalizing twice changed the row (-once +twice):\n%s", diff)
	}

	// Text round trip stays stable too.
	b1, err := json.Marshal(once)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b1, &decoded))
	b2, err := json.Marshal(Row(decoded))
	require.NoError(t, err)
	require.JSONEq(t, string(b1), string(b2))

	require.Equal(t, "184467440737", once["hits"])
	require.Equal(t, id.String(), once["id"])
	require.Equal(t, []any{"3", 4.5, "x"}, once["pos"])
}

func TestRow_DoesNotModifyInput(t *testing.T) {
	t.Parallel()
	row := map[string]any{"n": int64(1)}
	_ = Row(row)
	require.Equal(t, int64(1), row["n"])
}
