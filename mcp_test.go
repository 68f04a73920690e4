package cqlmcp

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestRequestLength_WithArguments(t *testing.T) {
	t.Parallel()
	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "execute_query",
			Arguments: map[string]any{"query": "SELECT 1"},
		},
	}
	length := requestLength(req)
	// {"query":"SELECT 1"} = 20 bytes
	if length != 20 {
		t.Fatalf("expected request length 20, got %d", length)
	}
}

func TestRequestLength_NoArguments(t *testing.T) {
	t.Parallel()
	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "list_tables",
		},
	}
	length := requestLength(req)
	if length != 0 {
		t.Fatalf("expected request length 0 for no arguments, got %d", length)
	}
}

func TestRequestLength_EmptyArguments(t *testing.T) {
	t.Parallel()
	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "list_tables",
			Arguments: map[string]any{},
		},
	}
	length := requestLength(req)
	if length != 0 {
		t.Fatalf("expected request length 0 for empty arguments, got %d", length)
	}
}

func TestResultLength_TextResult(t *testing.T) {
	t.Parallel()
	result := mcp.NewToolResultText(`["users","events"]`)
	length := resultLength(result)
	if length != 18 {
		t.Fatalf("expected result length 18, got %d", length)
	}
}

func TestResultLength_ErrorResult(t *testing.T) {
	t.Parallel()
	result := mcp.NewToolResultError("something failed")
	length := resultLength(result)
	if length != 16 {
		t.Fatalf("expected result length 16, got %d", length)
	}
}

func TestResultLength_NilResult(t *testing.T) {
	t.Parallel()
	length := resultLength(nil)
	if length != 0 {
		t.Fatalf("expected result length 0 for nil, got %d", length)
	}
}

func TestRequestArguments(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		args any
		want string
	}{
		{"nil", nil, ""},
		{"raw", json.RawMessage(`{"b":1,"a":2}`), `{"b":1,"a":2}`},
		{"bytes", []byte(`{"query":"SELECT 1"}`), `{"query":"SELECT 1"}`},
		{"map", map[string]any{"tableName": "t", "data": map[string]any{"b": 1, "a": 2}}, `{"data":{"a":2,"b":1},"tableName":"t"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := mcp.CallToolRequest{Params: mcp.CallToolParams{Name: "insert_data", Arguments: tc.args}}
			got, err := requestArguments(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestRequestArguments_Unmarshalable(t *testing.T) {
	t.Parallel()
	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Name: "insert_data", Arguments: make(chan int)}}
	if _, err := requestArguments(req); err == nil {
		t.Fatal("expected error for unmarshalable arguments")
	}
}

func TestRequestArguments_RejectsInexactIntegers(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		args map[string]any
		path string
	}{
		{"data value", map[string]any{"tableName": "t", "data": map[string]any{"id": float64(9007199254740993)}}, "data.id"},
		{"negative", map[string]any{"conditions": map[string]any{"id": float64(-9007199254740992)}}, "conditions.id"},
		{"params element", map[string]any{"query": "SELECT 1", "params": []any{"a", float64(1e20)}}, "params[1]"},
		{"nested list", map[string]any{"data": map[string]any{"ids": []any{float64(1), float64(1 << 60)}}}, "data.ids[1]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := mcp.CallToolRequest{Params: mcp.CallToolParams{Name: "insert_data", Arguments: tc.args}}
			_, err := requestArguments(req)
			if err == nil {
				t.Fatal("expected error for inexact integer")
			}
			if !strings.Contains(err.Error(), "number at "+tc.path+" ") || !strings.Contains(err.Error(), "send it as a string") {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRequestArguments_AcceptsExactNumbers(t *testing.T) {
	t.Parallel()
	args := map[string]any{"data": map[string]any{
		"max":   float64(9007199254740991),
		"min":   float64(-9007199254740991),
		"ratio": 1.5,
		"big":   "9007199254740993",
	}}
	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Name: "insert_data", Arguments: args}}
	got, err := requestArguments(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"data":{"big":"9007199254740993","max":9007199254740991,"min":-9007199254740991,"ratio":1.5}}`
	if string(got) != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
