package cqlmcp

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers the six tools of the catalog on mcpServer.
// Every call is routed through d.Dispatch.
func RegisterMCPTools(mcpServer *server.MCPServer, d *Dispatcher) {
	for _, t := range Catalog() {
		name := t.Name
		tool := mcp.NewToolWithRawSchema(name, t.Description, t.InputSchema)
		mcpServer.AddTool(tool, d.loggedToolHandler(name, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := requestArguments(req)
			if err != nil {
				return d.boundary(name, func() (*mcp.CallToolResult, error) {
					return nil, invalidParams(name, err)
				}), nil
			}
			return d.Dispatch(ctx, name, args), nil
		}))
	}
}

// loggedToolHandler wraps a tool handler to log one line per call with an
// invocation id and request and response lengths.
func (d *Dispatcher) loggedToolHandler(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		logger := d.logger.With().
			Str("tool", tool).
			Str("invocation_id", uuid.NewString()).
			Logger()

		reqLen := requestLength(req)
		result, err := handler(ctx, req)
		respLen := resultLength(result)
		logger.Info().
			Int("request_bytes", reqLen).
			Int("response_bytes", respLen).
			Bool("is_error", result != nil && result.IsError).
			Dur("duration", time.Since(start)).
			Msg("tool call")
		return result, err
	}
}

// maxExactInteger is 2^53. mcp-go decodes numbers as float64, so integers
// from here on may already have been rounded.
const maxExactInteger = 1 << 53

// requestArguments returns the call's arguments as JSON. mcp-go decodes
// arguments into a map, so object keys come back in sorted order.
func requestArguments(req mcp.CallToolRequest) (json.RawMessage, error) {
	switch args := req.Params.Arguments.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return args, nil
	case []byte:
		return args, nil
	default:
		if err := checkExactNumbers("", args); err != nil {
			return nil, err
		}
		return json.Marshal(args)
	}
}

// checkExactNumbers rejects integers too large for float64 to hold exactly.
// Binding a rounded value would silently write or match the wrong row.
func checkExactNumbers(path string, v any) error {
	switch val := v.(type) {
	case float64:
		if val == math.Trunc(val) && math.Abs(val) >= maxExactInteger {
			if path == "" {
				path = "arguments"
			}
			return fmt.Errorf("number at %s is too large to be represented exactly, send it as a string", path)
		}
	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(val)) {
			p := k
			if path != "" {
				p = path + "." + k
			}
			if err := checkExactNumbers(p, val[k]); err != nil {
				return err
			}
		}
	case []any:
		for i, e := range val {
			if err := checkExactNumbers(path+"["+strconv.Itoa(i)+"]", e); err != nil {
				return err
			}
		}
	}
	return nil
}

// requestLength returns the JSON-encoded byte length of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultLength returns the total byte length of text content in a CallToolResult.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}
