package cqlmcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

// Dispatcher turns tool invocations into gateway calls. It keeps no state
// between invocations and is safe for concurrent use.
type Dispatcher struct {
	gateway *CassandraMcp
	logger  zerolog.Logger
}

// NewDispatcher creates a Dispatcher over gateway.
func NewDispatcher(gateway *CassandraMcp, logger zerolog.Logger) *Dispatcher {
	if gateway == nil {
		panic("cqlmcp: gateway must be non-nil")
	}
	return &Dispatcher{gateway: gateway, logger: logger}
}

// Tools returns the tool catalog.
func (d *Dispatcher) Tools() []ToolDescriptor {
	return Catalog()
}

// Dispatch runs one invocation: lookup, argument validation, execution and
// packaging. It never returns nil and never panics; every failure becomes an
// error result carrying the failure's message.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args json.RawMessage) *mcp.CallToolResult {
	return d.boundary(name, func() (*mcp.CallToolResult, error) {
		if _, ok := lookupTool(name); !ok {
			return nil, methodNotFound(name)
		}
		args = objectOrEmpty(args)
		if err := validateArguments(name, args); err != nil {
			return nil, err
		}
		return d.route(ctx, name, args)
	})
}

// boundary is the one place where failures of any kind are converted into
// an error result.
func (d *Dispatcher) boundary(tool string, step func() (*mcp.CallToolResult, error)) (result *mcp.CallToolResult) {
	defer func() {
		if r := recover(); r != nil {
			result = d.fail(tool, fmt.Errorf("internal error: %v", r))
		}
	}()

	var err error
	result, err = step()
	if err != nil {
		return d.fail(tool, err)
	}
	d.gateway.metrics.observeCall(tool, nil)
	return result
}

func (d *Dispatcher) fail(tool string, err error) *mcp.CallToolResult {
	d.gateway.metrics.observeCall(tool, err)
	msg := d.gateway.handleError(tool, err)
	if msg == "" {
		msg = "Unknown error occurred"
	}
	return mcp.NewToolResultError(msg)
}

func (d *Dispatcher) route(ctx context.Context, name string, args []byte) (*mcp.CallToolResult, error) {
	switch name {
	case ToolExecuteQuery:
		in, err := parseExecuteQuery(args)
		if err != nil {
			return nil, invalidParams(name, err)
		}
		rows, err := d.gateway.ExecuteQuery(ctx, in)
		if err != nil {
			return nil, err
		}
		return d.jsonResult(rows)

	case ToolCreateTable:
		in, err := parseCreateTable(args)
		if err != nil {
			return nil, invalidParams(name, err)
		}
		if err := d.gateway.CreateTable(ctx, in); err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(fmt.Sprintf("Table '%s' created successfully.", in.TableName)), nil

	case ToolInsertData:
		in, err := parseInsertData(args)
		if err != nil {
			return nil, invalidParams(name, err)
		}
		if err := d.gateway.InsertData(ctx, in); err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(fmt.Sprintf("Data inserted into '%s' successfully.", in.TableName)), nil

	case ToolUpdateData:
		in, err := parseUpdateData(args)
		if err != nil {
			return nil, invalidParams(name, err)
		}
		if err := d.gateway.UpdateData(ctx, in); err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(fmt.Sprintf("Data updated in '%s' successfully.", in.TableName)), nil

	case ToolDeleteData:
		in, err := parseDeleteData(args)
		if err != nil {
			return nil, invalidParams(name, err)
		}
		if err := d.gateway.DeleteData(ctx, in); err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(fmt.Sprintf("Data deleted from '%s' successfully.", in.TableName)), nil

	case ToolListTables:
		tables, err := d.gateway.ListTables(ctx, ListTablesInput{})
		if err != nil {
			return nil, err
		}
		return d.jsonResult(tables)
	}
	return nil, methodNotFound(name)
}

// jsonResult renders v as 2-space indented JSON, cut to max_result_length.
func (d *Dispatcher) jsonResult(v any) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	text, truncated := d.gateway.truncateIfNeeded(string(bytes.TrimRight(buf.Bytes(), "\n")))
	if truncated {
		return nil, &ResultTooLongError{Text: text}
	}
	return mcp.NewToolResultText(text), nil
}

// objectOrEmpty maps absent arguments to an empty object.
func objectOrEmpty(args json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}")
	}
	return trimmed
}
