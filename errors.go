package cqlmcp

import (
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolError is a protocol-level failure of a tool invocation, carrying the
// JSON-RPC error code.
type ToolError struct {
	Code    int
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// Is makes errors.Is match any ToolError with the same code, so callers can
// test against ErrInvalidParams and ErrMethodNotFound.
func (e *ToolError) Is(target error) bool {
	t, ok := target.(*ToolError)
	return ok && t.Code == e.Code && t.Message == ""
}

var (
	// ErrInvalidParams matches every invalid-arguments ToolError.
	ErrInvalidParams = &ToolError{Code: mcp.INVALID_PARAMS}
	// ErrMethodNotFound matches every unknown-tool ToolError.
	ErrMethodNotFound = &ToolError{Code: mcp.METHOD_NOT_FOUND}
)

func invalidParams(tool string, cause error) *ToolError {
	msg := fmt.Sprintf("Invalid %s arguments", tool)
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return &ToolError{Code: mcp.INVALID_PARAMS, Message: msg}
}

func methodNotFound(tool string) *ToolError {
	return &ToolError{Code: mcp.METHOD_NOT_FOUND, Message: "Unknown tool: " + tool}
}

// QueryExecutionError wraps a failure the session returned for a statement.
// Its message is the driver's message.
type QueryExecutionError struct {
	Statement string
	Err       error
}

func (e *QueryExecutionError) Error() string {
	return e.Err.Error()
}

func (e *QueryExecutionError) Unwrap() error {
	return e.Err
}

// ConnectionError is a failure to open or close the cluster session.
type ConnectionError struct {
	Op  string // "connect" or "close"
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cassandra %s failed: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ResultTooLongError carries a result cut to max_result_length. Text ends
// with a notice asking the agent to narrow the query.
type ResultTooLongError struct {
	Text string
}

func (e *ResultTooLongError) Error() string {
	return e.Text
}

// errorKind names the taxonomy bucket of err, for logs and metrics.
func errorKind(err error) string {
	var (
		toolErr *ToolError
		qErr    *QueryExecutionError
		cErr    *ConnectionError
		tErr    *ResultTooLongError
	)
	switch {
	case errors.As(err, &toolErr):
		if toolErr.Code == mcp.METHOD_NOT_FOUND {
			return "method_not_found"
		}
		return "invalid_params"
	case errors.As(err, &qErr):
		return "query_execution"
	case errors.As(err, &cErr):
		return "connection"
	case errors.As(err, &tErr):
		return "result_too_long"
	default:
		return "internal"
	}
}
