package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	cqlmcp "github.com/rickchristie/cassandra-mcp"
)

// runCall dispatches one tool invocation outside of any MCP transport.
// The arguments are passed through as raw JSON so key order survives.
func runCall(ctx context.Context, configFlag string, args []string, stdin io.Reader, stdout io.Writer) error {
	raw, err := callArguments(args, stdin)
	if err != nil {
		return err
	}

	serverConfig, err := loadServerConfig(configFlag)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := resolvePassword(&serverConfig.Connection, true); err != nil {
		return err
	}
	// Logs go to stderr so stdout carries only the tool result.
	logger := setupLogger(serverConfig.Logging, true)

	gateway, err := openGateway(ctx, serverConfig, logger)
	if err != nil {
		return err
	}
	defer closeGateway(gateway, logger)

	result := cqlmcp.NewDispatcher(gateway, logger).Dispatch(ctx, args[0], raw)
	text := callResultText(result)
	fmt.Fprintln(stdout, text)
	if result.IsError {
		return errors.New("tool call failed")
	}
	return nil
}

// callArguments returns the tool arguments: the second positional argument,
// stdin when it is "-", or an empty object.
func callArguments(args []string, stdin io.Reader) (json.RawMessage, error) {
	if len(args) < 2 {
		return json.RawMessage("{}"), nil
	}
	input := args[1]
	if input == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read arguments from stdin: %w", err)
		}
		input = string(b)
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid([]byte(input)) {
		return nil, errors.New("arguments must be valid JSON")
	}
	return json.RawMessage(input), nil
}

func callResultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}
