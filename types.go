package cqlmcp

import (
	"encoding/json"

	"github.com/rickchristie/cassandra-mcp/internal/cql"
)

// Version is reported in the MCP initialize handshake and by the CLI.
const Version = "1.0.0"

// ServerName is the MCP server name advertised to clients.
const ServerName = "mcp-cassandra-server"

// Params are the values bound to an execute_query statement: positional
// (a JSON array, bound to ? markers in order) or named (a JSON object, bound
// to :name markers). At most one of the two is set.
type Params struct {
	Positional []any
	Named      *cql.Fields
}

// Len returns the number of bound values.
func (p Params) Len() int {
	if p.Named != nil {
		return p.Named.Len()
	}
	return len(p.Positional)
}

// Args flattens the parameters into the session's argument list. Named
// values are wrapped in cql.Named.
func (p Params) Args() []any {
	if p.Named == nil {
		return p.Positional
	}
	args := make([]any, 0, p.Named.Len())
	for pair := p.Named.Oldest(); pair != nil; pair = pair.Next() {
		args = append(args, cql.Named{Name: pair.Key, Value: pair.Value})
	}
	return args
}

// ExecuteQueryInput is the input for the execute_query tool.
type ExecuteQueryInput struct {
	Query  string
	Params Params
}

// CreateTableInput is the input for the create_table tool. Schema maps column
// names to CQL types in declaration order.
type CreateTableInput struct {
	TableName  string
	Schema     *cql.Columns
	PrimaryKey cql.PrimaryKey
}

// InsertDataInput is the input for the insert_data tool.
type InsertDataInput struct {
	TableName string
	Data      *cql.Fields
}

// UpdateDataInput is the input for the update_data tool. Data becomes the SET
// clause, Conditions the WHERE clause (joined with AND).
type UpdateDataInput struct {
	TableName  string
	Data       *cql.Fields
	Conditions *cql.Fields
}

// DeleteDataInput is the input for the delete_data tool.
type DeleteDataInput struct {
	TableName  string
	Conditions *cql.Fields
}

// ListTablesInput is the input for the list_tables tool.
type ListTablesInput struct{}

// ToolDescriptor is one entry of the tool catalog.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}
