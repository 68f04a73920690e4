package cqlmcp

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Tool names.
const (
	ToolExecuteQuery = "execute_query"
	ToolCreateTable  = "create_table"
	ToolInsertData   = "insert_data"
	ToolUpdateData   = "update_data"
	ToolDeleteData   = "delete_data"
	ToolListTables   = "list_tables"
)

var catalog = []ToolDescriptor{
	{
		Name:        ToolExecuteQuery,
		Description: "Execute a CQL query on Cassandra database",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "minLength": 1, "description": "CQL query to execute"},
				"params": {
					"type": ["object", "array", "null"],
					"description": "Query parameters: an object bound to :name markers, or an array bound to ? markers in order"
				}
			},
			"required": ["query"]
		}`),
	},
	{
		Name:        ToolCreateTable,
		Description: "Create a new table in Cassandra database",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"tableName": {"type": "string", "minLength": 1, "description": "Name of the table to create"},
				"schema": {
					"type": "object",
					"minProperties": 1,
					"description": "Table schema with column names as keys and CQL types as values",
					"additionalProperties": {"type": "string"}
				},
				"primaryKey": {
					"oneOf": [
						{"type": "string", "minLength": 1, "description": "Single primary key column"},
						{
							"type": "array",
							"minItems": 1,
							"description": "Composite primary key: partition key first, then clustering keys",
							"items": {"type": "string", "minLength": 1}
						}
					],
					"description": "Primary key definition"
				}
			},
			"required": ["tableName", "schema", "primaryKey"]
		}`),
	},
	{
		Name:        ToolInsertData,
		Description: "Insert data into a Cassandra table",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"tableName": {"type": "string", "minLength": 1, "description": "Name of the table to insert data into"},
				"data": {"type": "object", "minProperties": 1, "description": "Data to insert with column names as keys"}
			},
			"required": ["tableName", "data"]
		}`),
	},
	{
		Name:        ToolUpdateData,
		Description: "Update data in a Cassandra table",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"tableName": {"type": "string", "minLength": 1, "description": "Name of the table to update data in"},
				"data": {"type": "object", "minProperties": 1, "description": "Data to update with column names as keys"},
				"conditions": {"type": "object", "minProperties": 1, "description": "WHERE conditions with column names as keys, joined with AND"}
			},
			"required": ["tableName", "data", "conditions"]
		}`),
	},
	{
		Name:        ToolDeleteData,
		Description: "Delete data from a Cassandra table",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"tableName": {"type": "string", "minLength": 1, "description": "Name of the table to delete data from"},
				"conditions": {"type": "object", "minProperties": 1, "description": "WHERE conditions with column names as keys, joined with AND"}
			},
			"required": ["tableName", "conditions"]
		}`),
	},
	{
		Name:        ToolListTables,
		Description: "List all tables in the current keyspace",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	},
}

// compiledSchemas is built once from catalog and only read afterwards.
var compiledSchemas = compileSchemas(catalog)

func compileSchemas(tools []ToolDescriptor) map[string]*gojsonschema.Schema {
	out := make(map[string]*gojsonschema.Schema, len(tools))
	for _, t := range tools {
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(t.InputSchema))
		if err != nil {
			panic(fmt.Sprintf("cqlmcp: invalid input schema for %s: %v", t.Name, err))
		}
		out[t.Name] = s
	}
	return out
}

// Catalog returns a copy of the tool catalog in registration order.
func Catalog() []ToolDescriptor {
	out := make([]ToolDescriptor, len(catalog))
	for i, t := range catalog {
		t.InputSchema = append(json.RawMessage(nil), t.InputSchema...)
		out[i] = t
	}
	return out
}

// lookupTool resolves a tool name against the catalog.
func lookupTool(name string) (ToolDescriptor, bool) {
	for _, t := range catalog {
		if t.Name == name {
			return t, true
		}
	}
	return ToolDescriptor{}, false
}

// validateArguments checks args (a JSON object) against the tool's schema.
func validateArguments(tool string, args []byte) error {
	result, err := compiledSchemas[tool].Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return invalidParams(tool, err)
	}
	if !result.Valid() {
		errs := result.Errors()
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.String()
		}
		return invalidParams(tool, fmt.Errorf("%v", msgs))
	}
	return nil
}
