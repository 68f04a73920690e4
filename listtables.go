package cqlmcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rickchristie/cassandra-mcp/internal/cql"
)

// ListTables returns the names of the tables in the configured keyspace, in
// the order the schema catalog returns them.
func (c *CassandraMcp) ListTables(ctx context.Context, _ ListTablesInput) ([]string, error) {
	if c.config.Keyspace == "" {
		return nil, errors.New("no keyspace configured: set CASSANDRA_KEYSPACE or connection.keyspace")
	}

	stmt := cql.Statement{Text: cql.ListTablesCQL, Args: []any{c.config.Keyspace}}
	rows, err := c.execute(ctx, "list_tables", stmt, c.listTables)
	if err != nil {
		return nil, err
	}

	tables := make([]string, 0, len(rows))
	for _, row := range rows {
		switch name := row["table_name"].(type) {
		case string:
			tables = append(tables, name)
		case nil:
			return nil, fmt.Errorf("list tables: row without table_name: %v", row)
		default:
			tables = append(tables, fmt.Sprint(name))
		}
	}
	return tables, nil
}
