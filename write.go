package cqlmcp

import (
	"context"

	"github.com/rickchristie/cassandra-mcp/internal/cql"
)

// CreateTable creates a table if it does not exist yet. Repeating the call
// with the same schema is a no-op.
func (c *CassandraMcp) CreateTable(ctx context.Context, input CreateTableInput) error {
	stmt, err := cql.CreateTable(input.TableName, input.Schema, input.PrimaryKey)
	if err != nil {
		return err
	}
	return c.write(ctx, "create_table", stmt)
}

// InsertData inserts one row. Column order and bound values follow the
// order of input.Data.
func (c *CassandraMcp) InsertData(ctx context.Context, input InsertDataInput) error {
	stmt, err := cql.Insert(input.TableName, input.Data)
	if err != nil {
		return err
	}
	return c.write(ctx, "insert_data", stmt)
}

// UpdateData sets input.Data on the rows matching every entry of
// input.Conditions.
func (c *CassandraMcp) UpdateData(ctx context.Context, input UpdateDataInput) error {
	stmt, err := cql.Update(input.TableName, input.Data, input.Conditions)
	if err != nil {
		return err
	}
	return c.write(ctx, "update_data", stmt)
}

// DeleteData deletes the rows matching every entry of input.Conditions.
func (c *CassandraMcp) DeleteData(ctx context.Context, input DeleteDataInput) error {
	stmt, err := cql.Delete(input.TableName, input.Conditions)
	if err != nil {
		return err
	}
	return c.write(ctx, "delete_data", stmt)
}

func (c *CassandraMcp) write(ctx context.Context, op string, stmt cql.Statement) error {
	_, err := c.execute(ctx, op, stmt, c.timeoutMgr)
	return err
}
