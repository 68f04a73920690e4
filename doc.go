// Package cqlmcp exposes an Apache Cassandra keyspace to AI agents through
// the Model Context Protocol (MCP).
//
// Six tools are provided: execute_query, create_table, insert_data,
// update_data, delete_data and list_tables. Arguments are validated against
// each tool's JSON schema, write statements are built with bind markers
// only (values are never interpolated into CQL text), and result rows are
// normalized into plain JSON values before they reach the agent.
//
// # Library Usage
//
// Package github.com/rickchristie/cassandra-mcp/cassandra provides the gocql
// session:
//
//	session, err := cassandra.Connect(ctx, cassandra.Config{
//		Hosts:    []string{"localhost"},
//		LocalDC:  "datacenter1",
//		Keyspace: "app",
//		Username: "cassandra",
//		Password: password,
//	}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	c := cqlmcp.New(session, cqlmcp.Config{
//		Keyspace: "app",
//		Query:    cqlmcp.QueryConfig{DefaultTimeoutSeconds: 30},
//	}, logger)
//	defer c.Close()
//
//	// Call tools directly
//	rows, err := c.ExecuteQuery(ctx, cqlmcp.ExecuteQueryInput{Query: "SELECT * FROM users LIMIT 10"})
//
//	// Or dispatch raw tool invocations
//	result := cqlmcp.NewDispatcher(c, logger).Dispatch(ctx, "list_tables", nil)
//
//	// Or register the catalog on an MCP server
//	cqlmcp.RegisterMCPTools(mcpServer, cqlmcp.NewDispatcher(c, logger))
//
// Any type with Execute and Close methods can stand in for the session, which
// is how the package is tested without a cluster.
package cqlmcp
