package cqlmcp_test

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	cqlmcp "github.com/rickchristie/cassandra-mcp"
	"github.com/rickchristie/cassandra-mcp/cassandra"
)

// The gocql session is public so library users can hand it to New.
var _ cqlmcp.Session = (*cassandra.Session)(nil)

// executed is one statement the fake session received.
type executed struct {
	Stmt string
	Args []any
}

// fakeSession records statements and answers them with respond. It is safe
// for concurrent use.
type fakeSession struct {
	mu       sync.Mutex
	calls    []executed
	closes   int
	closeErr error
	respond  func(ctx context.Context, stmt string, args []any) ([]map[string]any, error)
}

func (f *fakeSession) Execute(ctx context.Context, stmt string, args []any) ([]map[string]any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, executed{Stmt: stmt, Args: args})
	respond := f.respond
	f.mu.Unlock()
	if respond == nil {
		return []map[string]any{}, nil
	}
	return respond(ctx, stmt, args)
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return f.closeErr
}

func (f *fakeSession) Calls() []executed {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]executed(nil), f.calls...)
}

// last returns the most recent statement, failing the test if there is none.
func (f *fakeSession) last(t *testing.T) executed {
	t.Helper()
	calls := f.Calls()
	if len(calls) == 0 {
		t.Fatal("expected at least one executed statement")
	}
	return calls[len(calls)-1]
}

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func defaultConfig() cqlmcp.Config {
	return cqlmcp.Config{
		Keyspace: "app",
		Query: cqlmcp.QueryConfig{
			DefaultTimeoutSeconds:    30,
			ListTablesTimeoutSeconds: 10,
			MaxQueryLength:           100000,
			MaxResultLength:          100000,
		},
	}
}

func newTestInstance(t *testing.T, config cqlmcp.Config, session *fakeSession) (*cqlmcp.CassandraMcp, *cqlmcp.Dispatcher) {
	t.Helper()
	c := cqlmcp.New(session, config, testLogger())
	t.Cleanup(func() { c.Close() })
	return c, cqlmcp.NewDispatcher(c, testLogger())
}

// resultText returns the single text content of r.
func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if r == nil {
		t.Fatal("expected a result, got nil")
	}
	if len(r.Content) != 1 {
		t.Fatalf("expected exactly one content item, got %d", len(r.Content))
	}
	tc, ok := r.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", r.Content[0])
	}
	return tc.Text
}

func raw(s string) json.RawMessage {
	return json.RawMessage(s)
}
