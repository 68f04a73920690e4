package cqlmcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rickchristie/cassandra-mcp/internal/cql"
	"github.com/rickchristie/cassandra-mcp/internal/normalize"
	"github.com/rickchristie/cassandra-mcp/internal/timeout"
)

const truncationNotice = "...[truncated] Result is too long! Add limits in your query!"

// ExecuteQuery runs a caller-supplied CQL statement with bound parameters and
// returns its normalized, sanitized rows. Statements that return no rows
// yield an empty slice.
func (c *CassandraMcp) ExecuteQuery(ctx context.Context, input ExecuteQueryInput) ([]map[string]any, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, errors.New("query must be non-empty")
	}
	if len(input.Query) > c.config.Query.MaxQueryLength {
		return nil, fmt.Errorf("query too long: %d bytes exceeds maximum of %d bytes", len(input.Query), c.config.Query.MaxQueryLength)
	}
	rows, err := c.execute(ctx, "execute_query", cql.Statement{Text: input.Query, Args: input.Params.Args()}, c.timeoutMgr)
	if err != nil {
		return nil, err
	}
	return c.sanitizer.SanitizeRows(rows), nil
}

// execute is the single path to the session: it takes an in-flight slot,
// bounds the call by the timeout tm picks for the statement, wraps driver
// failures in QueryExecutionError and normalizes the returned rows.
func (c *CassandraMcp) execute(ctx context.Context, op string, stmt cql.Statement, tm *timeout.Manager) ([]map[string]any, error) {
	startTime := time.Now()

	// Acquire semaphore (respects context cancellation to prevent deadlock)
	if c.semaphore != nil {
		select {
		case c.semaphore <- struct{}{}:
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to acquire statement slot: all %d slots are in use, context cancelled while waiting: %w", cap(c.semaphore), ctx.Err())
		}
		defer func() { <-c.semaphore }()
	}

	queryCtx, cancel := tm.WithTimeout(ctx, stmt.Text)
	defer cancel()

	c.metrics.inFlight(1)
	native, err := c.session.Execute(queryCtx, stmt.Text, stmt.Args)
	c.metrics.inFlight(-1)
	c.metrics.observeStatement(op, startTime)
	if err != nil {
		return nil, &QueryExecutionError{Statement: stmt.Text, Err: err}
	}

	rows := make([]map[string]any, len(native))
	for i, row := range native {
		rows[i] = normalize.Row(row)
	}

	c.logger.Info().
		Str("op", op).
		Str("cql", truncateForLog(stmt.Text, 200)).
		Int("param_count", len(stmt.Args)).
		Int("row_count", len(rows)).
		Dur("duration", time.Since(startTime)).
		Msg("statement executed")
	return rows, nil
}

// handleError renders err as the message shown to the agent. The message is
// evaluated against error_prompts and matching guidance is appended.
func (c *CassandraMcp) handleError(tool string, err error) string {
	errMsg, patterns := c.errPrompts.Annotate(err.Error())

	logEvent := c.logger.Error().Err(err).Str("tool", tool).Str("kind", errorKind(err))
	var qErr *QueryExecutionError
	if errors.As(err, &qErr) {
		logEvent = logEvent.Str("cql", truncateForLog(qErr.Statement, 200))
	}
	if len(patterns) > 0 {
		logEvent = logEvent.Strs("error_prompts", patterns)
	}
	logEvent.Msg("tool error")

	return errMsg
}

// truncateIfNeeded cuts text to MaxResultLength characters (runes) and
// reports whether it did.
func (c *CassandraMcp) truncateIfNeeded(text string) (string, bool) {
	if utf8.RuneCountInString(text) <= c.config.Query.MaxResultLength {
		return text, false
	}
	runes := []rune(text)
	return string(runes[:c.config.Query.MaxResultLength]) + truncationNotice, true
}

// truncateForLog truncates a string for log output to avoid oversized log entries.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	return s[:truncateAt] + "...[truncated]"
}
