package cqlmcp

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rickchristie/cassandra-mcp/internal/errprompt"
	"github.com/rickchristie/cassandra-mcp/internal/sanitize"
	"github.com/rickchristie/cassandra-mcp/internal/timeout"
)

// Session executes CQL against a cluster. Execute binds args to the
// statement's markers in order (cql.Named values bind by name) and returns
// the driver's rows. Implementations must be safe for concurrent use.
type Session interface {
	Execute(ctx context.Context, stmt string, args []any) ([]map[string]any, error)
	Close() error
}

// CassandraMcp is the query gateway behind the six tools.
// All exported methods are safe for concurrent use from multiple goroutines.
type CassandraMcp struct {
	config     Config
	session    Session
	semaphore  chan struct{} // nil when Query.MaxConcurrent is 0
	sanitizer  *sanitize.Sanitizer
	errPrompts *errprompt.Matcher
	timeoutMgr *timeout.Manager
	// listTables has no rules: list_tables runs under its own fixed timeout.
	listTables *timeout.Manager
	metrics    *Metrics
	logger     zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Option is a functional option for New().
type Option func(*options)

type options struct {
	metrics *Metrics
}

// WithMetrics records statement metrics on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New creates a CassandraMcp over an open session. The session is owned by
// the returned value and closed by Close.
// Panics on invalid config.
func New(session Session, config Config, logger zerolog.Logger, opts ...Option) *CassandraMcp {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if session == nil {
		panic("cqlmcp: session must be non-nil")
	}
	if config.Query.DefaultTimeoutSeconds < 0 {
		panic("cqlmcp: query.default_timeout_seconds must be >= 0")
	}
	if config.Query.ListTablesTimeoutSeconds < 0 {
		panic("cqlmcp: query.list_tables_timeout_seconds must be >= 0")
	}
	if config.Query.MaxConcurrent < 0 {
		panic("cqlmcp: query.max_concurrent must be >= 0")
	}
	if config.Query.MaxQueryLength < 0 {
		panic("cqlmcp: query.max_query_length must be > 0")
	}
	if config.Query.MaxResultLength < 0 {
		panic("cqlmcp: query.max_result_length must be > 0")
	}

	// Apply defaults for zero values
	if config.Query.MaxQueryLength == 0 {
		config.Query.MaxQueryLength = 100000
	}
	if config.Query.MaxResultLength == 0 {
		config.Query.MaxResultLength = 100000
	}
	if config.Query.ListTablesTimeoutSeconds == 0 {
		config.Query.ListTablesTimeoutSeconds = config.Query.DefaultTimeoutSeconds
	}

	san, err := sanitize.NewSanitizer(mapSanitizationRules(config.Sanitization))
	if err != nil {
		panic("cqlmcp: " + err.Error())
	}
	matcher, err := errprompt.NewMatcher(mapErrorPromptRules(config.ErrorPrompts))
	if err != nil {
		panic("cqlmcp: " + err.Error())
	}
	timeoutRules := make([]timeout.Rule, len(config.Query.TimeoutRules))
	for i, r := range config.Query.TimeoutRules {
		timeoutRules[i] = timeout.Rule{
			Pattern: r.Pattern,
			Timeout: time.Duration(r.TimeoutSeconds) * time.Second,
		}
	}
	tmgr, err := timeout.NewManager(timeout.Config{
		DefaultTimeout: time.Duration(config.Query.DefaultTimeoutSeconds) * time.Second,
		Rules:          timeoutRules,
	})
	if err != nil {
		panic("cqlmcp: " + err.Error())
	}
	ltmgr, err := timeout.NewManager(timeout.Config{
		DefaultTimeout: time.Duration(config.Query.ListTablesTimeoutSeconds) * time.Second,
	})
	if err != nil {
		panic("cqlmcp: " + err.Error())
	}

	var sem chan struct{}
	if config.Query.MaxConcurrent > 0 {
		sem = make(chan struct{}, config.Query.MaxConcurrent)
	}

	return &CassandraMcp{
		config:     config,
		session:    session,
		semaphore:  sem,
		sanitizer:  san,
		errPrompts: matcher,
		timeoutMgr: tmgr,
		listTables: ltmgr,
		metrics:    o.metrics,
		logger:     logger,
	}
}

// Close closes the session. Only the first call reaches the session, later
// calls return the same result.
func (c *CassandraMcp) Close() error {
	c.closeOnce.Do(func() {
		if err := c.session.Close(); err != nil {
			c.closeErr = &ConnectionError{Op: "close", Err: err}
		}
	})
	return c.closeErr
}

// Keyspace returns the keyspace list_tables reports on.
func (c *CassandraMcp) Keyspace() string {
	return c.config.Keyspace
}

// mapSanitizationRules converts cqlmcp SanitizationRules to internal sanitize.Rules.
func mapSanitizationRules(rules []SanitizationRule) []sanitize.Rule {
	result := make([]sanitize.Rule, len(rules))
	for i, r := range rules {
		result[i] = sanitize.Rule{
			Pattern:     r.Pattern,
			Replacement: r.Replacement,
			Column:      r.Column,
		}
	}
	return result
}

// mapErrorPromptRules converts cqlmcp ErrorPromptRules to internal errprompt.Rules.
func mapErrorPromptRules(rules []ErrorPromptRule) []errprompt.Rule {
	result := make([]errprompt.Rule, len(rules))
	for i, r := range rules {
		result[i] = errprompt.Rule{
			Pattern: r.Pattern,
			Message: r.Message,
		}
	}
	return result
}

