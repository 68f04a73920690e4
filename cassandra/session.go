// Package cassandra runs CQL statements on a gocql session. *Session
// satisfies cqlmcp.Session.
package cassandra

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gocql/gocql"
	"github.com/rs/zerolog"

	"github.com/rickchristie/cassandra-mcp/internal/normalize"
)

// Config is the session's own config type.
type Config struct {
	Hosts          []string
	Port           int
	LocalDC        string
	Keyspace       string
	Username       string
	Password       string
	Consistency    string
	ProtoVersion   int
	ConnectTimeout time.Duration
	Timeout        time.Duration

	// RetryMaxElapsed bounds how long Connect keeps retrying session
	// creation. 0 means a single attempt.
	RetryMaxElapsed time.Duration
}

// Session executes CQL statements on a gocql session.
// Safe for concurrent use.
type Session struct {
	session *gocql.Session
	logger  zerolog.Logger
}

// Connect opens a session to the cluster.
func Connect(ctx context.Context, config Config, logger zerolog.Logger) (*Session, error) {
	if len(config.Hosts) == 0 {
		return nil, errors.New("at least one contact point is required")
	}
	cluster, err := newClusterConfig(config)
	if err != nil {
		return nil, err
	}

	create := func() (*gocql.Session, error) {
		return cluster.CreateSession()
	}

	var session *gocql.Session
	if config.RetryMaxElapsed <= 0 {
		session, err = create()
	} else {
		attempt := 0
		session, err = backoff.Retry(ctx, func() (*gocql.Session, error) {
			attempt++
			if attempt > 1 {
				logger.Warn().Int("attempt", attempt).Msg("retrying cassandra connection")
			}
			return create()
		},
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxElapsedTime(config.RetryMaxElapsed),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	logger.Info().
		Strs("contact_points", config.Hosts).
		Str("local_dc", config.LocalDC).
		Str("keyspace", config.Keyspace).
		Msg("connected to cassandra cluster")
	return &Session{session: session, logger: logger}, nil
}

func newClusterConfig(config Config) (*gocql.ClusterConfig, error) {
	cluster := gocql.NewCluster(config.Hosts...)
	if config.Port > 0 {
		cluster.Port = config.Port
	}
	cluster.Keyspace = config.Keyspace
	if config.Username != "" || config.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}
	if config.LocalDC != "" {
		cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(
			gocql.DCAwareRoundRobinPolicy(config.LocalDC),
		)
	}
	if config.Consistency != "" {
		c, err := gocql.ParseConsistencyWrapper(config.Consistency)
		if err != nil {
			return nil, fmt.Errorf("invalid consistency %q: %w", config.Consistency, err)
		}
		cluster.Consistency = c
	}
	if config.ProtoVersion > 0 {
		cluster.ProtoVersion = config.ProtoVersion
	}
	if config.ConnectTimeout > 0 {
		cluster.ConnectTimeout = config.ConnectTimeout
	}
	if config.Timeout > 0 {
		cluster.Timeout = config.Timeout
	}
	return cluster, nil
}

// Execute runs one statement with positional (or cql.Named) bound values and
// returns its rows. Statements that return no rows yield an empty slice.
func (s *Session) Execute(ctx context.Context, stmt string, args []any) ([]map[string]any, error) {
	iter := s.session.Query(stmt, bindArgs(args)...).WithContext(ctx).Iter()
	cols := iter.Columns()

	rows := make([]map[string]any, 0)
	for {
		dest := scanDest(cols)
		if !iter.Scan(dest...) {
			break
		}
		rows = append(rows, assemble(cols, dest))
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return rows, nil
}

// Close closes the underlying session. gocql shutdown cannot fail, the error
// return satisfies the engine's Session contract.
func (s *Session) Close() error {
	s.session.Close()
	s.logger.Info().Msg("disconnected from cassandra cluster")
	return nil
}

// scanDest allocates one **T per scanned value so NULL columns come back as
// nil instead of Go zero values. Tuple columns scan one value per element.
func scanDest(cols []gocql.ColumnInfo) []any {
	dest := make([]any, 0, len(cols))
	for _, col := range cols {
		if tuple, ok := col.TypeInfo.(gocql.TupleTypeInfo); ok {
			for _, elem := range tuple.Elems {
				dest = append(dest, nullable(elem))
			}
			continue
		}
		dest = append(dest, nullable(col.TypeInfo))
	}
	return dest
}

func nullable(info gocql.TypeInfo) (dest any) {
	defer func() {
		// TypeInfo.New panics for custom types without a Go mapping.
		if recover() != nil {
			var raw *[]byte
			dest = &raw
		}
	}()
	return reflect.New(reflect.TypeOf(info.New())).Interface()
}

// assemble turns scanned values back into one entry per column.
func assemble(cols []gocql.ColumnInfo, dest []any) map[string]any {
	row := make(map[string]any, len(cols))
	i := 0
	for _, col := range cols {
		if tuple, ok := col.TypeInfo.(gocql.TupleTypeInfo); ok {
			elems := make(normalize.Tuple, len(tuple.Elems))
			for j, elem := range tuple.Elems {
				elems[j] = native(elem, dest[i])
				i++
			}
			row[col.Name] = elems
			continue
		}
		row[col.Name] = native(col.TypeInfo, dest[i])
		i++
	}
	return row
}

// native dereferences a **T scan target and tags values whose Go type does not
// identify the CQL type.
func native(info gocql.TypeInfo, p any) any {
	v := reflect.ValueOf(p).Elem()
	if v.IsNil() {
		return nil
	}
	return tagDates(info, v.Elem().Interface())
}

// tagDates marks CQL dates as normalize.Date at any collection depth, since
// gocql scans both date and timestamp into time.Time.
func tagDates(info gocql.TypeInfo, val any) any {
	if val == nil || !hasDate(info) {
		return val
	}
	switch info.Type() {
	case gocql.TypeDate:
		if t, ok := val.(time.Time); ok {
			return normalize.Date(t)
		}
	case gocql.TypeList, gocql.TypeSet:
		coll, ok := info.(gocql.CollectionType)
		rv := reflect.ValueOf(val)
		if !ok || rv.Kind() != reflect.Slice || rv.IsNil() {
			return val
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = tagDates(coll.Elem, rv.Index(i).Interface())
		}
		return out
	case gocql.TypeMap:
		coll, ok := info.(gocql.CollectionType)
		rv := reflect.ValueOf(val)
		if !ok || rv.Kind() != reflect.Map || rv.IsNil() {
			return val
		}
		out := make(map[any]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[tagDates(coll.Key, iter.Key().Interface())] = tagDates(coll.Elem, iter.Value().Interface())
		}
		return out
	case gocql.TypeTuple:
		tuple, ok := info.(gocql.TupleTypeInfo)
		elems, isSlice := val.([]any)
		if !ok || !isSlice || len(elems) != len(tuple.Elems) {
			return val
		}
		out := make(normalize.Tuple, len(elems))
		for i, e := range elems {
			out[i] = tagDates(tuple.Elems[i], e)
		}
		return out
	}
	return val
}

func hasDate(info gocql.TypeInfo) bool {
	switch t := info.(type) {
	case nil:
		return false
	case gocql.CollectionType:
		return hasDate(t.Key) || hasDate(t.Elem)
	case gocql.TupleTypeInfo:
		for _, e := range t.Elems {
			if hasDate(e) {
				return true
			}
		}
		return false
	default:
		return info.Type() == gocql.TypeDate
	}
}
