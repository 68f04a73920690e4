package cql

import (
	"errors"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ListTablesCQL reads table names of one keyspace from the schema catalog.
const ListTablesCQL = "SELECT table_name FROM system_schema.tables WHERE keyspace_name = ?"

// ErrEmptyClause is returned when a mapping that drives a clause has no entries.
var ErrEmptyClause = errors.New("clause requires at least one column")

// Fields is an ordered column -> value mapping. Column lists and bound values
// are always read from the same traversal, so they cannot drift apart.
type Fields = orderedmap.OrderedMap[string, any]

// Columns is an ordered column -> CQL type mapping used by CREATE TABLE.
type Columns = orderedmap.OrderedMap[string, string]

// NewFields builds Fields from alternating name, value arguments.
// Panics if a name is not a string.
func NewFields(kv ...any) *Fields {
	f := orderedmap.New[string, any]()
	for i := 0; i+1 < len(kv); i += 2 {
		f.Set(kv[i].(string), kv[i+1])
	}
	return f
}

// NewColumns builds Columns from alternating name, type arguments.
func NewColumns(kv ...string) *Columns {
	c := orderedmap.New[string, string]()
	for i := 0; i+1 < len(kv); i += 2 {
		c.Set(kv[i], kv[i+1])
	}
	return c
}

// Statement is CQL text with positional bind markers and the values bound to
// them, in marker order.
type Statement struct {
	Text string
	Args []any
}

// Named is a value bound by bind-marker name instead of position.
type Named struct {
	Name  string
	Value any
}

// PrimaryKey lists primary key columns. The first entry is the partition key,
// the rest are clustering columns. A single entry is a plain primary key.
type PrimaryKey []string

// Clause renders the PRIMARY KEY clause.
func (pk PrimaryKey) Clause() (string, error) {
	switch len(pk) {
	case 0:
		return "", errors.New("primary key requires at least one column")
	case 1:
		return fmt.Sprintf("PRIMARY KEY (%s)", pk[0]), nil
	default:
		return fmt.Sprintf("PRIMARY KEY ((%s), %s)", pk[0], strings.Join(pk[1:], ", ")), nil
	}
}

// CreateTable builds an idempotent CREATE TABLE statement. Column definitions
// keep the order of columns.
func CreateTable(table string, columns *Columns, pk PrimaryKey) (Statement, error) {
	if err := checkTable(table); err != nil {
		return Statement{}, err
	}
	if columns == nil || columns.Len() == 0 {
		return Statement{}, fmt.Errorf("create table %s: schema: %w", table, ErrEmptyClause)
	}
	defs := make([]string, 0, columns.Len()+1)
	for pair := columns.Oldest(); pair != nil; pair = pair.Next() {
		defs = append(defs, pair.Key+" "+pair.Value)
	}
	pkClause, err := pk.Clause()
	if err != nil {
		return Statement{}, fmt.Errorf("create table %s: %w", table, err)
	}
	defs = append(defs, pkClause)
	return Statement{
		Text: fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", ")),
	}, nil
}

// Insert builds INSERT INTO table (c1, c2) VALUES (?, ?).
func Insert(table string, values *Fields) (Statement, error) {
	if err := checkTable(table); err != nil {
		return Statement{}, err
	}
	if values == nil || values.Len() == 0 {
		return Statement{}, fmt.Errorf("insert into %s: data: %w", table, ErrEmptyClause)
	}
	cols := make([]string, 0, values.Len())
	marks := make([]string, 0, values.Len())
	args := make([]any, 0, values.Len())
	for pair := values.Oldest(); pair != nil; pair = pair.Next() {
		cols = append(cols, pair.Key)
		marks = append(marks, "?")
		args = append(args, pair.Value)
	}
	return Statement{
		Text: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(marks, ", ")),
		Args: args,
	}, nil
}

// Update builds UPDATE table SET a = ? WHERE k = ? AND j = ?.
// Args are the SET values followed by the WHERE values.
func Update(table string, values, conditions *Fields) (Statement, error) {
	if err := checkTable(table); err != nil {
		return Statement{}, err
	}
	if values == nil || values.Len() == 0 {
		return Statement{}, fmt.Errorf("update %s: data: %w", table, ErrEmptyClause)
	}
	if conditions == nil || conditions.Len() == 0 {
		return Statement{}, fmt.Errorf("update %s: conditions: %w", table, ErrEmptyClause)
	}
	args := make([]any, 0, values.Len()+conditions.Len())
	set, args := assignments(values, args)
	where, args := assignments(conditions, args)
	return Statement{
		Text: fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(set, ", "), strings.Join(where, " AND ")),
		Args: args,
	}, nil
}

// Delete builds DELETE FROM table WHERE k = ? AND j = ?.
func Delete(table string, conditions *Fields) (Statement, error) {
	if err := checkTable(table); err != nil {
		return Statement{}, err
	}
	if conditions == nil || conditions.Len() == 0 {
		return Statement{}, fmt.Errorf("delete from %s: conditions: %w", table, ErrEmptyClause)
	}
	where, args := assignments(conditions, make([]any, 0, conditions.Len()))
	return Statement{
		Text: fmt.Sprintf("DELETE FROM %s WHERE %s", table, strings.Join(where, " AND ")),
		Args: args,
	}, nil
}

// assignments renders "col = ?" for every field and appends the field values
// to args in the same pass.
func assignments(f *Fields, args []any) ([]string, []any) {
	parts := make([]string, 0, f.Len())
	for pair := f.Oldest(); pair != nil; pair = pair.Next() {
		parts = append(parts, pair.Key+" = ?")
		args = append(args, pair.Value)
	}
	return parts, args
}

func checkTable(table string) error {
	if strings.TrimSpace(table) == "" {
		return errors.New("table name must be non-empty")
	}
	return nil
}
