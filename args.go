package cqlmcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"

	"github.com/rickchristie/cassandra-mcp/internal/cql"
)

// Arguments arrive as raw JSON so object key order survives: the order of
// "data", "conditions" and "schema" decides column order in the built
// statement. Numbers decode as json.Number and are converted against the
// target column type at bind time.

func parseExecuteQuery(args []byte) (ExecuteQueryInput, error) {
	query, err := jsonparser.GetString(args, "query")
	if err != nil {
		return ExecuteQueryInput{}, fmt.Errorf("query: %w", err)
	}
	in := ExecuteQueryInput{Query: query}

	value, dataType, _, err := jsonparser.Get(args, "params")
	switch {
	case dataType == jsonparser.NotExist || dataType == jsonparser.Null:
		return in, nil
	case err != nil:
		return ExecuteQueryInput{}, fmt.Errorf("params: %w", err)
	case dataType == jsonparser.Object:
		in.Params.Named, err = decodeFields(value)
	case dataType == jsonparser.Array:
		in.Params.Positional, err = decodeArray(value)
	default:
		err = fmt.Errorf("must be an object or an array, got %s", dataType)
	}
	if err != nil {
		return ExecuteQueryInput{}, fmt.Errorf("params: %w", err)
	}
	return in, nil
}

func parseCreateTable(args []byte) (CreateTableInput, error) {
	table, err := jsonparser.GetString(args, "tableName")
	if err != nil {
		return CreateTableInput{}, fmt.Errorf("tableName: %w", err)
	}
	schemaValue, _, _, err := jsonparser.Get(args, "schema")
	if err != nil {
		return CreateTableInput{}, fmt.Errorf("schema: %w", err)
	}
	columns := cql.NewColumns()
	err = jsonparser.ObjectEach(schemaValue, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		if dataType != jsonparser.String {
			return fmt.Errorf("column %s: type must be a string", key)
		}
		typ, err := jsonparser.ParseString(value)
		if err != nil {
			return fmt.Errorf("column %s: %w", key, err)
		}
		columns.Set(string(key), typ)
		return nil
	})
	if err != nil {
		return CreateTableInput{}, fmt.Errorf("schema: %w", err)
	}
	pk, err := parsePrimaryKey(args)
	if err != nil {
		return CreateTableInput{}, fmt.Errorf("primaryKey: %w", err)
	}
	return CreateTableInput{TableName: table, Schema: columns, PrimaryKey: pk}, nil
}

// parsePrimaryKey accepts "id" or ["id", "ts"]. A one-element array is the
// same key as the bare string.
func parsePrimaryKey(args []byte) (cql.PrimaryKey, error) {
	value, dataType, _, err := jsonparser.Get(args, "primaryKey")
	if err != nil {
		return nil, err
	}
	switch dataType {
	case jsonparser.String:
		name, err := jsonparser.ParseString(value)
		if err != nil {
			return nil, err
		}
		return cql.PrimaryKey{name}, nil
	case jsonparser.Array:
		var (
			pk      cql.PrimaryKey
			eachErr error
		)
		_, err := jsonparser.ArrayEach(value, func(elem []byte, dataType jsonparser.ValueType, _ int, _ error) {
			if eachErr != nil {
				return
			}
			if dataType != jsonparser.String {
				eachErr = fmt.Errorf("elements must be strings, got %s", dataType)
				return
			}
			name, err := jsonparser.ParseString(elem)
			if err != nil {
				eachErr = err
				return
			}
			pk = append(pk, name)
		})
		if err == nil {
			err = eachErr
		}
		return pk, err
	default:
		return nil, fmt.Errorf("must be a string or an array of strings, got %s", dataType)
	}
}

func parseInsertData(args []byte) (InsertDataInput, error) {
	table, err := jsonparser.GetString(args, "tableName")
	if err != nil {
		return InsertDataInput{}, fmt.Errorf("tableName: %w", err)
	}
	data, err := objectField(args, "data")
	if err != nil {
		return InsertDataInput{}, err
	}
	return InsertDataInput{TableName: table, Data: data}, nil
}

func parseUpdateData(args []byte) (UpdateDataInput, error) {
	table, err := jsonparser.GetString(args, "tableName")
	if err != nil {
		return UpdateDataInput{}, fmt.Errorf("tableName: %w", err)
	}
	data, err := objectField(args, "data")
	if err != nil {
		return UpdateDataInput{}, err
	}
	conditions, err := objectField(args, "conditions")
	if err != nil {
		return UpdateDataInput{}, err
	}
	return UpdateDataInput{TableName: table, Data: data, Conditions: conditions}, nil
}

func parseDeleteData(args []byte) (DeleteDataInput, error) {
	table, err := jsonparser.GetString(args, "tableName")
	if err != nil {
		return DeleteDataInput{}, fmt.Errorf("tableName: %w", err)
	}
	conditions, err := objectField(args, "conditions")
	if err != nil {
		return DeleteDataInput{}, err
	}
	return DeleteDataInput{TableName: table, Conditions: conditions}, nil
}

func objectField(args []byte, key string) (*cql.Fields, error) {
	value, dataType, _, err := jsonparser.Get(args, key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if dataType != jsonparser.Object {
		return nil, fmt.Errorf("%s: must be an object, got %s", key, dataType)
	}
	fields, err := decodeFields(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return fields, nil
}

// decodeFields walks a JSON object in document order.
func decodeFields(object []byte) (*cql.Fields, error) {
	fields := cql.NewFields()
	err := jsonparser.ObjectEach(object, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		v, err := decodeValue(value, dataType)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		fields.Set(string(key), v)
		return nil
	})
	return fields, err
}

func decodeArray(array []byte) ([]any, error) {
	out := make([]any, 0)
	var eachErr error
	_, err := jsonparser.ArrayEach(array, func(elem []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if eachErr != nil {
			return
		}
		v, err := decodeValue(elem, dataType)
		if err != nil {
			eachErr = fmt.Errorf("[%d]: %w", len(out), err)
			return
		}
		out = append(out, v)
	})
	if err == nil {
		err = eachErr
	}
	return out, err
}

// decodeValue converts one JSON value as returned by jsonparser (strings
// without their quotes) into nil, bool, string, json.Number, []any or
// map[string]any.
func decodeValue(value []byte, dataType jsonparser.ValueType) (any, error) {
	switch dataType {
	case jsonparser.Null:
		return nil, nil
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(value)
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Number:
		return json.Number(value), nil
	case jsonparser.Object, jsonparser.Array:
		dec := json.NewDecoder(bytes.NewReader(value))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, errors.New("unsupported JSON value")
	}
}
