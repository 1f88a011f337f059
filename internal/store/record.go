package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/relq/internal/ir"
)

// ErrNotFound is returned when a (kind, id) pair has no record.
// It wraps sql.ErrNoRows.
var ErrNotFound = fmt.Errorf("record not found: %w", sql.ErrNoRows)

// ErrInvalidRecord is returned when a record is missing its kind or id, or
// when its fields try to override the id.
var ErrInvalidRecord = errors.New("invalid record")

// Record is one stored row. The id is not part of Fields; Field("id")
// reports it as a string.
type Record struct {
	Kind   string
	ID     string
	Fields ir.IRObject
}

// Field implements expr.Record.
func (r Record) Field(name string) (ir.IRValue, bool) {
	if name == "id" {
		return ir.IRString(r.ID), true
	}
	v, ok := r.Fields[name]
	return v, ok
}

// String formats the record as kind/id for logs and error messages.
func (r Record) String() string {
	return r.Kind + "/" + r.ID
}

func (r Record) validate() error {
	if r.Kind == "" {
		return fmt.Errorf("%w: empty kind", ErrInvalidRecord)
	}
	if r.ID == "" {
		return fmt.Errorf("%w: %s has an empty id", ErrInvalidRecord, r.Kind)
	}
	if _, ok := r.Fields["id"]; ok {
		return fmt.Errorf("%w: %s carries id in its fields", ErrInvalidRecord, r)
	}
	return nil
}

// marshalFields converts fields to canonical JSON TEXT for storage.
func marshalFields(fields ir.IRObject) (string, error) {
	if fields == nil {
		fields = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

// unmarshalFields parses canonical JSON TEXT. Large integers survive
// because ir.IRObject decodes numbers through json.Number.
func unmarshalFields(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return obj, nil
}
