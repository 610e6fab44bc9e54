package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/nested/internal/ir"
)

// marshalValue converts a payload value to canonical JSON TEXT.
// An absent value is stored as NULL.
func marshalValue(v ir.Value) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal value: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalValue parses stored JSON TEXT back into a value, keeping tree
// field order. NULL is an absent value.
func unmarshalValue(data sql.NullString) (ir.Value, error) {
	if !data.Valid {
		return nil, nil
	}
	v, err := ir.UnmarshalValue([]byte(data.String))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

func marshalKey(key *string) sql.NullString {
	if key == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *key, Valid: true}
}

func unmarshalKey(key sql.NullString) *string {
	if !key.Valid {
		return nil
	}
	k := key.String
	return &k
}

func marshalPosition(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func unmarshalPosition(p sql.NullFloat64) *float64 {
	if !p.Valid {
		return nil
	}
	v := p.Float64
	return &v
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntry reads hash, seq, op, key, value, position.
func scanEntry(row rowScanner) (ir.Entry, error) {
	var (
		e        ir.Entry
		op       string
		key      sql.NullString
		value    sql.NullString
		position sql.NullFloat64
	)
	if err := row.Scan(&e.Hash, &e.Seq, &op, &key, &value, &position); err != nil {
		return ir.Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	v, err := unmarshalValue(value)
	if err != nil {
		return ir.Entry{}, fmt.Errorf("entry %s: %w", e.Hash, err)
	}
	e.Operation = ir.Operation{
		Op:       ir.OpType(op),
		Key:      unmarshalKey(key),
		Value:    v,
		Position: unmarshalPosition(position),
	}
	return e, nil
}
