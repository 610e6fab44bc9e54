package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"
	"unicode/utf16"
)

// ErrFloat is returned when a float is found where a Value is expected.
// Floats are forbidden in values because they break canonical hashing.
var ErrFloat = errors.New("floats are forbidden in values")

// Value is a sealed interface representing the values stored under a key.
// Leaves are Null, String, Int, Bool and Array; *Tree is the nested mapping.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null represents an explicit null leaf.
// A nil Value means "absent", which is different from Null.
type Null struct{}

func (Null) irValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a string leaf.
type String string

func (String) irValue() {}

// Int is an integer leaf. Always int64, never float64.
type Int int64

func (Int) irValue() {}

// Bool is a boolean leaf.
type Bool bool

func (Bool) irValue() {}

// Array is an opaque list leaf. Arrays are never descended into by
// flatten/nest; they are replaced as a whole.
type Array []Value

func (Array) irValue() {}

// Tree is the nested mapping: segment -> Value with unique keys.
// Insertion order is significant, it encodes sibling display order.
//
// The zero value is an empty tree ready for use.
type Tree struct {
	keys []string
	vals map[string]Value
}

func (*Tree) irValue() {}

// Field is a key-value pair for ordered Tree construction.
type Field struct {
	Key   string
	Value Value
}

// F is a shorthand for Field.
// Example: NewTree(F("name", String("cart")), F("count", Int(5)))
func F(key string, value Value) Field {
	return Field{Key: key, Value: value}
}

// NewTree creates a tree from fields in the given order.
// A repeated key keeps its first slot and takes the last value.
func NewTree(fields ...Field) *Tree {
	t := &Tree{vals: make(map[string]Value, len(fields))}
	for _, f := range fields {
		t.Set(f.Key, f.Value)
	}
	return t
}

// Len returns the number of keys in the tree. A nil tree is empty.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns a copy of the keys in insertion order.
func (t *Tree) Keys() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.keys)
}

// Get returns the value stored under key.
func (t *Tree) Get(key string) (Value, bool) {
	if t == nil || t.vals == nil {
		return nil, false
	}
	v, ok := t.vals[key]
	return v, ok
}

// Set stores value under key. Existing keys keep their position;
// new keys are appended.
func (t *Tree) Set(key string, value Value) {
	if t.vals == nil {
		t.vals = make(map[string]Value)
	}
	if _, ok := t.vals[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.vals[key] = value
}

// Delete removes key from the tree.
func (t *Tree) Delete(key string) {
	if t == nil || t.vals == nil {
		return
	}
	if _, ok := t.vals[key]; !ok {
		return
	}
	delete(t.vals, key)
	t.keys = slices.DeleteFunc(t.keys, func(k string) bool { return k == key })
}

// All iterates over the tree in insertion order.
func (t *Tree) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if t == nil {
			return
		}
		for _, k := range t.keys {
			if !yield(k, t.vals[k]) {
				return
			}
		}
	}
}

// SortKeys reorders the keys in canonical (UTF-16 code unit) order.
func (t *Tree) SortKeys() {
	if t == nil {
		return
	}
	slices.SortFunc(t.keys, CompareKeys)
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	out := &Tree{
		keys: slices.Clone(t.keys),
		vals: make(map[string]Value, len(t.vals)),
	}
	for k, v := range t.vals {
		out.vals[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies trees and arrays; other leaves are immutable.
func CloneValue(v Value) Value {
	switch val := v.(type) {
	case *Tree:
		return val.Clone()
	case Array:
		out := make(Array, len(val))
		for i, elem := range val {
			out[i] = CloneValue(elem)
		}
		return out
	default:
		return v
	}
}

// IsTree reports whether v is a (non-nil) nested mapping.
func IsTree(v Value) bool {
	t, ok := v.(*Tree)
	return ok && t != nil
}

// CompareKeys compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
// CRITICAL: Go's default string comparison uses UTF-8 which produces DIFFERENT order.
func CompareKeys(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// MarshalJSON implements json.Marshaler for Tree, keeping insertion order.
// NOTE: This is NOT canonical marshaling. Use MarshalCanonical for hashing.
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range t.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalValue(t.vals[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler for Tree, keeping document order.
func (t *Tree) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	tree, ok := v.(*Tree)
	if !ok {
		return fmt.Errorf("expected JSON object, got %T", v)
	}
	*t = *tree
	return nil
}

// MarshalValue marshals a Value to JSON bytes.
// Uses type-switch dispatch to handle all Value types correctly.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Int:
		return json.Marshal(int64(val))
	case Bool:
		return json.Marshal(bool(val))
	case Array:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			elemBytes, err := MarshalValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			buf.Write(elemBytes)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case *Tree:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// UnmarshalValue decodes JSON into a Value, keeping object key order.
// JSON null becomes Null; floats are rejected with ErrFloat.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch tv := tok.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(tv), nil
	case string:
		return String(tv), nil
	case json.Number:
		return numberValue(tv)
	case json.Delim:
		switch tv {
		case '{':
			tree := NewTree()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not string", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, fmt.Errorf("object[%q]: %w", key, err)
				}
				tree.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return tree, nil
		case '[':
			arr := Array{}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, fmt.Errorf("array[%d]: %w", len(arr), err)
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}

func numberValue(n json.Number) (Value, error) {
	s := string(n)
	if strings.ContainsAny(s, ".eE") {
		return nil, fmt.Errorf("%w: %s", ErrFloat, s)
	}
	i, err := n.Int64()
	if err != nil {
		return nil, fmt.Errorf("number out of int64 range: %s", s)
	}
	return Int(i), nil
}

// FromAny converts a plain Go value into a Value.
// map[string]any has no order, so its keys are taken in canonical order;
// use *Tree or []Field to keep a specific order.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case bool:
		return Bool(val), nil
	case float32, float64:
		return nil, fmt.Errorf("%w: %v", ErrFloat, val)
	case json.Number:
		return numberValue(val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			converted, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = converted
		}
		return arr, nil
	case []Field:
		tree := NewTree()
		for _, f := range val {
			tree.Set(f.Key, f.Value)
		}
		return tree, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, CompareKeys)
		tree := NewTree()
		for _, k := range keys {
			converted, err := FromAny(val[k])
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			tree.Set(k, converted)
		}
		return tree, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// CheckValue walks v and rejects values that cannot be stored.
// nil children inside trees and arrays are rejected too; use nest.Prune
// to drop them first.
func CheckValue(v Value) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("value is absent")
	case Null, String, Int, Bool:
		return nil
	case Array:
		for i, elem := range val {
			if err := CheckValue(elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		return nil
	case *Tree:
		if val == nil {
			return fmt.Errorf("value is absent")
		}
		for k, elem := range val.All() {
			if err := CheckValue(elem); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown Value type: %T", v)
	}
}
