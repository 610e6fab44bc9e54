package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/nested/internal/ir"
)

// ParseValue parses a command-line value written in CUE (JSON is valid
// CUE). Struct fields keep their declaration order. Floats and
// non-concrete values are rejected.
func ParseValue(src string) (ir.Value, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("parse value: %w", err)
	}
	return convertCUE(v)
}

// LoadValueFile reads a .cue or .json file and parses it like ParseValue.
func LoadValueFile(path string) (ir.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read value file: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cuecontext.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("parse value file: %w", err)
	}
	return convertCUE(v)
}

// convertCUE converts a concrete CUE value into a Value.
func convertCUE(v cue.Value) (ir.Value, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("value must be concrete: %w", err)
	}

	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, err
		}
		return ir.Bool(b), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, err
		}
		return ir.Int(i), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		return ir.String(s), nil
	case cue.FloatKind, cue.NumberKind:
		return nil, fmt.Errorf("%w: %v", ir.ErrFloat, v)
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		arr := ir.Array{}
		for i := 0; iter.Next(); i++ {
			elem, err := convertCUE(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		tree := ir.NewTree()
		for iter.Next() {
			elem, err := convertCUE(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", iter.Label(), err)
			}
			tree.Set(iter.Label(), elem)
		}
		return tree, nil
	default:
		return nil, fmt.Errorf("unsupported value kind %v", v.Kind())
	}
}

// readValue resolves the value argument of a write command: a literal
// argument, a --file, or a raw string with --raw.
func readValue(args []string, file string, raw bool) (ir.Value, error) {
	switch {
	case file != "" && len(args) > 0:
		return nil, fmt.Errorf("give either a value argument or --file, not both")
	case file != "":
		return LoadValueFile(file)
	case len(args) == 0:
		return nil, nil
	case raw:
		return ir.String(args[0]), nil
	default:
		return ParseValue(args[0])
	}
}
