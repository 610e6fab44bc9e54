package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nested/internal/ir"
)

// Scenario defines a replay test scenario.
// Scenarios apply a sequence of operations to a fresh log and assert on the
// materialized view that results.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// LogID is an optional fixed log id mixed into entry hashes.
	// If empty, defaults to "test-log-default" so hashes are reproducible.
	LogID string `yaml:"log_id,omitempty"`

	// Steps are applied in order through the nested API.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final view.
	// Supported types: state, get, not_found, order, iter
	Assertions []Assertion `yaml:"assertions"`
}

// Step is a single write.
type Step struct {
	// Op is the operation: PUT, DEL, INSERT or MOVE.
	Op string `yaml:"op"`

	// Key is the slash-separated key. Empty means the root for INSERT.
	Key string `yaml:"key,omitempty"`

	// Value is the PUT value or the INSERT tree. Kept as a node so mapping
	// order survives decoding.
	Value yaml.Node `yaml:"value,omitempty"`

	// Index is the sibling slot for MOVE, and optionally for PUT.
	Index *int `yaml:"index,omitempty"`

	// ExpectError names the error the step must fail with:
	// not_found or missing_value. Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates the final view.
type Assertion struct {
	// Type specifies the assertion type:
	// - "state": the whole view equals Value
	// - "get": the value at Key equals Value
	// - "not_found": nothing live at Key
	// - "order": the children of Key appear as Keys ("" is the root)
	// - "iter": the iterator yields Keys, newest first, bounded by Amount
	Type string `yaml:"type"`

	// Key is the key looked up (get, not_found, order).
	Key string `yaml:"key,omitempty"`

	// Value is the expected value (state, get).
	Value yaml.Node `yaml:"value,omitempty"`

	// Keys is the expected key sequence (order, iter).
	Keys []string `yaml:"keys,omitempty"`

	// Amount bounds the iterator (iter). Nil means unbounded.
	Amount *int `yaml:"amount,omitempty"`
}

// Assertion type constants.
const (
	AssertState    = "state"
	AssertGet      = "get"
	AssertNotFound = "not_found"
	AssertOrder    = "order"
	AssertIter     = "iter"
)

// Expected step error names.
const (
	ExpectNotFound     = "not_found"
	ExpectMissingValue = "missing_value"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s *Step) error {
	switch ir.OpType(s.Op) {
	case ir.OpPut, ir.OpInsert:
		// A missing value is allowed when the step expects the rejection.
		if s.Value.Kind == 0 && s.ExpectError != ExpectMissingValue {
			return fmt.Errorf("steps[%d]: value is required for %s", index, s.Op)
		}
	case ir.OpDel:
		if s.Key == "" {
			return fmt.Errorf("steps[%d]: key is required for DEL", index)
		}
	case ir.OpMove:
		if s.Key == "" {
			return fmt.Errorf("steps[%d]: key is required for MOVE", index)
		}
		if s.Index == nil {
			return fmt.Errorf("steps[%d]: index is required for MOVE", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}

	if ir.OpType(s.Op) == ir.OpPut && s.Key == "" {
		return fmt.Errorf("steps[%d]: key is required for PUT", index)
	}

	switch s.ExpectError {
	case "", ExpectNotFound, ExpectMissingValue:
	default:
		return fmt.Errorf("steps[%d]: unknown expect_error %q", index, s.ExpectError)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertState:
		if a.Value.Kind == 0 {
			return fmt.Errorf("assertions[%d]: value is required for state", index)
		}
	case AssertGet:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for get", index)
		}
		if a.Value.Kind == 0 {
			return fmt.Errorf("assertions[%d]: value is required for get", index)
		}
	case AssertNotFound:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for not_found", index)
		}
	case AssertOrder:
		if a.Keys == nil {
			return fmt.Errorf("assertions[%d]: keys list is required for order", index)
		}
	case AssertIter:
		if a.Keys == nil {
			return fmt.Errorf("assertions[%d]: keys list is required for iter", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// nodeValue converts a YAML node into a Value, keeping mapping order.
// A zero node is an absent value. Floats are rejected.
func nodeValue(n *yaml.Node) (ir.Value, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return nodeValue(n.Content[0])
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	case yaml.MappingNode:
		tree := ir.NewTree()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			val, err := nodeValue(v)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k.Value, err)
			}
			tree.Set(k.Value, val)
		}
		return tree, nil
	case yaml.SequenceNode:
		arr := make(ir.Array, len(n.Content))
		for i, elem := range n.Content {
			val, err := nodeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = val
		}
		return arr, nil
	case yaml.ScalarNode:
		return scalarValue(n)
	default:
		return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
	}
}

func scalarValue(n *yaml.Node) (ir.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return ir.Null{}, nil
	case "!!str":
		return ir.String(n.Value), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return ir.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, err
		}
		return ir.Int(i), nil
	case "!!float":
		return nil, fmt.Errorf("line %d: %w: %s", n.Line, ir.ErrFloat, n.Value)
	default:
		return nil, fmt.Errorf("line %d: unsupported tag %s", n.Line, n.ShortTag())
	}
}
