package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/nested/internal/ir"
	"github.com/roach88/nested/internal/keys"
	"github.com/roach88/nested/internal/nested"
	"github.com/roach88/nested/internal/replay"
)

// AssertionError is returned when an assertion fails.
// It includes the live entries to help debug the failure.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Live     []LiveEntry // Live entries for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Live) > 0 {
		fmt.Fprintf(&buf, "\nLive entries (newest first):\n")
		for i, entry := range e.Live {
			if entry.Position != "" {
				fmt.Fprintf(&buf, "  [%d] %s @%s\n", i+1, entry.Key, entry.Position)
			} else {
				fmt.Fprintf(&buf, "  [%d] %s\n", i+1, entry.Key)
			}
		}
	}

	return buf.String()
}

// AssertionContext carries what assertions need to query the view.
type AssertionContext struct {
	DB  *nested.DB
	Ctx context.Context
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertState:
		return assertState(result, a)
	case AssertGet:
		return assertGet(actx, result, a)
	case AssertNotFound:
		return assertNotFound(actx, result, a)
	case AssertOrder:
		return assertOrder(result, a)
	case AssertIter:
		return assertIter(actx, result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertState checks the whole view, including sibling order.
func assertState(result *Result, a Assertion) error {
	want, err := nodeValue(&a.Value)
	if err != nil {
		return fmt.Errorf("state value: %w", err)
	}
	if !ir.Equal(want, result.State) {
		return &AssertionError{
			Type:     AssertState,
			Expected: render(want),
			Actual:   render(result.State),
			Live:     result.Live,
		}
	}
	return nil
}

// assertGet checks the value at a key through DB.Get.
func assertGet(actx *AssertionContext, result *Result, a Assertion) error {
	want, err := nodeValue(&a.Value)
	if err != nil {
		return fmt.Errorf("get value: %w", err)
	}

	got, err := actx.DB.Get(actx.Ctx, a.Key)
	if err != nil {
		return &AssertionError{
			Type:     AssertGet,
			Expected: fmt.Sprintf("%s = %s", a.Key, render(want)),
			Actual:   err.Error(),
			Live:     result.Live,
		}
	}
	if !ir.Equal(want, got) {
		return &AssertionError{
			Type:     AssertGet,
			Expected: fmt.Sprintf("%s = %s", a.Key, render(want)),
			Actual:   fmt.Sprintf("%s = %s", a.Key, render(got)),
			Live:     result.Live,
		}
	}
	return nil
}

// assertNotFound checks that nothing live sits at a key.
func assertNotFound(actx *AssertionContext, result *Result, a Assertion) error {
	got, err := actx.DB.Get(actx.Ctx, a.Key)
	if nested.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", a.Key, err)
	}
	return &AssertionError{
		Type:     AssertNotFound,
		Expected: fmt.Sprintf("%s not found", a.Key),
		Actual:   fmt.Sprintf("%s = %s", a.Key, render(got)),
		Live:     result.Live,
	}
}

// assertOrder checks the child order of a key in the final view.
func assertOrder(result *Result, a Assertion) error {
	var node ir.Value = result.State
	if a.Key != "" {
		for _, seg := range keys.Split(a.Key) {
			sub, ok := node.(*ir.Tree)
			if !ok {
				node = nil
				break
			}
			node, _ = sub.Get(seg)
		}
	}

	tree, ok := node.(*ir.Tree)
	if !ok {
		return &AssertionError{
			Type:     AssertOrder,
			Expected: fmt.Sprintf("children of %q: %v", a.Key, a.Keys),
			Actual:   fmt.Sprintf("%q is not a nested value", a.Key),
			Live:     result.Live,
		}
	}
	if got := tree.Keys(); !slices.Equal(got, a.Keys) {
		return &AssertionError{
			Type:     AssertOrder,
			Expected: fmt.Sprintf("children of %q: %v", a.Key, a.Keys),
			Actual:   fmt.Sprintf("children of %q: %v", a.Key, got),
			Live:     result.Live,
		}
	}
	return nil
}

// assertIter checks the keys the iterator yields, newest first.
func assertIter(actx *AssertionContext, result *Result, a Assertion) error {
	var opts []replay.Option
	if a.Amount != nil {
		opts = append(opts, nested.WithAmount(*a.Amount))
	}

	got := []string{}
	for m, err := range actx.DB.Iterator(actx.Ctx, opts...) {
		if err != nil {
			return fmt.Errorf("iterate: %w", err)
		}
		got = append(got, m.Key)
	}

	if !slices.Equal(got, a.Keys) {
		return &AssertionError{
			Type:     AssertIter,
			Expected: fmt.Sprintf("%v", a.Keys),
			Actual:   fmt.Sprintf("%v", got),
			Live:     result.Live,
		}
	}
	return nil
}

func render(v ir.Value) string {
	if v == nil {
		return "<absent>"
	}
	data, err := ir.MarshalValue(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}
