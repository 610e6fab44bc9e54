package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/nested/internal/ir"
)

// Snapshot captures the outcome of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	Steps        []StepRecord
	Live         []LiveEntry
	State        *ir.Tree
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles Values and primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Steps))
	for i, step := range s.Steps {
		m := map[string]any{
			"op": step.Op,
		}
		if step.Seq != 0 {
			m["seq"] = step.Seq
		}
		if step.Key != "" {
			m["key"] = step.Key
		}
		if step.Position != "" {
			m["position"] = step.Position
		}
		if step.Error != "" {
			m["error"] = step.Error
		}
		steps[i] = m
	}

	live := make([]any, len(s.Live))
	for i, entry := range s.Live {
		m := map[string]any{
			"key": entry.Key,
		}
		if entry.Position != "" {
			m["position"] = entry.Position
		}
		live[i] = m
	}

	state := s.State
	if state == nil {
		state = ir.NewTree()
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"steps":         steps,
		"live":          live,
		"state":         state,
	}
}

// Marshal returns the canonical JSON form used in golden files.
func (s *Snapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{
		ScenarioName: scenarioName,
		Steps:        result.Steps,
		Live:         result.Live,
		State:        result.State,
	}
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
