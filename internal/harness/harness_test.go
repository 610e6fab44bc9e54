package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := mustParse(t, `
name: minimal
description: "Minimal test scenario"
steps:
  - op: PUT
    key: a
    value: 1
assertions:
  - type: state
    value: { a: 1 }
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Steps, 1)
	assert.Equal(t, StepRecord{Seq: 1, Op: "PUT", Key: "a", Position: "0"}, result.Steps[0])
	assert.Equal(t, []LiveEntry{{Key: "a", Position: "0"}}, result.Live)
}

func TestRun_RecordsPositions(t *testing.T) {
	scenario := mustParse(t, `
name: positions
description: "Positions recorded by PUT and MOVE"
steps:
  - { op: PUT, key: a, value: 1 }
  - { op: PUT, key: b, value: 2 }
  - { op: PUT, key: c, value: 3, index: 0 }
  - { op: MOVE, key: a, index: -1 }
assertions:
  - type: order
    keys: [c, b, a]
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)

	positions := make([]string, len(result.Steps))
	for i, s := range result.Steps {
		positions[i] = s.Position
	}
	assert.Equal(t, []string{"0", "1", "-1", "2"}, positions)
}

func TestRun_UnexpectedStepError(t *testing.T) {
	scenario := mustParse(t, `
name: unexpected
description: "MOVE of a missing key without expect_error"
steps:
  - { op: MOVE, key: ghost, index: 0 }
assertions:
  - type: iter
    keys: []
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
	assert.Contains(t, result.Errors[0], "not found")
}

func TestRun_ExpectedErrorNotRaised(t *testing.T) {
	scenario := mustParse(t, `
name: no_error
description: "DEL never fails"
steps:
  - { op: DEL, key: a, expect_error: not_found }
assertions:
  - type: iter
    keys: []
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected error not_found, got success")
	assert.Equal(t, int64(1), result.Steps[0].Seq, "the tombstone is still appended")
}

func TestRun_WrongExpectedError(t *testing.T) {
	scenario := mustParse(t, `
name: wrong_error
description: "MOVE fails with not_found, not missing_value"
steps:
  - { op: MOVE, key: ghost, index: 0, expect_error: missing_value }
assertions:
  - type: iter
    keys: []
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected error missing_value, got")
}

func TestRun_InsertNeedsMapping(t *testing.T) {
	scenario := mustParse(t, `
name: insert_leaf
description: "INSERT of a leaf is a harness error"
steps:
  - { op: INSERT, key: a, value: 1 }
assertions:
  - type: iter
    keys: []
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "INSERT value must be a mapping")
}

func TestRun_FloatValueFails(t *testing.T) {
	scenario := mustParse(t, `
name: float
description: "Float values cannot be converted"
steps:
  - { op: PUT, key: a, value: 1.5 }
assertions:
  - type: iter
    keys: []
`)

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to convert value")
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/move_reorders.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Steps, second.Steps)
	assert.Equal(t, first.Live, second.Live)

	a, err := (&Snapshot{ScenarioName: scenario.Name, Steps: first.Steps, Live: first.Live, State: first.State}).Marshal()
	require.NoError(t, err)
	b, err := (&Snapshot{ScenarioName: scenario.Name, Steps: second.Steps, Live: second.Live, State: second.State}).Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
