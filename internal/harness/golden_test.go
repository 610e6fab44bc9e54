package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nested/internal/ir"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	for _, name := range []string{
		"nested_values",
		"move_reorders",
		"insert_merge",
		"delete_shadowing",
		"overwrite_root_key",
	} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			// Regenerate with: go test ./internal/harness -run TestRunWithGolden -update
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_Marshal(t *testing.T) {
	s := &Snapshot{
		ScenarioName: "tiny",
		Steps: []StepRecord{
			{Seq: 1, Op: "INSERT"},
			{Op: "MOVE", Key: "x", Error: ExpectNotFound},
		},
		Live:  []LiveEntry{{Key: "y"}},
		State: ir.NewTree(ir.F("y", ir.String("<&>"))),
	}

	data, err := s.Marshal()
	require.NoError(t, err)
	assert.Equal(t,
		`{"live":[{"key":"y"}],"scenario_name":"tiny","state":{"y":"<&>"},"steps":[{"op":"INSERT","seq":1},{"error":"not_found","key":"x","op":"MOVE"}]}`,
		string(data))
}

func TestSnapshot_EmptyState(t *testing.T) {
	data, err := (&Snapshot{ScenarioName: "empty"}).Marshal()
	require.NoError(t, err)
	assert.Equal(t, `{"live":[],"scenario_name":"empty","state":{},"steps":[]}`, string(data))
}
