package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testDB returns the path of a fresh database file.
func testDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "nested.db")
}

// execute runs the root command against db and returns stdout.
func execute(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--db", db}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// mustExecute runs the root command and fails the test on error.
func mustExecute(t *testing.T, db string, args ...string) string {
	t.Helper()
	out, err := execute(t, db, args...)
	require.NoError(t, err, "args: %v", args)
	return out
}

// rawResponse is a CLIResponse whose data is kept as raw JSON.
type rawResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

// executeJSON runs the root command with --format json and decodes the
// response.
func executeJSON(t *testing.T, db string, args ...string) (rawResponse, error) {
	t.Helper()
	out, err := execute(t, db, append([]string{"--format", "json"}, args...)...)
	var resp rawResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp, err
}
