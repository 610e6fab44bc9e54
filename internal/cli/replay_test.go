package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nested/internal/ir"
	"github.com/roach88/nested/internal/nested"
	"github.com/roach88/nested/internal/store"
)

// seedLog writes a few operations straight through the nested API.
func seedLog(t *testing.T, dbPath string) {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	log, err := st.CreateLog(ctx, DefaultLog)
	require.NoError(t, err)

	db := nested.New(log)
	_, err = db.Put(ctx, "a", ir.Int(1))
	require.NoError(t, err)
	_, err = db.Put(ctx, "b", ir.NewTree(ir.F("c", ir.String("x"))))
	require.NoError(t, err)
	_, err = db.Put(ctx, "a", ir.Int(2))
	require.NoError(t, err)
	_, err = db.Del(ctx, "b")
	require.NoError(t, err)
	_, err = db.Move(ctx, "a", 0)
	require.NoError(t, err)
}

func TestReplayMissingLog(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: testDB(t), Log: DefaultLog}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "not found")
}

func TestReplayEmptyLog(t *testing.T) {
	dbPath := testDB(t)
	mustExecute(t, dbPath, "new")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: dbPath, Log: DefaultLog}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Entries: 0")
	assert.Contains(t, buf.String(), "✓ Replay verified deterministic")
}

func TestReplayText(t *testing.T) {
	dbPath := testDB(t)
	seedLog(t, dbPath)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: dbPath, Log: DefaultLog, Verbose: true}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Replay Summary: log main")
	assert.Contains(t, output, "Entries: 5")
	assert.Contains(t, output, "Live: 1")
	assert.Contains(t, output, "Tombstones: 1")
	assert.Contains(t, output, "Moves: 1")
	assert.Contains(t, output, "Hash: ")
	assert.Contains(t, output, "✓ Replay verified deterministic")
}

func TestReplayJSON(t *testing.T) {
	dbPath := testDB(t)
	seedLog(t, dbPath)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json", Database: dbPath, Log: DefaultLog}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	var response struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)

	res := response.Data
	assert.Equal(t, "main", res.Log)
	assert.True(t, res.Deterministic)
	assert.Equal(t, 5, res.Summary.Entries)
	assert.Equal(t, 1, res.Summary.Live)
	assert.NotEmpty(t, res.Head)

	// The replay hash is the hash of the materialized view.
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	log, err := st.OpenLog(context.Background(), DefaultLog)
	require.NoError(t, err)
	want, err := nested.New(log).Hash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, res.Hash)
}
