package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nested/internal/ir"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E001", "put failed", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "put failed", resp.Error.Message)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"key": "a/b", "value": "1.5"}
	err := formatter.Error("E002", "invalid value", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("Created log main")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Created log main")
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("E001", "put failed", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]")
	assert.Contains(t, buf.String(), "put failed")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"key": "a/b"}
	err := formatter.Error("E001", "put failed", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name     string
		verbose  bool
		wantLog  bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("replayed %d entries", 3)

			if tt.wantLog {
				assert.Contains(t, buf.String(), "replayed 3 entries")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "json",
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   true,
	}

	formatter.VerboseLog("opened %s", "main")
	assert.Empty(t, out.String())
	assert.Equal(t, "opened main\n", errOut.String())
}

func TestOutputFormatter_Emit(t *testing.T) {
	text := func(w io.Writer) error {
		_, err := fmt.Fprintln(w, "human")
		return err
	}

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf}
		require.NoError(t, formatter.Emit(WriteResult{Op: "PUT"}, text))
		assert.Equal(t, "human\n", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, formatter.Emit(WriteResult{Op: "PUT", Key: "a", Hash: "h"}, text))
		assert.Equal(t, `{"status":"ok","data":{"op":"PUT","key":"a","hash":"h"}}`+"\n", buf.String())
	})
}

func TestOutputFormatter_Fail(t *testing.T) {
	cause := errors.New("boom")

	t.Run("text leaves printing to the caller", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf}
		err := formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", cause)

		require.Error(t, err)
		assert.Empty(t, buf.String())
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "failed to open database: boom", err.Error())
	})

	t.Run("json writes an error response", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}
		err := formatter.Fail(ExitFailure, ErrCodeNotFound, "get a", cause)
		assert.Equal(t, ExitFailure, GetExitCode(err))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
		assert.Equal(t, "get a", resp.Error.Message)
		assert.Equal(t, "boom", resp.Error.Details)
	})
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitFailure, "failed"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestWriteValueKeepsTreeOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	v := ir.NewTree(
		ir.F("z", ir.Int(1)),
		ir.F("a", ir.NewTree(ir.F("b", ir.String("c")))),
	)

	require.NoError(t, writeValue(buf, v))
	assert.Equal(t, "{\n  \"z\": 1,\n  \"a\": {\n    \"b\": \"c\"\n  }\n}\n", buf.String())

	raw, err := jsonValue(v)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":{"b":"c"}}`, string(raw))
}
