package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../../testdata/scenarios"

const validScenario = `name: tmp-login
description: one login
steps:
  - dispatch: LOGIN
    payload: {username: ada, password: "1234567"}
assertions:
  - type: state
    store: user
    expect: {isAuth: true}
`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidate_RepositoryScenarios(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), scenariosDir)
	require.NoError(t, err)

	assert.Contains(t, out, "(login-success)")
	assert.Contains(t, out, "4 scenario file(s) valid")
}

func TestValidate_SingleFileJSON(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "login.yaml", validScenario)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Files, 1)
	assert.Equal(t, "tmp-login", resp.Data.Files[0].Name)
}

func TestValidate_SchemaViolation(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "good.yaml", validScenario)
	writeScenario(t, dir, "bad.yaml", `name: bad
description: step without dispatch
steps:
  - payload: {username: ada}
assertions: []
`)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ "+filepath.Join(dir, "bad.yaml"))
	assert.Contains(t, out, "dispatch")
	assert.Contains(t, out, "1 of 2 scenario file(s) invalid")
}

func TestValidate_UnknownActionJSON(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "unknown.yaml", `name: unknown
description: dispatches an action nobody declared
steps:
  - dispatch: REGISTER
assertions: []
`)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalid, resp.Error.Code)
	require.Len(t, resp.Data.Files, 1)
	assert.False(t, resp.Data.Files[0].Valid)
	require.NotEmpty(t, resp.Data.Files[0].Errors)
	assert.Contains(t, resp.Data.Files[0].Errors[0], `unknown action "REGISTER"`)
}

func TestValidate_PathNotFound(t *testing.T) {
	_, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "path not found")
}

func TestValidate_EmptyDirectory(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestValidate_MissingArgs(t *testing.T) {
	_, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestValidate_VerboseGoesToStderr(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "login.yaml", validScenario)

	cmd := NewValidateCommand(&RootOptions{Format: "json", Verbose: true})
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{dir})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, errOut.String(), "Found 1 scenario file(s)")
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out.String()), &resp))
}
