package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const avocadoScenario = `name: avocado_albany
description: Picking a geography redraws the price graph
dashboard: avocado
steps:
  - name: pick
    set:
      geography-dropdown.value: Albany
    expect:
      order: [update_graph]
      outcomes:
        update_graph: executed
      values:
        price-graph.figure:
          title: Avocado Prices in Albany
assertions:
  - type: callback_count
    callback: update_graph
    count: 2
`

const brokenScenario = `name: avocado_wrong
description: Expects the wrong title
dashboard: avocado
steps:
  - set:
      geography-dropdown.value: Albany
    expect:
      values:
        price-graph.figure:
          title: Avocado Prices in Boston
`

func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestTestCommand_PassAndGolden(t *testing.T) {
	rootOpts := testRootOptions(t, "text")
	dir := writeScenarios(t, map[string]string{"avocado_albany.yaml": avocadoScenario})

	out, err := execute(NewTestCommand(rootOpts), "", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ avocado_albany")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")

	golden := filepath.Join(dir, "golden", "avocado_albany.golden")
	assert.NoFileExists(t, golden)

	out, err = execute(NewTestCommand(rootOpts), "", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ avocado_albany (golden updated)")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario":"avocado_albany"`)
	assert.Contains(t, string(data), `"writes":["price-graph.figure"]`)

	_, err = execute(NewTestCommand(rootOpts), "", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte(`{}`), 0o644))
	out, err = execute(NewTestCommand(rootOpts), "", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommand_FailureJSON(t *testing.T) {
	rootOpts := testRootOptions(t, "json")
	dir := writeScenarios(t, map[string]string{
		"avocado_albany.yaml": avocadoScenario,
		"avocado_wrong.yml":   brokenScenario,
	})

	out, err := execute(NewTestCommand(rootOpts), "", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	for _, sr := range resp.Data.Scenarios {
		assert.Equal(t, GoldenAbsent, sr.Golden)
		if sr.Name == "avocado_wrong" {
			assert.False(t, sr.Pass)
			require.NotEmpty(t, sr.Errors)
			assert.Contains(t, sr.Errors[0], "Avocado Prices in Boston")
		}
	}
}

func TestTestCommand_Filter(t *testing.T) {
	rootOpts := testRootOptions(t, "text")
	dir := writeScenarios(t, map[string]string{
		"avocado_albany.yaml": avocadoScenario,
		"avocado_wrong.yaml":  brokenScenario,
	})

	out, err := execute(NewTestCommand(rootOpts), "", dir, "--filter", "*albany")
	require.NoError(t, err)
	assert.Contains(t, out, "1 total")
	assert.NotContains(t, out, "avocado_wrong")

	out, err = execute(NewTestCommand(rootOpts), "", dir, "--filter", "nothing*")
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_BadInput(t *testing.T) {
	rootOpts := testRootOptions(t, "text")

	_, err := execute(NewTestCommand(rootOpts), "", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	dir := writeScenarios(t, map[string]string{"bad.yaml": "name: bad\nbogus: true\n"})
	out, err := execute(NewTestCommand(rootOpts), "", dir)
	require.Error(t, err)
	assert.Contains(t, out, "failed to load scenario")
}

func TestCheckGolden(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golden", "x.golden")

	state, err := checkGolden(path, []byte("a"), false)
	require.NoError(t, err)
	assert.Equal(t, GoldenAbsent, state)

	state, err = checkGolden(path, []byte("a"), true)
	require.NoError(t, err)
	assert.Equal(t, GoldenUpdated, state)

	state, err = checkGolden(path, []byte("a"), false)
	require.NoError(t, err)
	assert.Equal(t, GoldenMatched, state)

	state, err = checkGolden(path, []byte("b"), false)
	require.NoError(t, err)
	assert.Equal(t, GoldenMismatch, state)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "golden", "x.golden"), goldenFilePath(filepath.Join("a", "x.yaml")))
}
