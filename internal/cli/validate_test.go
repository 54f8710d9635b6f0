package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wavedash/internal/dashboards"
)

const brokenDashboards = `
dashboard: loop: {
	components: {
		a: value: type: "number"
		b: value: type: "number"
	}
	callbacks: {
		forward: {
			handler: "avocado.price_graph"
			outputs: ["b.value"]
			inputs: ["a.value"]
		}
		back: {
			handler: "avocado.price_graph"
			outputs: ["a.value"]
			inputs: ["b.value"]
		}
	}
}
dashboard: typo: {
	components: a: value: type: "number"
	callbacks: c: {
		handler: "no.such.handler"
		outputs: ["a.missing"]
		inputs: ["a.value"]
	}
}
`

func writeCue(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dash.cue")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidate_AllBundled(t *testing.T) {
	out, err := execute(NewValidateCommand(testRootOptions(t, "text")), "")
	require.NoError(t, err)
	for _, name := range dashboards.Names() {
		assert.Contains(t, out, "✓ "+name)
	}
	assert.Contains(t, out, "All dashboards valid")
}

func TestValidate_UnknownBundled(t *testing.T) {
	out, err := execute(NewValidateCommand(testRootOptions(t, "text")), "", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ nope")
	assert.Contains(t, out, "[E002]")
}

func TestValidate_MissingFile(t *testing.T) {
	out, err := execute(NewValidateCommand(testRootOptions(t, "text")), "", "/nonexistent/x.cue")
	require.Error(t, err)
	assert.Contains(t, out, "file not found")
}

func TestValidate_BrokenFile(t *testing.T) {
	path := writeCue(t, brokenDashboards)

	out, err := execute(NewValidateCommand(testRootOptions(t, "json")), "", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Dashboards, 2)

	byName := make(map[string]DashboardValidation)
	for _, d := range resp.Data.Dashboards {
		byName[d.Name] = d
	}

	loop := byName["loop"]
	require.Len(t, loop.Errors, 1)
	assert.Equal(t, "E503", loop.Errors[0].Code)

	typo := byName["typo"]
	codes := make([]string, len(typo.Errors))
	for i, e := range typo.Errors {
		codes[i] = e.Code
	}
	assert.Equal(t, []string{"E506", "E502"}, codes)
}

func TestValidate_SchemaError(t *testing.T) {
	path := writeCue(t, `dashboard: bad: components: a: value: type: "colour"`)

	out, err := execute(NewValidateCommand(testRootOptions(t, "text")), "", path)
	require.Error(t, err)
	assert.Contains(t, out, "[E101]")
}
