package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wavedash/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	DataDir string
	Update  bool   // regenerate golden files
	Filter  string // scenario filter (glob pattern)
}

// Golden file states reported per scenario.
const (
	GoldenAbsent   = "absent"
	GoldenMatched  = "matched"
	GoldenMismatch = "mismatch"
	GoldenUpdated  = "updated"
)

// ScenarioResult is the verdict for one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult summarizes a scenario run.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r *TestResult) add(sr ScenarioResult) {
	r.Scenarios = append(r.Scenarios, sr)
	r.Total++
	if sr.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run dashboard scenarios",
		Long: `Run YAML scenarios against real dashboard sessions.

Each scenario dispatches its steps as waves and checks the expected
callback order, outcomes and property values. When golden/<name>.golden
exists next to the scenario, the wave trace must also match it byte for
byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  wavedash test ./scenarios --data ./data
  wavedash test ./scenarios --filter "spacex*"
  wavedash test ./scenarios --update
  wavedash test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DataDir, "data", "", "base directory for dataset files (default $WAVEDASH_DATA_DIR)")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	info, err := os.Stat(scenariosDir)
	if err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	out := cmd.OutOrStdout()
	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, file := range files {
		sr := executeScenario(cmd.Context(), file, opts)
		result.add(sr)
		if opts.Format != "json" {
			printScenario(out, sr)
		}
	}

	var failure error
	if result.Failed > 0 {
		failure = NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	if opts.Format == "json" {
		var failed *CLIError
		if failure != nil {
			failed = &CLIError{Code: ErrCodeGeneric, Message: failure.Error()}
		}
		if err := (&OutputFormatter{Format: "json", Writer: out}).Result(result, failed); err != nil {
			return err
		}
		return failure
	}

	if result.Total == 0 {
		fmt.Fprintln(out, "No scenarios found.")
		return nil
	}
	fmt.Fprintf(out, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if failure == nil {
		fmt.Fprintln(out, "✓ All scenarios passed")
	}
	return failure
}

// findScenarioFiles walks dir for .yaml/.yml files whose base name (without
// extension) matches the glob filter. Results are in lexical order.
func findScenarioFiles(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern %q: %w", filter, err)
		}
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

func executeScenario(ctx context.Context, file string, opts *TestOptions) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}
	fail := func(format string, args ...any) ScenarioResult {
		sr.Errors = append(sr.Errors, fmt.Sprintf(format, args...))
		return sr
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return fail("failed to load scenario: %v", err)
	}
	sr.Name = scenario.Name

	hopts := []harness.Option{harness.WithLogger(opts.Logger)}
	if dir := firstNonEmpty(opts.DataDir, opts.Config.DataDir); dir != "" {
		hopts = append(hopts, harness.WithDataDir(dir))
	}
	result, err := harness.Run(ctx, scenario, hopts...)
	if err != nil {
		return fail("execution failed: %v", err)
	}

	dashboard := scenario.Dashboard
	if dashboard == "" {
		dashboard = scenario.Select
	}
	snapshot, err := harness.Snapshot(scenario.Name, dashboard, result)
	if err != nil {
		return fail("failed to snapshot trace: %v", err)
	}
	sr.Golden, err = checkGolden(goldenFilePath(file), snapshot, opts.Update)
	switch {
	case err != nil:
		result.AddError(err.Error())
	case sr.Golden == GoldenMismatch:
		result.AddError("trace does not match golden file (run with --update to regenerate)")
	}

	sr.Pass = result.Pass
	sr.Errors = result.Errors
	return sr
}

// checkGolden compares snapshot with the golden file at path, or rewrites
// the file when update is set.
func checkGolden(path string, snapshot []byte, update bool) (string, error) {
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(path, snapshot, 0o644); err != nil {
			return "", fmt.Errorf("failed to update golden file: %w", err)
		}
		return GoldenUpdated, nil
	}

	golden, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return GoldenAbsent, nil
	case err != nil:
		return "", fmt.Errorf("failed to read golden file: %w", err)
	case bytes.Equal(golden, snapshot):
		return GoldenMatched, nil
	}
	return GoldenMismatch, nil
}

// goldenFilePath returns golden/<scenario-file-name>.golden next to the
// scenario file.
func goldenFilePath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

func printScenario(w io.Writer, sr ScenarioResult) {
	mark := "✓"
	if !sr.Pass {
		mark = "✗"
	}
	if sr.Golden == GoldenUpdated {
		fmt.Fprintf(w, "%s %s (golden updated)\n", mark, sr.Name)
	} else {
		fmt.Fprintf(w, "%s %s\n", mark, sr.Name)
	}
	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
