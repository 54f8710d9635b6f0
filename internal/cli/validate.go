package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wavedash/internal/dashboards"
	"github.com/roach88/wavedash/internal/dashspec"
	"github.com/roach88/wavedash/internal/graph"
	"github.com/roach88/wavedash/internal/registry"
)

// ValidationIssue is one problem found in a dashboard.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DashboardValidation is the verdict for one dashboard or load target.
type DashboardValidation struct {
	Name   string            `json:"name"`
	Valid  bool              `json:"valid"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool                  `json:"valid"`
	Dashboards []DashboardValidation `json:"dashboards"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [dashboard|file.cue ...]",
		Short: "Check dashboards without loading data",
		Long: `Check dashboards for schema errors, unknown handlers, references to
undeclared properties, outputs written by two callbacks, and dependency
cycles. No dataset is read.

With no arguments every bundled dashboard is checked.

Examples:
  wavedash validate
  wavedash validate spacex happiness
  wavedash validate ./my-dashboard.cue --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, targets []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loaded, loadErrs := loadDashboards(targets)
	result := ValidationResult{Valid: true}

	for _, err := range loadErrs {
		var le *LoadError
		if !errors.As(err, &le) {
			le = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
		}
		result.Valid = false
		result.Dashboards = append(result.Dashboards, DashboardValidation{
			Name:   le.Target,
			Errors: []ValidationIssue{{Code: le.Code, Message: le.Message}},
		})
	}

	catalog := dashboards.Catalog()
	for _, d := range loaded {
		formatter.VerboseLog("Validating dashboard: %s", d.Name)
		issues := validateDashboard(d, catalog)
		v := DashboardValidation{Name: d.Name, Valid: len(issues) == 0, Errors: issues}
		if !v.Valid {
			result.Valid = false
		}
		result.Dashboards = append(result.Dashboards, v)
	}

	if opts.Format == "json" {
		var failed *CLIError
		if !result.Valid {
			failed = &CLIError{Code: ErrCodeGeneric, Message: "validation failed"}
		}
		if err := formatter.Result(result, failed); err != nil {
			return err
		}
	} else {
		outputValidateText(cmd, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

// validateDashboard binds d against catalog and builds its callback graph
// over the declared properties. Every callback is registered even after a
// failure so one run reports as many problems as possible.
func validateDashboard(d *dashspec.Dashboard, catalog dashspec.Catalog) []ValidationIssue {
	var issues []ValidationIssue
	add := func(err error) {
		issues = append(issues, ValidationIssue{Code: errorCode(err), Message: err.Error()})
	}

	for _, cb := range d.Callbacks {
		if _, ok := catalog[cb.Handler]; !ok {
			add(&dashspec.UnknownHandlerError{Callback: cb.ID, Handler: cb.Handler})
		}
	}

	declared := declaredRefs(d)
	g := graph.New(declared)
	for _, cb := range d.Callbacks {
		err := g.Register(graph.Callback{
			ID:       cb.ID,
			Outputs:  cb.Outputs,
			Triggers: cb.Inputs,
			State:    cb.State,
			Handler:  unbound,
		})
		if err != nil {
			add(err)
		}
	}
	if len(issues) == 0 {
		if err := g.Build(); err != nil {
			add(err)
		}
	}
	return issues
}

// unbound stands in for handlers during static checks; it never runs.
var unbound = graph.HandlerFunc(func(context.Context, graph.Call) graph.Result {
	return graph.NoOp()
})

// refSet answers graph lookups from the dashboard's declarations.
type refSet map[registry.Ref]bool

func (s refSet) Has(ref registry.Ref) bool { return s[ref] }

func declaredRefs(d *dashspec.Dashboard) refSet {
	set := make(refSet)
	for _, c := range d.Components {
		for _, p := range c.Properties {
			set[registry.R(c.ID, p.Name)] = true
		}
	}
	return set
}

func outputValidateText(cmd *cobra.Command, result ValidationResult) {
	w := cmd.OutOrStdout()
	for _, d := range result.Dashboards {
		if d.Valid {
			fmt.Fprintf(w, "✓ %s\n", d.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", d.Name)
		for _, issue := range d.Errors {
			fmt.Fprintf(w, "  [%s] %s\n", issue.Code, strings.TrimSpace(issue.Message))
		}
	}
	if result.Valid {
		fmt.Fprintln(w, "All dashboards valid")
	}
}
