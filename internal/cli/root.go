package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/wavedash/internal/config"
)

// RootOptions holds global flags and the settings every command shares.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	EnvFile string

	// Config and Logger are populated before any subcommand runs.
	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the wavedash CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

// Execute runs the CLI and returns the process exit code. A failing command
// is reported on stderr in the selected format.
func Execute() int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	format := opts.Format
	if !isValidFormat(format) {
		format = "text"
	}
	f := &OutputFormatter{Format: format, Writer: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	var details any
	if cause := errors.Unwrap(err); cause != nil {
		details = cause.Error()
	}
	_ = f.Error(errorCode(err), err.Error(), details)
	return GetExitCode(err)
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wavedash",
		Short: "wavedash - reactive dashboards over tabular data",
		Long: `Serve and test reactive dashboards: components with typed properties,
callbacks wired between them, and a dispatcher that recomputes exactly the
affected callbacks in dependency order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return setup(opts, cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env", "", "load settings from this .env file")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))

	return cmd
}

// setup loads configuration and installs the logger. Logs always go to
// stderr so JSON output on stdout stays parseable.
func setup(opts *RootOptions, cmd *cobra.Command) error {
	var files []string
	if opts.EnvFile != "" {
		files = append(files, opts.EnvFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if opts.Verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	opts.Config = cfg
	opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	return nil
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
