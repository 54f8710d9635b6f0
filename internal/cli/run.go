package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/wavedash/internal/dashboards"
	"github.com/roach88/wavedash/internal/dispatch"
	"github.com/roach88/wavedash/internal/registry"
	"github.com/roach88/wavedash/internal/session"
	"github.com/roach88/wavedash/internal/store"
	"github.com/roach88/wavedash/internal/value"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	DataDir    string
	Database   string
	QueueLimit int

	// SessionIDs overrides the UUIDv7 session id generator (for testing).
	SessionIDs session.IDGenerator
	// WaveIDs overrides the UUIDv7 wave id generator (for testing).
	WaveIDs dispatch.WaveIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <dashboard|file.cue>",
		Short: "Open a dashboard session and dispatch changes from stdin",
		Long: `Open a session for one dashboard, run its initial wave, then read change
batches from stdin. Each non-empty line is a JSON object mapping
"component.property" to its new value and produces one wave.

Every wave is reported on stdout. With --db each wave is also journaled
to SQLite for trace and replay.

Examples:
  wavedash run avocado --data ./data
  echo '{"geography-dropdown.value":"Albany"}' | wavedash run avocado --format json
  wavedash run spacex --db ./wavedash.db < clicks.jsonl`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DataDir, "data", "", "base directory for dataset files (default $WAVEDASH_DATA_DIR)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal waves to this SQLite database (default $WAVEDASH_JOURNAL)")
	cmd.Flags().IntVar(&opts.QueueLimit, "queue-limit", -1, "max distinct pending properties (default $WAVEDASH_QUEUE_LIMIT)")

	return cmd
}

func runSession(opts *RunOptions, target string, cmd *cobra.Command) error {
	cfg := opts.Config
	dataDir := firstNonEmpty(opts.DataDir, cfg.DataDir)
	journalPath := firstNonEmpty(opts.Database, cfg.Journal)
	queueLimit := cfg.QueueLimit
	if opts.QueueLimit >= 0 {
		queueLimit = opts.QueueLimit
	}
	logger := opts.Logger

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := loadOne(target)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load dashboard", err)
	}
	logger.Info("loading datasets", "dashboard", d.Name, "data_dir", dataDir)
	data, err := loadData(ctx, d, dataDir, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load datasets", err)
	}

	sessionOpts := []session.Option{session.WithLogger(logger)}
	dispatchOpts := []dispatch.Option{dispatch.WithQueueLimit(queueLimit)}
	if opts.WaveIDs != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithWaveIDs(opts.WaveIDs))
	}
	sessionOpts = append(sessionOpts, session.WithDispatchOptions(dispatchOpts...))

	if journalPath != "" {
		st, err := store.Open(journalPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		sessionOpts = append(sessionOpts, session.WithJournal(st))
	}

	managerOpts := []session.ManagerOption{
		session.WithManagerLogger(logger),
		session.WithSessionOptions(sessionOpts...),
	}
	if opts.SessionIDs != nil {
		managerOpts = append(managerOpts, session.WithSessionIDs(opts.SessionIDs))
	}
	manager := session.NewManager(data, dashboards.Catalog(), managerOpts...)

	s, initial, err := manager.Open(ctx, d)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open session", err)
	}
	defer manager.Close(s.ID())

	out := cmd.OutOrStdout()
	if err := reportWave(out, opts.Format, s.ID(), initial); err != nil {
		return err
	}

	rejected := 0
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if ctx.Err() != nil {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		changes, err := parseChangeLine(text)
		if err == nil {
			var w *dispatch.Wave
			w, err = s.Dispatch(ctx, changes...)
			if err == nil {
				if err := reportWave(out, opts.Format, s.ID(), w); err != nil {
					return err
				}
				continue
			}
		}
		rejected++
		logger.Warn("change batch rejected", "line", line, "error", err)
		if err := reportRejected(out, opts.Format, line, err); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitCommandError, "failed to read changes", err)
	}

	if rejected > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d change batch(es) rejected", rejected))
	}
	return nil
}

// parseChangeLine decodes {"component.property": value, ...} into changes
// ordered by ref.
func parseChangeLine(line string) ([]dispatch.Change, error) {
	v, err := value.ParseJSON([]byte(line))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	obj, ok := value.AsObject(v)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %s", value.KindOf(v))
	}
	if len(obj) == 0 {
		return nil, fmt.Errorf("empty change batch")
	}
	changes := make([]dispatch.Change, 0, len(obj))
	for _, key := range obj.SortedKeys() {
		ref, err := registry.ParseRef(key)
		if err != nil {
			return nil, err
		}
		changes = append(changes, dispatch.Change{Ref: ref, Value: obj[key]})
	}
	return changes, nil
}

// waveObject renders a wave, including written values, as a Value.
func waveObject(sessionID string, w *dispatch.Wave) value.Object {
	order := make(value.List, len(w.Order))
	outcomes := make(value.Object, len(w.Order))
	for i, id := range w.Order {
		order[i] = value.String(id)
		outcomes[id] = value.String(w.Outcome(id))
	}
	writes := make(value.Object, len(w.Writes))
	for _, c := range w.Writes {
		writes[c.Ref.String()] = c.Value
	}
	obj := value.Object{
		"session":  value.String(sessionID),
		"wave":     value.String(w.ID),
		"seq":      value.Number(w.Seq),
		"initial":  value.Bool(w.Initial),
		"order":    order,
		"outcomes": outcomes,
		"writes":   writes,
	}
	if len(w.Failures) > 0 {
		errs := make(value.Object, len(w.Failures))
		for _, f := range w.Failures {
			errs[f.CallbackID] = value.String(f.Err.Error())
		}
		obj["errors"] = errs
	}
	return obj
}

// reportWave writes one wave: a canonical JSON line, or a short text block.
func reportWave(w io.Writer, format, sessionID string, wave *dispatch.Wave) error {
	if format == "json" {
		data, err := value.MarshalCanonical(waveObject(sessionID, wave))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	label := "wave"
	if wave.Initial {
		label = "initial wave"
	}
	fmt.Fprintf(w, "%s %d (%s): %d callback(s)\n", label, wave.Seq, wave.ID, len(wave.Order))
	for _, id := range wave.Order {
		outcome := wave.Outcome(id)
		fmt.Fprintf(w, "  %-8s %s\n", outcome, id)
	}
	for _, f := range wave.Failures {
		fmt.Fprintf(w, "  error    %s: %v\n", f.CallbackID, f.Err)
	}
	for _, c := range wave.Writes {
		fmt.Fprintf(w, "  wrote    %s\n", c.Ref)
	}
	return nil
}

func reportRejected(w io.Writer, format string, line int, err error) error {
	if format == "json" {
		data, mErr := value.MarshalCanonical(value.Object{
			"line":  value.Number(line),
			"code":  value.String(errorCode(err)),
			"error": value.String(err.Error()),
		})
		if mErr != nil {
			return mErr
		}
		_, wErr := fmt.Fprintf(w, "%s\n", data)
		return wErr
	}
	_, wErr := fmt.Fprintf(w, "line %d rejected [%s]: %v\n", line, errorCode(err), err)
	return wErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
