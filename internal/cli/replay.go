package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/wavedash/internal/dashboards"
	"github.com/roach88/wavedash/internal/dashspec"
	"github.com/roach88/wavedash/internal/dataset"
	"github.com/roach88/wavedash/internal/dispatch"
	"github.com/roach88/wavedash/internal/session"
	"github.com/roach88/wavedash/internal/store"
	"github.com/roach88/wavedash/internal/value"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string
	DataDir  string
}

// ReplayResult holds the replay verdict for one session.
type ReplayResult struct {
	Session       string   `json:"session"`
	Dashboard     string   `json:"dashboard"`
	Waves         int      `json:"waves"`
	Deterministic bool     `json:"deterministic"`
	Divergences   []string `json:"divergences,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run a journaled session and verify determinism",
		Long: `Rebuild a journaled session from its bundled dashboard and the current
datasets, re-dispatch every recorded change batch, and compare each wave's
callback order, outcomes and written values with the journal.

Dataset fingerprints are checked first; replay against changed data is
reported as a divergence without running any wave.

Exit codes:
  0 - Every wave matched
  1 - Divergence detected
  2 - Command error (journal not found, unknown session, etc.)

Examples:
  wavedash replay --db ./wavedash.db --session 0190...
  wavedash replay --db ./wavedash.db --session 0190... --data ./data --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to replay (required)")
	_ = cmd.MarkFlagRequired("session")
	cmd.Flags().StringVar(&opts.DataDir, "data", "", "base directory for dataset files (default $WAVEDASH_DATA_DIR)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	h, err := st.ReadHistory(ctx, opts.Session)
	if errors.Is(err, store.ErrSessionNotFound) {
		return WrapExitError(ExitCommandError, "unknown session", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	d, err := loadOne(h.Session.Dashboard)
	if err != nil {
		return WrapExitError(ExitCommandError, "only bundled dashboards can be replayed", err)
	}
	data, err := loadData(ctx, d, firstNonEmpty(opts.DataDir, opts.Config.DataDir), opts.Logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load datasets", err)
	}

	result := ReplayResult{
		Session:   h.Session.ID,
		Dashboard: h.Session.Dashboard,
		Waves:     len(h.Waves),
	}
	result.Divergences = checkFingerprints(h.Session, data)
	if len(result.Divergences) == 0 {
		result.Divergences, err = replayWaves(ctx, opts, h, d, data)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to rebuild session", err)
		}
	}
	result.Deterministic = len(result.Divergences) == 0

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		var failed *CLIError
		if !result.Deterministic {
			failed = &CLIError{Code: ErrCodeDivergent, Message: "replay diverged from journal"}
		}
		if err := formatter.Result(result, failed); err != nil {
			return err
		}
	} else {
		outputReplayText(cmd, result)
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, "replay diverged from journal")
	}
	return nil
}

func checkFingerprints(rec store.SessionRecord, data *dataset.Store) []string {
	var diffs []string
	for _, want := range rec.Datasets {
		ds, err := data.Get(want.Name)
		if err != nil {
			diffs = append(diffs, fmt.Sprintf("dataset %s: no longer declared", want.Name))
			continue
		}
		got, err := ds.Fingerprint()
		if err != nil {
			diffs = append(diffs, fmt.Sprintf("dataset %s: %v", want.Name, err))
			continue
		}
		if got != want.Fingerprint {
			diffs = append(diffs, fmt.Sprintf("dataset %s: fingerprint %s, journal has %s", want.Name, got, want.Fingerprint))
		}
	}
	return diffs
}

// replayWaves rebuilds the session with the recorded wave ids and re-runs
// every recorded wave in sequence order.
func replayWaves(ctx context.Context, opts *ReplayOptions, h store.History, d *dashspec.Dashboard, data *dataset.Store) ([]string, error) {
	ids := make([]string, len(h.Waves))
	for i, w := range h.Waves {
		ids[i] = w.ID
	}

	s, err := session.Build(ctx, h.Session.ID, d, dashboards.Catalog(), data,
		session.WithLogger(opts.Logger),
		session.WithDispatchOptions(dispatch.WithWaveIDs(dispatch.NewFixedGenerator(ids...))),
	)
	if err != nil {
		return nil, err
	}
	defer s.Dispatcher().Stop()

	var diffs []string
	for _, rec := range h.Waves {
		var (
			got *dispatch.Wave
			err error
		)
		if rec.Initial {
			got, err = s.Initialize(ctx)
		} else {
			got, err = s.Dispatch(ctx, rec.Changes...)
		}
		if err != nil {
			diffs = append(diffs, fmt.Sprintf("wave %d (%s): rejected: %v", rec.Seq, rec.ID, err))
			continue
		}
		for _, diff := range compareWave(rec, got) {
			diffs = append(diffs, fmt.Sprintf("wave %d (%s): %s", rec.Seq, rec.ID, diff))
		}
	}
	return diffs, nil
}

// compareWave lists every difference between a journaled wave and its
// replay. Values compare by canonical JSON, since the journal stores dates
// as strings.
func compareWave(rec store.WaveRecord, got *dispatch.Wave) []string {
	var diffs []string
	if rec.Seq != got.Seq {
		diffs = append(diffs, fmt.Sprintf("seq %d, journal has %d", got.Seq, rec.Seq))
	}

	recOrder := make([]string, len(rec.Callbacks))
	for i, cb := range rec.Callbacks {
		recOrder[i] = cb.ID
	}
	if !slices.Equal(recOrder, got.Order) {
		diffs = append(diffs, fmt.Sprintf("order %v, journal has %v", got.Order, recOrder))
	}
	for _, cb := range rec.Callbacks {
		if outcome := got.Outcome(cb.ID); outcome != cb.Outcome {
			diffs = append(diffs, fmt.Sprintf("callback %s %s, journal has %s", cb.ID, outcome, cb.Outcome))
		}
	}

	if len(rec.Writes) != len(got.Writes) {
		diffs = append(diffs, fmt.Sprintf("%d write(s), journal has %d", len(got.Writes), len(rec.Writes)))
		return diffs
	}
	for i, w := range rec.Writes {
		g := got.Writes[i]
		if g.Ref != w.Ref {
			diffs = append(diffs, fmt.Sprintf("write %d to %s, journal has %s", i, g.Ref, w.Ref))
			continue
		}
		if !sameCanonical(w.Value, g.Value) {
			diffs = append(diffs, fmt.Sprintf("write to %s differs", w.Ref))
		}
	}
	return diffs
}

func sameCanonical(a, b value.Value) bool {
	ab, errA := value.MarshalCanonical(a)
	bb, errB := value.MarshalCanonical(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

func outputReplayText(cmd *cobra.Command, result ReplayResult) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Replay of Session: %s (%s)\n", result.Session, result.Dashboard)
	fmt.Fprintf(w, "Waves: %d\n", result.Waves)
	if result.Deterministic {
		fmt.Fprintln(w, "✓ Deterministic: every wave matched the journal")
		return
	}
	fmt.Fprintln(w, "✗ Diverged:")
	for _, d := range result.Divergences {
		fmt.Fprintf(w, "  %s\n", d)
	}
}
