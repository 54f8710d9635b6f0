package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wavedash/internal/store"
	"github.com/roach88/wavedash/internal/value"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string // optional; lists sessions when empty
	Callback string // optional; filter to one callback
}

// TraceWave is one journaled wave in the timeline.
type TraceWave struct {
	Seq       int64           `json:"seq"`
	ID        string          `json:"id"`
	Initial   bool            `json:"initial"`
	Changes   map[string]any  `json:"changes,omitempty"`
	Callbacks []TraceCallback `json:"callbacks"`
	Writes    []string        `json:"writes,omitempty"`
}

// TraceCallback is one affected callback within a wave.
type TraceCallback struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// TraceStats summarizes a session.
type TraceStats struct {
	Waves    int   `json:"waves"`
	LastSeq  int64 `json:"last_seq"`
	Failures int   `json:"failures"`
	NoOps    int   `json:"noops"`
}

// TraceResult holds the complete trace output for one session.
type TraceResult struct {
	Session   string                `json:"session"`
	Dashboard string                `json:"dashboard"`
	Datasets  []store.DatasetRecord `json:"datasets"`
	Timeline  []TraceWave           `json:"timeline"`
	Stats     TraceStats            `json:"stats"`

	// Outcomes counts the filtered callback's outcomes across the session.
	Outcomes map[string]int `json:"outcomes,omitempty"`
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	ID        string `json:"id"`
	Dashboard string `json:"dashboard"`
	Waves     int    `json:"waves"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled waves",
		Long: `Show what a journaled session did, wave by wave: the external changes
that started each wave, every affected callback with its outcome, and the
properties written.

Without --session the recorded sessions are listed.

Examples:
  wavedash trace --db ./wavedash.db
  wavedash trace --db ./wavedash.db --session 0190...
  wavedash trace --db ./wavedash.db --session 0190... --callback update_graph`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to trace")
	cmd.Flags().StringVar(&opts.Callback, "callback", "", "only show this callback")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	if opts.Session == "" {
		return listSessions(ctx, st, formatter)
	}

	h, err := st.ReadHistory(ctx, opts.Session)
	if errors.Is(err, store.ErrSessionNotFound) {
		return WrapExitError(ExitCommandError, "unknown session", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := TraceResult{
		Session:   h.Session.ID,
		Dashboard: h.Session.Dashboard,
		Datasets:  h.Session.Datasets,
		Timeline:  buildTimeline(h.Waves, opts.Callback),
		Stats: TraceStats{
			Waves:    len(h.Waves),
			LastSeq:  h.LastSeq,
			Failures: h.Failures,
			NoOps:    h.NoOps,
		},
	}

	if opts.Callback != "" {
		runs, err := st.ReadCallbackHistory(ctx, opts.Session, opts.Callback)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read callback history", err)
		}
		result.Outcomes = make(map[string]int)
		for _, r := range runs {
			result.Outcomes[r.Outcome]++
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	outputTraceText(cmd, result)
	return nil
}

// openJournal opens an existing journal. A missing file is a command error
// rather than a fresh empty database.
func openJournal(path string) (*store.Store, error) {
	if !fileExists(path) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return st, nil
}

func listSessions(ctx context.Context, st *store.Store, f *OutputFormatter) error {
	sessions, err := st.ReadSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}
	waves, err := st.ReadWaves(ctx, "")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read waves", err)
	}
	counts := make(map[string]int)
	for _, w := range waves {
		counts[w.SessionID]++
	}

	summaries := make([]SessionSummary, len(sessions))
	for i, s := range sessions {
		summaries[i] = SessionSummary{ID: s.ID, Dashboard: s.Dashboard, Waves: counts[s.ID]}
	}

	if f.Format == "json" {
		return f.Success(summaries)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(f.Writer, "No sessions recorded.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(f.Writer, "%s  %-12s %d wave(s)\n", s.ID, s.Dashboard, s.Waves)
	}
	return nil
}

// buildTimeline converts journaled waves into timeline entries. With a
// callback filter, waves that did not affect it are dropped.
func buildTimeline(waves []store.WaveRecord, callback string) []TraceWave {
	timeline := make([]TraceWave, 0, len(waves))
	for _, w := range waves {
		tw := TraceWave{Seq: w.Seq, ID: w.ID, Initial: w.Initial, Callbacks: []TraceCallback{}}
		for _, cb := range w.Callbacks {
			if callback != "" && cb.ID != callback {
				continue
			}
			tw.Callbacks = append(tw.Callbacks, TraceCallback{ID: cb.ID, Outcome: cb.Outcome, Error: cb.Error})
		}
		if callback != "" && len(tw.Callbacks) == 0 {
			continue
		}
		if len(w.Changes) > 0 {
			tw.Changes = make(map[string]any, len(w.Changes))
			for _, c := range w.Changes {
				tw.Changes[c.Ref.String()] = value.ToAny(c.Value)
			}
		}
		for _, c := range w.Writes {
			tw.Writes = append(tw.Writes, c.Ref.String())
		}
		timeline = append(timeline, tw)
	}
	return timeline
}

func outputTraceText(cmd *cobra.Command, result TraceResult) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Session: %s (%s)\n", result.Session, result.Dashboard)
	for _, ds := range result.Datasets {
		fmt.Fprintf(w, "  dataset %s: %d rows, fingerprint %s\n", ds.Name, ds.Rows, ds.Fingerprint)
	}
	fmt.Fprintln(w)

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No matching waves.")
	}
	for _, tw := range result.Timeline {
		label := "wave"
		if tw.Initial {
			label = "initial wave"
		}
		fmt.Fprintf(w, "[%d] %s %s\n", tw.Seq, label, tw.ID)
		for _, ref := range sortedKeys(tw.Changes) {
			fmt.Fprintf(w, "    set %s = %v\n", ref, tw.Changes[ref])
		}
		for _, cb := range tw.Callbacks {
			if cb.Error != "" {
				fmt.Fprintf(w, "    %-8s %s: %s\n", cb.Outcome, cb.ID, cb.Error)
				continue
			}
			fmt.Fprintf(w, "    %-8s %s\n", cb.Outcome, cb.ID)
		}
	}

	fmt.Fprintln(w)
	if len(result.Outcomes) > 0 {
		parts := make([]string, 0, len(result.Outcomes))
		for _, outcome := range sortedKeys(result.Outcomes) {
			parts = append(parts, fmt.Sprintf("%s=%d", outcome, result.Outcomes[outcome]))
		}
		fmt.Fprintf(w, "Outcomes: %s\n", strings.Join(parts, " "))
	}
	fmt.Fprintf(w, "Stats: %d wave(s), last seq %d, %d failure(s), %d no-op(s)\n",
		result.Stats.Waves, result.Stats.LastSeq, result.Stats.Failures, result.Stats.NoOps)
}
