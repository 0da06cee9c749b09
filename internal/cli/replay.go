package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reflux/internal/demo"
	"github.com/roach88/reflux/internal/engine"
	"github.com/roach88/reflux/internal/journal"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database    string
	FlowToken   string // optional - report this flow only
	MaxAttempts int
}

// ReplayFlowResult holds the replay result for a single flow.
type ReplayFlowResult struct {
	FlowToken     string   `json:"flow_token"`
	Recorded      int      `json:"recorded"`
	Replayed      int      `json:"replayed"`
	Deterministic bool     `json:"deterministic"`
	Mismatches    []string `json:"mismatches,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Flows            []ReplayFlowResult `json:"flows"`
	TotalFlows       int                `json:"total_flows"`
	AllDeterministic bool               `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the journal and verify determinism",
		Long: `Replay every journaled root action into a fresh demo application and
compare the cycles it runs with the journal: the same seq, action and depth
under each flow, and every store settling the same way.

Follow-up actions are not replayed from the journal; the hooks emit them
again, so a matching follow-up proves the hooks behave the same.

Exit codes:
  0 - All flows are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  reflux replay --db ./reflux.db
  reflux replay --db ./reflux.db --flow 0190f6d2-...
  reflux replay --db ./reflux.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.FlowToken, "flow", "", "report specific flow only")
	cmd.Flags().IntVar(&opts.MaxAttempts, "max-attempts", demo.DefaultMaxAttempts, "failed logins before the user store locks")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	j, err := journal.Open(opts.Database, journal.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer j.Close()

	recorded, err := j.ReadCycles(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	if len(recorded) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, ReplayResult{Flows: []ReplayFlowResult{}, AllDeterministic: true})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No flows found in database.")
		return nil
	}

	events := make([]engine.RecordedEvent, len(recorded))
	for i, rec := range recorded {
		events[i] = rec.Event()
	}

	app, err := demo.New(demo.WithLogger(logger), demo.WithMaxAttempts(opts.MaxAttempts))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build application", err)
	}
	replayed, err := app.Engine.Replay(ctx, events)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return WrapExitError(ExitCommandError, "replay interrupted", err)
	}

	result, err := compareReplay(ctx, j, recorded, replayed, opts.FlowToken)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compare replay", err)
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

type cycleKey struct {
	flow string
	seq  int64
}

// compareReplay matches replayed cycles against the journal by (flow, seq).
// Flows are reported in journal order.
func compareReplay(ctx context.Context, j *journal.Journal, recorded []journal.CycleRecord, replayed []*engine.Result, onlyFlow string) (ReplayResult, error) {
	byKey := make(map[cycleKey]*engine.Result, len(replayed))
	for _, res := range replayed {
		byKey[cycleKey{res.Flow, res.Seq}] = res
	}

	var order []string
	flows := make(map[string]*ReplayFlowResult)
	flowResult := func(flow string) *ReplayFlowResult {
		fr, ok := flows[flow]
		if !ok {
			fr = &ReplayFlowResult{FlowToken: flow, Deterministic: true}
			flows[flow] = fr
			order = append(order, flow)
		}
		return fr
	}

	seen := make(map[cycleKey]bool, len(recorded))
	for _, rec := range recorded {
		if onlyFlow != "" && rec.Flow != onlyFlow {
			continue
		}
		key := cycleKey{rec.Flow, rec.Seq}
		seen[key] = true
		fr := flowResult(rec.Flow)
		fr.Recorded++

		res, ok := byKey[key]
		if !ok {
			fr.mismatch("seq %d %s: not replayed", rec.Seq, rec.Constant)
			continue
		}
		fr.Replayed++
		if res.Constant != rec.Constant || res.Depth != rec.Depth {
			fr.mismatch("seq %d: recorded %s depth=%d, replayed %s depth=%d",
				rec.Seq, rec.Constant, rec.Depth, res.Constant, res.Depth)
			continue
		}

		outcomes, err := j.ReadOutcomes(ctx, rec.Flow, rec.Seq)
		if err != nil {
			return ReplayResult{}, err
		}
		for _, o := range outcomes {
			want := outcomeFromRecord(o).Status
			got := "missing"
			if replayedOutcome, ok := res.Outcome(o.Store); ok {
				got = outcomeStatus(replayedOutcome.Handled, replayedOutcome.Failed())
			}
			if want != got {
				fr.mismatch("seq %d %s: store %s recorded %s, replayed %s", rec.Seq, rec.Constant, o.Store, want, got)
			}
		}
	}

	for _, res := range replayed {
		if onlyFlow != "" && res.Flow != onlyFlow {
			continue
		}
		if !seen[cycleKey{res.Flow, res.Seq}] {
			fr := flowResult(res.Flow)
			fr.Replayed++
			fr.mismatch("seq %d %s: replayed but not in journal", res.Seq, res.Constant)
		}
	}

	result := ReplayResult{Flows: make([]ReplayFlowResult, 0, len(order)), AllDeterministic: true}
	for _, flow := range order {
		fr := flows[flow]
		if !fr.Deterministic {
			result.AllDeterministic = false
		}
		result.Flows = append(result.Flows, *fr)
	}
	result.TotalFlows = len(result.Flows)
	return result, nil
}

func (fr *ReplayFlowResult) mismatch(format string, args ...any) {
	fr.Deterministic = false
	fr.Mismatches = append(fr.Mismatches, fmt.Sprintf(format, args...))
}

func outcomeStatus(handled, failed bool) string {
	switch {
	case !handled:
		return "ignored"
	case failed:
		return "failed"
	}
	return "ok"
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDeterminism,
			Message: "determinism verification failed",
		}
	}

	if err := writeJSON(cmd.OutOrStdout(), response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d flow(s)\n", result.TotalFlows)
	fmt.Fprintln(w)

	for _, flow := range result.Flows {
		status := "✓"
		if !flow.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Flow: %s\n", status, flow.FlowToken)
		if verbose || !flow.Deterministic {
			fmt.Fprintf(w, "  Cycles: %d recorded, %d replayed\n", flow.Recorded, flow.Replayed)
		}
		for _, m := range flow.Mismatches {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}
	fmt.Fprintln(w)

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All flows verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
