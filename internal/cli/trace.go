package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/demo"
	"github.com/roach88/reflux/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	FlowToken string
	Store     string // optional - filter to one store
	Action    string // optional - filter to one action
}

// TraceTransition is one journaled lifecycle transition.
type TraceTransition struct {
	Step  int64  `json:"step"`
	Store string `json:"store"`
	Event string `json:"event"`
	From  string `json:"from"`
	To    string `json:"to"`
	Error string `json:"error,omitempty"`
}

// TraceCycle is one journaled cycle with its transitions and outcomes.
type TraceCycle struct {
	Seq         int64             `json:"seq"`
	Constant    string            `json:"constant"`
	Depth       int               `json:"depth"`
	Status      string            `json:"status"`
	Payload     map[string]any    `json:"payload"`
	Transitions []TraceTransition `json:"transitions"`
	Outcomes    []StoreOutcome    `json:"outcomes"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Cycles      int `json:"cycles"`
	Transitions int `json:"transitions"`
	Failed      int `json:"failed"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	FlowToken string       `json:"flow_token"`
	Cycles    []TraceCycle `json:"cycles"`
	Stats     TraceStats   `json:"stats"`
}

// FlowSummary is one line of the flow listing.
type FlowSummary struct {
	FlowToken string `json:"flow_token"`
	Root      string `json:"root"`
	Cycles    int    `json:"cycles"`
	Failed    int    `json:"failed"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the journaled lifecycle of a flow",
		Long: `Show the journaled cycles of a flow: every action dispatched under the
flow token, the lifecycle transitions of each store, and how each store
settled.

Without --flow, lists the journaled flows in dispatch order.

Examples:
  reflux trace --db ./reflux.db
  reflux trace --db ./reflux.db --flow 0190f6d2-...
  reflux trace --db ./reflux.db --flow 0190f6d2-... --store session
  reflux trace --db ./reflux.db --flow 0190f6d2-... --action LOCK --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.FlowToken, "flow", "", "flow token to trace")
	cmd.Flags().StringVar(&opts.Store, "store", "", "filter to one store")
	cmd.Flags().StringVar(&opts.Action, "action", "", "filter to one action (short name or constant)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	j, err := journal.Open(opts.Database, journal.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer j.Close()

	if opts.FlowToken == "" {
		return listFlows(ctx, j, opts, cmd)
	}

	var only action.Constant
	if opts.Action != "" {
		c, ok := demo.Actions.Resolve(opts.Action)
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown action %q (known: %v)", opts.Action, demo.Actions.Names()))
		}
		only = c
	}

	cycles, err := j.ReadFlow(ctx, opts.FlowToken)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read flow", err)
	}

	if len(cycles) == 0 {
		if opts.Format == "json" {
			return writeJSON(cmd.OutOrStdout(), CLIResponse{
				Status: "ok",
				Data:   TraceResult{FlowToken: opts.FlowToken, Cycles: []TraceCycle{}},
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "No cycles found for flow: %s\n", opts.FlowToken)
		return nil
	}

	result, err := buildTrace(ctx, j, opts, cycles, only)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
	}
	outputTraceText(cmd, result)
	return nil
}

func buildTrace(ctx context.Context, j *journal.Journal, opts *TraceOptions, cycles []journal.CycleRecord, only action.Constant) (TraceResult, error) {
	result := TraceResult{FlowToken: opts.FlowToken, Cycles: make([]TraceCycle, 0, len(cycles))}

	// With a store filter, one query covers the whole flow.
	var byStore map[int64][]journal.TransitionRecord
	if opts.Store != "" {
		recs, err := j.ReadStoreTransitions(ctx, opts.FlowToken, opts.Store)
		if err != nil {
			return result, err
		}
		byStore = make(map[int64][]journal.TransitionRecord)
		for _, r := range recs {
			byStore[r.Seq] = append(byStore[r.Seq], r)
		}
	}

	for _, c := range cycles {
		if only != "" && c.Constant != only {
			continue
		}

		transitions := byStore[c.Seq]
		if byStore == nil {
			var err error
			transitions, err = j.ReadTransitions(ctx, c.Flow, c.Seq)
			if err != nil {
				return result, err
			}
		}
		outcomes, err := j.ReadOutcomes(ctx, c.Flow, c.Seq)
		if err != nil {
			return result, err
		}

		tc := TraceCycle{
			Seq:         c.Seq,
			Constant:    string(c.Constant),
			Depth:       c.Depth,
			Status:      c.Status,
			Payload:     map[string]any(c.Payload),
			Transitions: make([]TraceTransition, 0, len(transitions)),
			Outcomes:    make([]StoreOutcome, 0, len(outcomes)),
		}
		if tc.Payload == nil {
			tc.Payload = map[string]any{}
		}
		for _, t := range transitions {
			tc.Transitions = append(tc.Transitions, TraceTransition{
				Step: t.Step, Store: t.Store, Event: t.Event, From: t.From, To: t.To, Error: t.Error,
			})
		}
		for _, o := range outcomes {
			if opts.Store != "" && o.Store != opts.Store {
				continue
			}
			tc.Outcomes = append(tc.Outcomes, outcomeFromRecord(o))
		}

		result.Cycles = append(result.Cycles, tc)
		result.Stats.Cycles++
		result.Stats.Transitions += len(tc.Transitions)
		if c.Status == journal.StatusFailed {
			result.Stats.Failed++
		}
	}
	return result, nil
}

func outcomeFromRecord(o journal.OutcomeRecord) StoreOutcome {
	return StoreOutcome{Store: o.Store, Status: outcomeStatus(o.Handled, o.Error != ""), Error: o.Error}
}

func listFlows(ctx context.Context, j *journal.Journal, opts *TraceOptions, cmd *cobra.Command) error {
	flows, err := j.Flows(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list flows", err)
	}

	summaries := make([]FlowSummary, 0, len(flows))
	for _, flow := range flows {
		cycles, err := j.ReadFlow(ctx, flow)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read flow", err)
		}
		fs := FlowSummary{FlowToken: flow, Cycles: len(cycles)}
		if len(cycles) > 0 {
			fs.Root = string(cycles[0].Constant)
		}
		for _, c := range cycles {
			if c.Status == journal.StatusFailed {
				fs.Failed++
			}
		}
		summaries = append(summaries, fs)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: summaries})
	}

	w := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No flows found in database.")
		return nil
	}
	for _, fs := range summaries {
		fmt.Fprintf(w, "%s  %-12s cycles=%d failed=%d\n", fs.FlowToken, fs.Root, fs.Cycles, fs.Failed)
	}
	return nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Flow: %s\n", result.FlowToken)
	for _, c := range result.Cycles {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "cycle %d %s depth=%d status=%s payload=%s\n", c.Seq, c.Constant, c.Depth, c.Status, formatPayload(c.Payload))
		for _, t := range c.Transitions {
			line := fmt.Sprintf("  %-3d %-8s %-8s %s -> %s", t.Step, t.Store, t.Event, t.From, t.To)
			if t.Error != "" {
				line += fmt.Sprintf(" (%s)", t.Error)
			}
			fmt.Fprintln(w, line)
		}
		for _, o := range c.Outcomes {
			fmt.Fprintf(w, "  => %s: %s\n", o.Store, o.Status)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d cycle(s), %d transition(s), %d failed\n",
		result.Stats.Cycles, result.Stats.Transitions, result.Stats.Failed)
}

// formatPayload renders a payload as canonical JSON.
func formatPayload(p map[string]any) string {
	data, err := action.MarshalCanonical(p)
	if err != nil {
		return fmt.Sprintf("%v", p)
	}
	return string(data)
}
