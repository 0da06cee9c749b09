package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/demo"
	"github.com/roach88/reflux/internal/engine"
)

// DispatchOptions holds flags for the dispatch command.
type DispatchOptions struct {
	*RootOptions
	Database    string
	Payload     string
	MaxAttempts int
}

// StoreOutcome is the settled result of one store.
type StoreOutcome struct {
	Store  string `json:"store"`
	Status string `json:"status"` // ok | failed | ignored
	Error  string `json:"error,omitempty"`
}

// CycleSummary describes one settled cycle.
type CycleSummary struct {
	Flow     string         `json:"flow"`
	Seq      int64          `json:"seq"`
	Constant string         `json:"constant"`
	Depth    int            `json:"depth"`
	Stores   []StoreOutcome `json:"stores"`
}

// DispatchResult holds the cycles run by one dispatch.
type DispatchResult struct {
	Replayed int            `json:"replayed"`
	Cycles   []CycleSummary `json:"cycles"`
	View     string         `json:"view"`
}

// NewDispatchCommand creates the dispatch command.
func NewDispatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DispatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dispatch <action>",
		Short: "Dispatch one action and journal its cycles",
		Long: `Dispatch one action to the demo application and journal every cycle it
runs, follow-up actions included.

The journal is replayed first, so the stores start from the state earlier
dispatches left. The action is given by short name (LOGIN) or full
constant (USER_LOGIN).

Exit codes:
  0 - Every store settled through success
  1 - At least one store failed
  2 - Command error (unknown action, bad payload, unreadable journal)

Examples:
  reflux dispatch --db ./reflux.db LOGIN --payload '{"username":"ada","password":"1234567"}'
  reflux dispatch --db ./reflux.db LOGOUT --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDispatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Payload, "payload", "{}", "action payload as a JSON object")
	cmd.Flags().IntVar(&opts.MaxAttempts, "max-attempts", demo.DefaultMaxAttempts, "failed logins before the user store locks")

	return cmd
}

func runDispatch(opts *DispatchOptions, name string, cmd *cobra.Command) error {
	c, ok := demo.Actions.Resolve(name)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown action %q (known: %v)", name, demo.Actions.Names()))
	}
	payload, err := parsePayload(opts.Payload)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --payload", err)
	}

	ctx := cmd.Context()
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	s, err := openSession(ctx, opts.Database, logger, sessionConfig{maxAttempts: opts.MaxAttempts})
	if err != nil {
		return err
	}

	results, dispatchErr := s.app.Dispatch(ctx, c, payload)
	if err := s.Close(); err != nil {
		return WrapExitError(ExitCommandError, "failed to write journal", err)
	}

	result := DispatchResult{
		Replayed: s.replayed,
		Cycles:   summarizeCycles(results),
		View:     demo.Render(s.app.User.ToObject()),
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if dispatchErr != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeDispatch, Message: dispatchErr.Error()}
		}
		if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
	} else {
		outputDispatchText(cmd, result)
	}

	if dispatchErr != nil {
		return WrapExitError(ExitFailure, "dispatch failed", dispatchErr)
	}
	return nil
}

// parsePayload decodes a JSON object. Numbers stay json.Number so the
// journal stores them as written.
func parsePayload(raw string) (action.Payload, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var p map[string]any
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON object")
	}
	return action.Payload(p), nil
}

func summarizeCycles(results []*engine.Result) []CycleSummary {
	out := make([]CycleSummary, 0, len(results))
	for _, res := range results {
		if res == nil {
			continue
		}
		cs := CycleSummary{
			Flow:     res.Flow,
			Seq:      res.Seq,
			Constant: string(res.Constant),
			Depth:    res.Depth,
			Stores:   make([]StoreOutcome, 0, len(res.Outcomes)),
		}
		for _, o := range res.Outcomes {
			so := StoreOutcome{Store: o.Store.Name(), Status: outcomeStatus(o.Handled, o.Failed())}
			if o.Failed() {
				so.Error = o.Err.Error()
			}
			cs.Stores = append(cs.Stores, so)
		}
		out = append(out, cs)
	}
	return out
}

func outputDispatchText(cmd *cobra.Command, result DispatchResult) {
	w := cmd.OutOrStdout()
	if result.Replayed > 0 {
		fmt.Fprintf(w, "Replayed %d cycle(s) from journal\n", result.Replayed)
	}
	for _, cs := range result.Cycles {
		fmt.Fprintf(w, "cycle %d %s flow=%s depth=%d\n", cs.Seq, cs.Constant, cs.Flow, cs.Depth)
		for _, so := range cs.Stores {
			if so.Error != "" {
				fmt.Fprintf(w, "  %s: %s (%s)\n", so.Store, so.Status, so.Error)
				continue
			}
			fmt.Fprintf(w, "  %s: %s\n", so.Store, so.Status)
		}
	}
	fmt.Fprintln(w, result.View)
}
