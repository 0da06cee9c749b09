package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/demo"
	"github.com/roach88/reflux/internal/engine"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database    string
	MaxAttempts int

	// FlowGenerator allows overriding the flow token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	FlowGenerator engine.FlowTokenGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Dispatch actions read line by line from stdin",
		Long: `Start the demo application on a journal and dispatch the actions read
from stdin, one per line:

  LOGIN {"username":"ada","password":"1234567"}
  LOGOUT

Blank lines and lines starting with # are skipped. The login view is
rendered to stdout whenever the user store changes. A failed dispatch is
reported and the loop continues; EOF or Ctrl-C stops it.

Example:
  reflux run --db ./reflux.db < actions.txt`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.MaxAttempts, "max-attempts", demo.DefaultMaxAttempts, "failed logins before the user store locks")

	return cmd
}

func runLoop(opts *RunOptions, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, opts.Database, logger, sessionConfig{
		maxAttempts: opts.MaxAttempts,
		flowGen:     opts.FlowGenerator,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, demo.Render(s.app.User.ToObject()))
	unmount := s.app.Mount(w)

	dispatched, failed, loopErr := dispatchLines(ctx, s.app, cmd.InOrStdin(), w, logger)
	unmount()

	if err := s.Close(); err != nil {
		return WrapExitError(ExitCommandError, "failed to write journal", err)
	}
	if loopErr != nil && loopErr != context.Canceled {
		return WrapExitError(ExitCommandError, "failed to read input", loopErr)
	}

	logger.Info("run finished", "dispatched", dispatched, "failed", failed)
	fmt.Fprintf(w, "%d action(s) dispatched, %d failed\n", dispatched, failed)
	return nil
}

// dispatchLines dispatches every action line of r until EOF or ctx is done.
// Input is read on its own goroutine so cancellation does not wait for a
// blocked read.
func dispatchLines(ctx context.Context, app *demo.App, r io.Reader, w io.Writer, logger *slog.Logger) (dispatched, failed int, err error) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("received signal, shutting down")
			return dispatched, failed, ctx.Err()

		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return dispatched, failed, err
				default:
					return dispatched, failed, nil
				}
			}

			c, payload, skip, err := parseActionLine(line)
			if skip {
				continue
			}
			if err != nil {
				fmt.Fprintf(w, "error: %v\n", err)
				continue
			}

			dispatched++
			if _, err := app.Dispatch(ctx, c, payload); err != nil {
				fmt.Fprintf(w, "error: %v\n", err)
				failed++
			}
		}
	}
}

// parseActionLine parses "ACTION [json-object]".
func parseActionLine(line string) (c action.Constant, p action.Payload, skip bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", nil, true, nil
	}

	name, rest, _ := strings.Cut(line, " ")
	c, ok := demo.Actions.Resolve(name)
	if !ok {
		return "", nil, false, fmt.Errorf("unknown action %q", name)
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return c, action.Payload{}, false, nil
	}
	p, err = parsePayload(rest)
	if err != nil {
		return "", nil, false, fmt.Errorf("invalid payload for %s: %w", name, err)
	}
	return c, p, false, nil
}
