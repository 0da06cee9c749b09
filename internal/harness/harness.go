package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/reflux/internal/action"
	"github.com/roach88/reflux/internal/demo"
	"github.com/roach88/reflux/internal/engine"
	"github.com/roach88/reflux/internal/state"
	"github.com/roach88/reflux/internal/store"
	"github.com/roach88/reflux/internal/testutil"
)

// Harness runs one scenario against a fresh demo application.
type Harness struct {
	app      *demo.App
	recorder *recorder
	logger   *slog.Logger
}

type runConfig struct {
	tracer store.Tracer
	logger *slog.Logger
}

// Option configures Run.
type Option func(*runConfig)

// WithTracer additionally sends the run's transitions to t, typically a
// *journal.Journal.
func WithTracer(t store.Tracer) Option {
	return func(c *runConfig) { c.tracer = t }
}

// WithLogger sets the logger of the application. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Build a fresh demo.App with a deterministic clock and flow tokens
//  2. Dispatch each step, draining follow-ups, and check expect_error
//  3. Snapshot every store's state and handler sub-states
//  4. Evaluate assertions
//
// Step and assertion failures are reported in Result.Errors; the returned
// error is reserved for failures to run the scenario at all.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := &runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(cfg)
	}

	flowToken := scenario.FlowToken
	if flowToken == "" {
		flowToken = scenario.Name
	}

	rec := newRecorder()
	tracer := store.MultiTracer{rec, cfg.tracer}

	app, err := demo.New(
		demo.WithLogger(cfg.logger),
		demo.WithMaxAttempts(scenario.MaxAttempts),
		demo.WithEngineOptions(
			engine.WithTracer(tracer),
			engine.WithClock(testutil.NewDeterministicClock()),
			engine.WithFlowGenerator(testutil.NewSequentialFlowGenerator(flowToken)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}

	h := &Harness{app: app, recorder: rec, logger: cfg.logger}
	ctx := context.Background()

	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	result.Cycles = rec.snapshot()
	h.captureState(result)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeSteps dispatches every step in order. A step whose outcome does not
// match expect_error is recorded as a failure and the run continues.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		c, err := resolveAction(step.Dispatch)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}

		_, err = h.app.Dispatch(ctx, c, action.Payload(step.Payload))
		switch {
		case step.ExpectError == "" && err != nil:
			result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", i, c, err))
		case step.ExpectError != "" && err == nil:
			result.AddError(fmt.Sprintf("step %d (%s): expected error containing %q, got none", i, c, step.ExpectError))
		case step.ExpectError != "" && !strings.Contains(err.Error(), step.ExpectError):
			result.AddError(fmt.Sprintf("step %d (%s): expected error containing %q, got: %v", i, c, step.ExpectError, err))
		}

		h.logger.Info("scenario step completed", "step", i, "action", string(c), "error", err)
	}
	return nil
}

func (h *Harness) captureState(result *Result) {
	for _, s := range h.app.Stores() {
		result.State[s.Name()] = s.ToJS()

		subs := make(map[action.Constant]state.State)
		for _, c := range s.Constants() {
			if sub, err := s.GetActionState(c); err == nil {
				subs[c] = sub
			}
		}
		result.ActionState[s.Name()] = subs
	}
}
