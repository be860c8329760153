package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/fluentchain/internal/chain"
	"github.com/roach88/fluentchain/internal/store"
	"github.com/roach88/fluentchain/internal/testutil"
	"github.com/roach88/fluentchain/internal/trace"
)

// Harness runs one scenario against a chain with a deterministic clock and
// session token.
type Harness struct {
	store   *store.Store
	engine  *chain.Engine
	clock   *testutil.DeterministicClock
	session string
	logger  *slog.Logger
}

// RunOption configures a scenario run.
type RunOption func(*runConfig)

type runConfig struct {
	logger    *slog.Logger
	dbPath    string
	session   string
	chainOpts []chain.Option
}

// WithLogger sets the logger for step-level output. Runs are silent by
// default.
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDatabase records the run into the SQLite file at path instead of a
// throwaway in-memory database. Unless a session token is set, the run is
// recorded under a fresh UUIDv7 token.
func WithDatabase(path string) RunOption {
	return func(c *runConfig) {
		c.dbPath = path
	}
}

// WithSession sets the session token for scenarios that do not name one.
func WithSession(token string) RunOption {
	return func(c *runConfig) {
		c.session = token
	}
}

// WithChainOptions sets engine defaults. Options in the scenario file are
// applied after them and win.
func WithChainOptions(opts ...chain.Option) RunOption {
	return func(c *runConfig) {
		c.chainOpts = append(c.chainOpts, opts...)
	}
}

// Run executes a scenario with default options.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext executes a scenario and returns the result.
//
// Execution flow:
//  1. Open the store (fresh in-memory database unless WithDatabase)
//  2. Build the target and wrap it in a chain that records every step
//  3. Run the steps, checking each expect clause
//  4. Save the chain's stored values
//  5. Evaluate assertions
//
// The returned error is for infrastructure failures only. Step and
// assertion failures are reported in Result.Errors.
func RunContext(ctx context.Context, scenario *Scenario, opts ...RunOption) (*Result, error) {
	cfg := runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		dbPath: ":memory:",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	st, err := store.Open(cfg.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	target, err := NewTarget(scenario.Target)
	if err != nil {
		return nil, err
	}

	clock := testutil.NewDeterministicClock()
	token := scenario.Session
	if token == "" {
		token = cfg.session
	}
	if token == "" && cfg.dbPath != ":memory:" {
		// Runs sharing a database file must not share the default token.
		token = trace.UUIDv7Generator{}.Generate()
	}
	session := testutil.NewFixedSessionGenerator(token).Generate()

	rec := trace.NewMemoryRecorder()
	chainOpts := []chain.Option{
		chain.WithRecorder(trace.MultiRecorder{rec, st.Recorder(ctx)}),
		chain.WithSession(session),
		chain.WithClock(clock),
		chain.WithLogger(cfg.logger),
	}
	chainOpts = append(chainOpts, cfg.chainOpts...)
	if o := scenario.Options; o != nil {
		if o.StrictProxy != nil {
			chainOpts = append(chainOpts, chain.WithStrictProxy(*o.StrictProxy))
		}
		chainOpts = append(chainOpts, chain.WithPrefix(o.Prefix))
	}

	h := &Harness{
		store:   st,
		engine:  chain.NewEngine(target, chainOpts...),
		clock:   clock,
		session: session,
		logger:  cfg.logger,
	}

	engineOpts := h.engine.Options()
	if err := st.WriteSession(ctx, store.Session{
		Token:       session,
		Target:      scenario.Target,
		StrictProxy: engineOpts.StrictProxy,
		Prefix:      engineOpts.Prefix,
	}); err != nil {
		return nil, err
	}

	result := NewResult()
	result.Session = session
	h.executeSteps(scenario.Steps, result)

	stored := h.engine.Stored()
	if err := st.WriteStoredValues(ctx, session, stored); err != nil {
		return nil, fmt.Errorf("failed to save stored values: %w", err)
	}
	for name, v := range stored {
		result.Stored[name] = trace.Snapshot(v)
	}
	result.FinalProxy = trace.Snapshot(h.engine.Proxy())
	result.Trace = rec.Events()

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeSteps runs steps until the first unexpected failure.
func (h *Harness) executeSteps(steps []Step, result *Result) {
	for i, step := range steps {
		result.StepsRun++
		value, bypassed, err := h.executeStep(step)

		if err != nil {
			if step.Expect == nil || step.Expect.Error == "" {
				result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", i, step.Label(), err))
				h.logger.Info("scenario stopped", "step", i, "key", step.Attr, "error", err)
				return
			}
			if !errorMatches(err, step.Expect.Error) {
				result.AddError(fmt.Sprintf("step %d (%s): expected error %q, got: %v", i, step.Label(), step.Expect.Error, err))
			}
			h.logger.Info("step failed as expected", "step", i, "key", step.Attr, "error", err)
			continue
		}

		if step.Expect != nil {
			h.checkExpect(i, step, value, bypassed, result)
		}

		h.logger.Info("step completed",
			"step", i,
			"key", step.Attr,
			"bypass", bypassed,
			"proxy_depth", h.engine.ProxyDepth(),
			"seq", h.clock.Current(),
		)
	}
}

// executeStep resolves and/or invokes. value is what the step produced: the
// bypass value, the new current value after a call, or the resolved member.
func (h *Harness) executeStep(step Step) (value any, bypassed bool, err error) {
	if step.Attr != "" {
		if err := h.engine.Resolve(step.Attr); err != nil {
			return nil, false, err
		}
	}
	if !step.Invokes() {
		return h.engine.Current(), false, nil
	}

	args := make([]any, len(step.Args))
	copy(args, step.Args)
	result, bypassed, err := h.engine.Invoke(args, step.Kwargs)
	if err != nil {
		return nil, false, err
	}
	if bypassed {
		return result, true, nil
	}
	return h.engine.CurrentValue(), false, nil
}

func (h *Harness) checkExpect(i int, step Step, value any, bypassed bool, result *Result) {
	exp := step.Expect
	if exp.Error != "" {
		result.AddError(fmt.Sprintf("step %d (%s): expected error %q, got none", i, step.Label(), exp.Error))
		return
	}
	if exp.Bypass != nil && *exp.Bypass != bypassed {
		result.AddError(fmt.Sprintf("step %d (%s): expected bypass=%v, got %v", i, step.Label(), *exp.Bypass, bypassed))
	}
	if exp.Result != nil && !valuesEqual(trace.Snapshot(value), exp.Result) {
		result.AddError(fmt.Sprintf("step %d (%s): expected result %v, got %v", i, step.Label(), exp.Result, trace.Snapshot(value)))
	}
}

// errorMatches accepts either the error's code or a substring of its
// message.
func errorMatches(err error, want string) bool {
	if code, ok := chain.CodeOf(err); ok && string(code) == want {
		return true
	}
	return strings.Contains(err.Error(), want)
}
