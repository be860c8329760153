package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fluentchain/internal/chain"
	"github.com/roach88/fluentchain/internal/store"
	"github.com/roach88/fluentchain/internal/testutil"
	"github.com/roach88/fluentchain/internal/trace"
)

func boolPtr(b bool) *bool { return &b }

func TestRun_TwoShapes(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/two_shapes.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, testutil.DefaultSession, result.Session)
	assert.Equal(t, len(scenario.Steps), result.StepsRun)
	assert.Equal(t, float64(64), result.Stored["total"])
	assert.Equal(t, map[string]any{}, result.FinalProxy)
}

func TestRun_AllScenariosPass(t *testing.T) {
	files, err := ScenarioFiles("testdata/scenarios")
	require.NoError(t, err)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_TraceIsSequenced(t *testing.T) {
	scenario := &Scenario{
		Name:        "sequenced",
		Description: "Every step gets the next seq",
		Target:      "square",
		Steps: []Step{
			{Attr: "set_length", Args: []any{2}},
			{Attr: "area", Call: true},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 4)
	kinds := []string{trace.KindResolve, trace.KindInvoke, trace.KindResolve, trace.KindInvoke}
	for i, ev := range result.Trace {
		assert.Equal(t, int64(i+1), ev.Seq)
		assert.Equal(t, kinds[i], ev.Kind)
		assert.Equal(t, testutil.DefaultSession, ev.Session)
		assert.NotEmpty(t, ev.ID)
	}
	assert.Equal(t, float64(4), result.Trace[3].Result)
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/two_shapes.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
}

func TestRun_CustomSession(t *testing.T) {
	scenario := &Scenario{
		Name:        "custom_session",
		Description: "Session token comes from the scenario",
		Target:      "square",
		Session:     "test-session-custom",
		Steps:       []Step{{Attr: "area"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, "test-session-custom", result.Session)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "test-session-custom", result.Trace[0].Session)
}

func TestRun_UnexpectedErrorStops(t *testing.T) {
	scenario := &Scenario{
		Name:        "stops",
		Description: "An unexpected failure stops the run",
		Target:      "square",
		Steps: []Step{
			{Attr: "nope"},
			{Attr: "area", Call: true},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, 1, result.StepsRun)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step 0 (nope): unexpected error")
	assert.Contains(t, result.Errors[0], "MISSING_MEMBER")
}

func TestRun_ExpectedErrorMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_code",
		Description: "The step fails with a different code",
		Target:      "square",
		Steps: []Step{
			{Attr: "chain_use", Expect: &ExpectClause{Error: "KEY_NOT_FOUND"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `expected error "KEY_NOT_FOUND"`)
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	scenario := &Scenario{
		Name:        "no_error",
		Description: "The step was expected to fail",
		Target:      "square",
		Steps: []Step{
			{Attr: "area", Expect: &ExpectClause{Error: "MISSING_MEMBER"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "got none")
}

func TestRun_ErrorMatchesMessage(t *testing.T) {
	scenario := &Scenario{
		Name:        "message",
		Description: "Errors from the proxy are matched by message",
		Target:      "shapes",
		Steps: []Step{
			{Attr: "create", Args: []any{"hexagon"}, Expect: &ExpectClause{Error: "unknown shape"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_BypassExpectation(t *testing.T) {
	scenario := &Scenario{
		Name:        "bypass",
		Description: "Only bypassing calls report bypass",
		Target:      "square",
		Steps: []Step{
			{Attr: "area", Call: true, Expect: &ExpectClause{Bypass: boolPtr(true)}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected bypass=true, got false")
}

func TestRun_ResultExpectation(t *testing.T) {
	scenario := &Scenario{
		Name:        "result",
		Description: "Result mismatch is reported",
		Target:      "square",
		Steps: []Step{
			{Attr: "set_length", Args: []any{2}},
			{Attr: "area", Call: true, Expect: &ExpectClause{Result: 5}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected result 5, got 4")
}

func TestRun_Options(t *testing.T) {
	scenario := &Scenario{
		Name:        "prefix",
		Description: "A custom prefix routes to meta-operations",
		Target:      "square",
		Options:     &ScenarioOptions{StrictProxy: boolPtr(false), Prefix: "fc_"},
		Steps: []Step{
			{Attr: "chain_exit", Call: true},
			{Attr: "fc_exit", Call: true, Expect: &ExpectClause{Bypass: boolPtr(true)}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Kwargs(t *testing.T) {
	scenario := &Scenario{
		Name:        "kwargs",
		Description: "Meta-operations take keyword arguments",
		Target:      "square",
		Steps: []Step{
			{Attr: "set_length", Args: []any{5}},
			{Attr: "area", Call: true},
			{Attr: "chain_store", Kwargs: map[string]any{"name": "a"}},
			{Attr: "chain_retrieve", Kwargs: map[string]any{"name": "a"}, Expect: &ExpectClause{Result: 25}},
		},
		Assertions: []Assertion{
			{Type: AssertStored, Name: "a", Value: 25},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_WithDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chain.db")
	scenario, err := LoadScenario("testdata/scenarios/square_area.yaml")
	require.NoError(t, err)

	result, err := RunContext(context.Background(), scenario, WithDatabase(dbPath))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	assert.NotEqual(t, testutil.DefaultSession, result.Session)
	assert.Len(t, result.Session, 36)
	steps, err := st.ReadSteps(ctx, result.Session)
	require.NoError(t, err)
	require.Len(t, steps, len(result.Trace))
	for i := range steps {
		assert.Equal(t, result.Trace[i].ID, steps[i].ID)
	}

	stored, err := st.ReadStoredValues(ctx, result.Session)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"area": int64(9)}, stored)
}

func TestRun_UnknownTarget(t *testing.T) {
	scenario := &Scenario{
		Name:        "unknown",
		Description: "Run checks the target even without validation",
		Target:      "hexagon",
		Steps:       []Step{{Attr: "area"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target")
}

func TestRunContext_ChainDefaults(t *testing.T) {
	scenario := &Scenario{
		Name:        "defaults",
		Description: "Run options supply defaults the scenario can override",
		Target:      "square",
		Steps: []Step{
			{Attr: "missing", Call: true},
			{Attr: "fc_exit", Call: true, Expect: &ExpectClause{Bypass: boolPtr(true)}},
		},
	}

	result, err := RunContext(context.Background(), scenario,
		WithChainOptions(chain.WithStrictProxy(false), chain.WithPrefix("fc_")),
		WithSession("test-session-config"),
	)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "test-session-config", result.Session)

	scenario.Options = &ScenarioOptions{StrictProxy: boolPtr(true)}
	scenario.Session = "test-session-own"
	result, err = RunContext(context.Background(), scenario,
		WithChainOptions(chain.WithStrictProxy(false), chain.WithPrefix("fc_")),
		WithSession("test-session-config"),
	)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, "test-session-own", result.Session)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "MISSING_MEMBER")
}
