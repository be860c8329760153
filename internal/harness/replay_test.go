package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fluentchain/internal/store"
	"github.com/roach88/fluentchain/internal/testutil"
	"github.com/roach88/fluentchain/internal/trace"
)

func recordScenario(t *testing.T, path string) (*store.Store, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "replay.db")

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	result, err := RunContext(context.Background(), scenario, WithDatabase(dbPath))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st, result.Session
}

func TestReplay_Deterministic(t *testing.T) {
	for _, name := range []string{"two_shapes.yaml", "errors.yaml", "non_strict.yaml", "record.cue", "adder.yaml"} {
		t.Run(name, func(t *testing.T) {
			st, session := recordScenario(t, filepath.Join("testdata/scenarios", name))

			result, err := Replay(context.Background(), st, session)
			require.NoError(t, err)

			assert.True(t, result.Deterministic, "mismatches: %+v", result.Mismatches)
			assert.NotZero(t, result.Steps)
		})
	}
}

func TestReplay_DetectsChangedResult(t *testing.T) {
	ctx := context.Background()
	st, session := recordScenario(t, "testdata/scenarios/square_area.yaml")

	_, err := st.DB().ExecContext(ctx,
		`UPDATE steps SET result = '10' WHERE session = ? AND seq = 4`, session)
	require.NoError(t, err)

	result, err := Replay(ctx, st, session)
	require.NoError(t, err)

	assert.False(t, result.Deterministic)
	require.Len(t, result.Mismatches, 1)
	assert.Equal(t, int64(4), result.Mismatches[0].Seq)
	assert.Equal(t, "result", result.Mismatches[0].Field)
}

func TestReplay_TwoScenariosInOneDatabase(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "shared.db")

	var sessions []string
	for _, name := range []string{"square_area.yaml", "adder.yaml"} {
		scenario, err := LoadScenario(filepath.Join("testdata/scenarios", name))
		require.NoError(t, err)
		result, err := RunContext(ctx, scenario, WithDatabase(dbPath))
		require.NoError(t, err)
		require.True(t, result.Pass, "errors: %v", result.Errors)
		assert.NotEqual(t, testutil.DefaultSession, result.Session)
		sessions = append(sessions, result.Session)
	}
	require.NotEqual(t, sessions[0], sessions[1])

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	recorded, err := st.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, recorded, 2)

	targets := map[string]string{}
	for _, sess := range recorded {
		targets[sess.Token] = sess.Target
	}
	assert.Equal(t, "square", targets[sessions[0]])
	assert.Equal(t, "adder", targets[sessions[1]])

	for _, session := range sessions {
		result, err := Replay(ctx, st, session)
		require.NoError(t, err)
		assert.True(t, result.Deterministic, "session %s mismatches: %+v", session, result.Mismatches)
	}
}

func TestRunContext_SharedSessionConflictFails(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "shared.db")

	square, err := LoadScenario("testdata/scenarios/square_area.yaml")
	require.NoError(t, err)
	_, err = RunContext(ctx, square, WithDatabase(dbPath), WithSession("nightly"))
	require.NoError(t, err)

	adder, err := LoadScenario("testdata/scenarios/adder.yaml")
	require.NoError(t, err)
	_, err = RunContext(ctx, adder, WithDatabase(dbPath), WithSession("nightly"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already recorded")
}

func TestReplay_UnknownSession(t *testing.T) {
	st, _ := recordScenario(t, "testdata/scenarios/square_area.yaml")

	_, err := Replay(context.Background(), st, "nope")
	require.Error(t, err)
}

func TestCompareSteps_LengthMismatch(t *testing.T) {
	a := []trace.Event{{Seq: 1, Kind: trace.KindResolve, Key: "x"}}
	out := compareSteps(a, nil)
	require.Len(t, out, 1)
	assert.Equal(t, "steps", out[0].Field)
}
