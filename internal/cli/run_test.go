package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fluentchain/internal/store"
	"github.com/roach88/fluentchain/internal/testutil"
)

func TestRunPassingScenario(t *testing.T) {
	path := writeFile(t, t.TempDir(), "square.yaml", squareScenario)

	out, err := execute(NewRunCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ square_area (3 steps, session test-session-default)")
}

func TestRunFailingScenario(t *testing.T) {
	path := writeFile(t, t.TempDir(), "wrong.yaml", wrongAreaScenario)

	out, err := execute(NewRunCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_area")
}

func TestRunVerbosePrintsSteps(t *testing.T) {
	path := writeFile(t, t.TempDir(), "square.yaml", squareScenario)

	out, err := execute(NewRunCommand(&RootOptions{Format: "text", Verbose: true}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "[1] GET set_length")
	assert.Contains(t, out, "[2] CALL set_length(3)")
	assert.Contains(t, out, "[4] CALL area() -> 9")
	assert.Contains(t, out, "[6] CALL chain_store(area)")
}

func TestRunJSONOutput(t *testing.T) {
	path := writeFile(t, t.TempDir(), "square.yaml", squareScenario)

	out, err := execute(NewRunCommand(&RootOptions{Format: "json"}), path)
	require.NoError(t, err)

	var resp struct {
		Status  string `json:"status"`
		Session string `json:"session"`
		Data    struct {
			Pass     bool           `json:"pass"`
			StepsRun int            `json:"steps_run"`
			Stored   map[string]any `json:"stored"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, testutil.DefaultSession, resp.Session)
	assert.True(t, resp.Data.Pass)
	assert.Equal(t, 3, resp.Data.StepsRun)
	assert.Equal(t, float64(9), resp.Data.Stored["area"])
}

func TestRunJSONFailure(t *testing.T) {
	path := writeFile(t, t.TempDir(), "wrong.yaml", wrongAreaScenario)

	out, err := execute(NewRunCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenarioFailed, resp.Error.Code)
}

func TestRunRecordsIntoDatabase(t *testing.T) {
	dbPath := recordSquare(t)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	steps, err := st.ReadSteps(ctx, testutil.DefaultSession)
	require.NoError(t, err)
	assert.Len(t, steps, 6)

	sess, err := st.ReadSession(ctx, testutil.DefaultSession)
	require.NoError(t, err)
	assert.Equal(t, "square", sess.Target)
	assert.True(t, sess.StrictProxy)
	assert.Equal(t, "chain_", sess.Prefix)
}

func TestRunConfigSession(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "square.yaml", squareScenario)
	opts := &RootOptions{Format: "text"}
	opts.Config.Session = "nightly"

	out, err := execute(NewRunCommand(opts), "--db", filepath.Join(dir, "chain.db"), path)
	require.NoError(t, err)
	assert.Contains(t, out, "session nightly")
}

func TestRunTwiceIntoOneDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "chain.db")
	square := writeFile(t, dir, "square.yaml", squareScenario)
	rect := writeFile(t, dir, "rect.yaml", rectangleScenario)

	for _, path := range []string{square, rect} {
		_, err := execute(NewRunCommand(&RootOptions{Format: "text"}), "--db", dbPath, path)
		require.NoError(t, err)
	}

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	sessions, err := st.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.NotEqual(t, sessions[0].Token, sessions[1].Token)

	out, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All sessions verified deterministic")
}

func TestRunNonExistentFile(t *testing.T) {
	_, err := execute(NewRunCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load scenario")
}

func TestRunUnknownTarget(t *testing.T) {
	path := writeFile(t, t.TempDir(), "hex.yaml", `name: hex
target: hexagon
steps:
  - attr: area
`)

	_, err := execute(NewRunCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunRequiresOneArg(t *testing.T) {
	_, err := execute(NewRunCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
}
