package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fluentchain/internal/testutil"
)

const squareScenario = `name: square_area
target: square
steps:
  - attr: set_length
    args: [3]
  - attr: area
    call: true
    expect:
      result: 9
  - attr: chain_store
    args: [area]
assertions:
  - type: stored
    name: area
    value: 9
`

const wrongAreaScenario = `name: wrong_area
target: square
steps:
  - attr: set_length
    args: [2]
  - attr: area
    call: true
    expect:
      result: 5
`

const rectangleScenario = `name: rectangle_area
target: rectangle
steps:
  - attr: set_width
    args: [2]
  - attr: set_length
    args: [5]
  - attr: area
    call: true
    expect:
      result: 10
`

// writeFile writes content under dir and returns the full path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs cmd with args and returns everything it wrote.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// recordSquare runs the square scenario into a fresh database file under
// the default session token.
func recordSquare(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := writeFile(t, dir, "square.yaml", squareScenario)
	dbPath := filepath.Join(dir, "chain.db")

	opts := &RootOptions{Format: "text"}
	opts.Config.Session = testutil.DefaultSession
	_, err := execute(NewRunCommand(opts), "--db", dbPath, path)
	require.NoError(t, err)
	return dbPath
}
