package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembersListsTargets(t *testing.T) {
	out, err := execute(NewMembersCommand(&RootOptions{Format: "text"}))
	require.NoError(t, err)
	assert.Equal(t, "adder\nrectangle\nrecord\nshapes\nsquare\ntriangle\n", out)
}

func TestMembersOfSquare(t *testing.T) {
	out, err := execute(NewMembersCommand(&RootOptions{Format: "text"}), "square")
	require.NoError(t, err)
	assert.Contains(t, out, "Target: square")
	assert.Contains(t, out, "  chain_store\n")
	assert.Contains(t, out, "  chain_use\n")
	assert.Contains(t, out, "  Area\n")
	assert.Contains(t, out, "  SetLength\n")
	assert.Contains(t, out, "  Length\n")
}

func TestMembersJSON(t *testing.T) {
	out, err := execute(NewMembersCommand(&RootOptions{Format: "json"}), "square")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   MembersResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "chain_", resp.Data.Prefix)
	assert.Contains(t, resp.Data.Operations, "chain_exit")
	assert.Contains(t, resp.Data.Operations, "chain_call_proxy")
	assert.ElementsMatch(t, []string{"Area", "SetLength", "Length"}, resp.Data.Members)
}

func TestMembersConfigPrefix(t *testing.T) {
	opts := &RootOptions{Format: "json"}
	opts.Config.Prefix = "fc_"

	out, err := execute(NewMembersCommand(opts), "square")
	require.NoError(t, err)
	assert.Contains(t, out, `"fc_store"`)
}

func TestMembersUnknownTarget(t *testing.T) {
	_, err := execute(NewMembersCommand(&RootOptions{Format: "text"}), "hexagon")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `unknown target "hexagon"`)
}
